package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultStorageFileName is the file-store location under the user's
// home directory when no path is configured.
const DefaultStorageFileName = ".omniswap-orders.json"

// Store persists limit and DCA orders keyed by wallet address and order
// id.
type Store interface {
	SaveLimitOrder(ctx context.Context, o *LimitOrder) error
	GetLimitOrder(ctx context.Context, wallet, id string) (*LimitOrder, error)
	ListLimitOrders(ctx context.Context, wallet string) ([]*LimitOrder, error)
	DeleteLimitOrder(ctx context.Context, wallet, id string) error

	SaveDCAOrder(ctx context.Context, o *DCAOrder) error
	GetDCAOrder(ctx context.Context, wallet, id string) (*DCAOrder, error)
	ListDCAOrders(ctx context.Context, wallet string) ([]*DCAOrder, error)
	DeleteDCAOrder(ctx context.Context, wallet, id string) error

	// ActiveLimitOrders and ActiveDCAOrders feed the evaluation loop
	// across all wallets.
	ActiveLimitOrders(ctx context.Context) ([]*LimitOrder, error)
	ActiveDCAOrders(ctx context.Context) ([]*DCAOrder, error)
}

// fileState is the JSON layout of the file store.
type fileState struct {
	LimitOrders map[string]map[string]*LimitOrder `json:"limit_orders"` // wallet -> id -> order
	DCAOrders   map[string]map[string]*DCAOrder   `json:"dca_orders"`
}

// FileStore is the default JSON-file-backed order store.
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

// NewFileStore opens (or creates on first save) the order file at
// filePath; empty filePath defaults to the home directory.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	s := &FileStore{
		filePath: filePath,
		state: fileState{
			LimitOrders: make(map[string]map[string]*LimitOrder),
			DCAOrders:   make(map[string]map[string]*DCAOrder),
		},
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load orders: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal orders: %w", err)
	}
	if state.LimitOrders == nil {
		state.LimitOrders = make(map[string]map[string]*LimitOrder)
	}
	if state.DCAOrders == nil {
		state.DCAOrders = make(map[string]map[string]*DCAOrder)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// save writes to a temporary file first, then renames, so a crash never
// leaves a half-written order file. Callers must not hold the lock.
func (s *FileStore) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write orders: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// SaveLimitOrder inserts or replaces the order.
func (s *FileStore) SaveLimitOrder(_ context.Context, o *LimitOrder) error {
	s.mu.Lock()
	if s.state.LimitOrders[o.WalletAddress] == nil {
		s.state.LimitOrders[o.WalletAddress] = make(map[string]*LimitOrder)
	}
	cp := *o
	s.state.LimitOrders[o.WalletAddress][o.ID] = &cp
	s.mu.Unlock()
	return s.save()
}

// GetLimitOrder retrieves one order.
func (s *FileStore) GetLimitOrder(_ context.Context, wallet, id string) (*LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.LimitOrders[wallet][id]
	if !ok {
		return nil, fmt.Errorf("limit order '%s' not found", id)
	}
	cp := *o
	return &cp, nil
}

// ListLimitOrders returns the wallet's orders.
func (s *FileStore) ListLimitOrders(_ context.Context, wallet string) ([]*LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*LimitOrder, 0, len(s.state.LimitOrders[wallet]))
	for _, o := range s.state.LimitOrders[wallet] {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

// DeleteLimitOrder removes one order.
func (s *FileStore) DeleteLimitOrder(_ context.Context, wallet, id string) error {
	s.mu.Lock()
	if _, ok := s.state.LimitOrders[wallet][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("limit order '%s' not found", id)
	}
	delete(s.state.LimitOrders[wallet], id)
	s.mu.Unlock()
	return s.save()
}

// SaveDCAOrder inserts or replaces the plan.
func (s *FileStore) SaveDCAOrder(_ context.Context, o *DCAOrder) error {
	s.mu.Lock()
	if s.state.DCAOrders[o.WalletAddress] == nil {
		s.state.DCAOrders[o.WalletAddress] = make(map[string]*DCAOrder)
	}
	cp := *o
	s.state.DCAOrders[o.WalletAddress][o.ID] = &cp
	s.mu.Unlock()
	return s.save()
}

// GetDCAOrder retrieves one plan.
func (s *FileStore) GetDCAOrder(_ context.Context, wallet, id string) (*DCAOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.DCAOrders[wallet][id]
	if !ok {
		return nil, fmt.Errorf("DCA order '%s' not found", id)
	}
	cp := *o
	return &cp, nil
}

// ListDCAOrders returns the wallet's plans.
func (s *FileStore) ListDCAOrders(_ context.Context, wallet string) ([]*DCAOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DCAOrder, 0, len(s.state.DCAOrders[wallet]))
	for _, o := range s.state.DCAOrders[wallet] {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

// DeleteDCAOrder removes one plan.
func (s *FileStore) DeleteDCAOrder(_ context.Context, wallet, id string) error {
	s.mu.Lock()
	if _, ok := s.state.DCAOrders[wallet][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("DCA order '%s' not found", id)
	}
	delete(s.state.DCAOrders[wallet], id)
	s.mu.Unlock()
	return s.save()
}

// ActiveLimitOrders returns active and triggered orders across wallets.
func (s *FileStore) ActiveLimitOrders(_ context.Context) ([]*LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*LimitOrder
	for _, byID := range s.state.LimitOrders {
		for _, o := range byID {
			if o.Status == StatusActive || o.Status == StatusTriggered {
				cp := *o
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

// ActiveDCAOrders returns active plans across wallets.
func (s *FileStore) ActiveDCAOrders(_ context.Context) ([]*DCAOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DCAOrder
	for _, byID := range s.state.DCAOrders {
		for _, o := range byID {
			if o.Status == StatusActive {
				cp := *o
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

// FilePath returns the backing file location.
func (s *FileStore) FilePath() string { return s.filePath }
