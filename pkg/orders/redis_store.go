package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists orders in Redis hashes, one hash per wallet. It is
// the multi-instance alternative to the file store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance at addr.
func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

const walletSetKey = "orders:wallets"

func limitKey(wallet string) string { return fmt.Sprintf("orders:limit:%s", wallet) }
func dcaKey(wallet string) string   { return fmt.Sprintf("orders:dca:%s", wallet) }

// SaveLimitOrder inserts or replaces the order.
func (r *RedisStore) SaveLimitOrder(ctx context.Context, o *LimitOrder) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal limit order: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, limitKey(o.WalletAddress), o.ID, data)
	pipe.SAdd(ctx, walletSetKey, o.WalletAddress)
	_, err = pipe.Exec(ctx)
	return err
}

// GetLimitOrder retrieves one order.
func (r *RedisStore) GetLimitOrder(ctx context.Context, wallet, id string) (*LimitOrder, error) {
	data, err := r.client.HGet(ctx, limitKey(wallet), id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("limit order '%s' not found", id)
		}
		return nil, err
	}
	var o LimitOrder
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal limit order: %w", err)
	}
	return &o, nil
}

// ListLimitOrders returns the wallet's orders.
func (r *RedisStore) ListLimitOrders(ctx context.Context, wallet string) ([]*LimitOrder, error) {
	entries, err := r.client.HGetAll(ctx, limitKey(wallet)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*LimitOrder, 0, len(entries))
	for _, data := range entries {
		var o LimitOrder
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal limit order: %w", err)
		}
		out = append(out, &o)
	}
	return out, nil
}

// DeleteLimitOrder removes one order.
func (r *RedisStore) DeleteLimitOrder(ctx context.Context, wallet, id string) error {
	n, err := r.client.HDel(ctx, limitKey(wallet), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("limit order '%s' not found", id)
	}
	return nil
}

// SaveDCAOrder inserts or replaces the plan.
func (r *RedisStore) SaveDCAOrder(ctx context.Context, o *DCAOrder) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal DCA order: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, dcaKey(o.WalletAddress), o.ID, data)
	pipe.SAdd(ctx, walletSetKey, o.WalletAddress)
	_, err = pipe.Exec(ctx)
	return err
}

// GetDCAOrder retrieves one plan.
func (r *RedisStore) GetDCAOrder(ctx context.Context, wallet, id string) (*DCAOrder, error) {
	data, err := r.client.HGet(ctx, dcaKey(wallet), id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("DCA order '%s' not found", id)
		}
		return nil, err
	}
	var o DCAOrder
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DCA order: %w", err)
	}
	return &o, nil
}

// ListDCAOrders returns the wallet's plans.
func (r *RedisStore) ListDCAOrders(ctx context.Context, wallet string) ([]*DCAOrder, error) {
	entries, err := r.client.HGetAll(ctx, dcaKey(wallet)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*DCAOrder, 0, len(entries))
	for _, data := range entries {
		var o DCAOrder
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal DCA order: %w", err)
		}
		out = append(out, &o)
	}
	return out, nil
}

// DeleteDCAOrder removes one plan.
func (r *RedisStore) DeleteDCAOrder(ctx context.Context, wallet, id string) error {
	n, err := r.client.HDel(ctx, dcaKey(wallet), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("DCA order '%s' not found", id)
	}
	return nil
}

// ActiveLimitOrders scans every known wallet for active and triggered
// orders.
func (r *RedisStore) ActiveLimitOrders(ctx context.Context) ([]*LimitOrder, error) {
	wallets, err := r.client.SMembers(ctx, walletSetKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*LimitOrder
	for _, wallet := range wallets {
		list, err := r.ListLimitOrders(ctx, wallet)
		if err != nil {
			return nil, err
		}
		for _, o := range list {
			if o.Status == StatusActive || o.Status == StatusTriggered {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// ActiveDCAOrders scans every known wallet for active plans.
func (r *RedisStore) ActiveDCAOrders(ctx context.Context) ([]*DCAOrder, error) {
	wallets, err := r.client.SMembers(ctx, walletSetKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*DCAOrder
	for _, wallet := range wallets {
		list, err := r.ListDCAOrders(ctx, wallet)
		if err != nil {
			return nil, err
		}
		for _, o := range list {
			if o.Status == StatusActive {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error { return r.client.Close() }
