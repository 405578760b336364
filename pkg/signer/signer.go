// Package signer provides the per-chain-family "sign and broadcast"
// capability the execution layer depends on. Key management stays with
// the caller's configuration; this package never generates or stores
// keys itself.
package signer

import (
	"context"
	"fmt"

	"omniswap/pkg/client"
	"omniswap/pkg/types"
)

// Signer signs and broadcasts transactions for one chain family.
type Signer interface {
	Family() types.ChainFamily
	Address() string

	// SignAndSend signs the provider-built payload and broadcasts it,
	// returning the transaction hash.
	SignAndSend(ctx context.Context, tx *client.TxPayload) (string, error)

	// SignMessage signs an arbitrary payload, for provider auth flows.
	SignMessage(ctx context.Context, payload []byte) ([]byte, error)

	// TxStatus reports whether txHash has confirmed, reverted, or is
	// still pending.
	TxStatus(ctx context.Context, txHash string) (types.TxReceiptStatus, error)
}

// AllowanceChecker is implemented by signers whose chain family has an
// ERC-20-style allowance model.
type AllowanceChecker interface {
	// Allowance returns the current spend allowance granted by the
	// signer's address to spender for the given token contract, in
	// smallest units as a decimal string.
	Allowance(ctx context.Context, tokenAddr, spender string) (string, error)
}

// Registry holds one signer per chain family.
type Registry struct {
	signers map[types.ChainFamily]Signer
}

// NewRegistry creates an empty signer registry.
func NewRegistry() *Registry {
	return &Registry{signers: make(map[types.ChainFamily]Signer)}
}

// Register adds or replaces the signer for its family.
func (r *Registry) Register(s Signer) {
	r.signers[s.Family()] = s
}

// For returns the signer for a chain's family.
func (r *Registry) For(chain types.Chain) (Signer, error) {
	s, ok := r.signers[chain.Family]
	if !ok {
		return nil, fmt.Errorf("no signer configured for chain family '%s'", chain.Family)
	}
	return s, nil
}
