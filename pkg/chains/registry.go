// Package chains holds the static registry of supported networks. The
// registry is assembled once at startup and is read-only afterwards.
package chains

import (
	"fmt"
	"strings"

	"omniswap/pkg/types"
)

// Registry resolves chain descriptors by id or name.
type Registry struct {
	byID map[string]types.Chain
}

// NewRegistry builds a registry from the default chain set, with RPC
// endpoints optionally overridden per chain id.
func NewRegistry(rpcOverrides map[string]string) *Registry {
	r := &Registry{byID: make(map[string]types.Chain)}
	for _, c := range defaultChains() {
		if rpc, ok := rpcOverrides[c.ID]; ok && rpc != "" {
			c.RPCURL = rpc
		}
		r.byID[c.ID] = c
	}
	return r
}

// Get returns the chain descriptor for id.
func (r *Registry) Get(id string) (types.Chain, error) {
	c, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return types.Chain{}, fmt.Errorf("chain '%s' not supported", id)
	}
	return c, nil
}

// List returns all registered chains.
func (r *Registry) List() []types.Chain {
	out := make([]types.Chain, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

func defaultChains() []types.Chain {
	native := func(symbol, name, chainID string, decimals int32) types.Token {
		return types.Token{
			Address:  types.NativeTokenAddress,
			Symbol:   symbol,
			Name:     name,
			Decimals: decimals,
			ChainID:  chainID,
		}
	}

	return []types.Chain{
		{
			ID: "ethereum", Index: 1, Name: "Ethereum", Family: types.FamilyEVM,
			NativeToken: native("ETH", "Ether", "ethereum", 18),
			RPCURL:      "https://eth.llamarpc.com",
			ExplorerTx:  "https://etherscan.io/tx/%s",
		},
		{
			ID: "bsc", Index: 56, Name: "BNB Chain", Family: types.FamilyEVM,
			NativeToken: native("BNB", "BNB", "bsc", 18),
			RPCURL:      "https://bsc-dataseed.binance.org",
			ExplorerTx:  "https://bscscan.com/tx/%s",
		},
		{
			ID: "polygon", Index: 137, Name: "Polygon", Family: types.FamilyEVM,
			NativeToken: native("POL", "Polygon", "polygon", 18),
			RPCURL:      "https://polygon-rpc.com",
			ExplorerTx:  "https://polygonscan.com/tx/%s",
		},
		{
			ID: "arbitrum", Index: 42161, Name: "Arbitrum One", Family: types.FamilyEVM,
			NativeToken: native("ETH", "Ether", "arbitrum", 18),
			RPCURL:      "https://arb1.arbitrum.io/rpc",
			ExplorerTx:  "https://arbiscan.io/tx/%s",
		},
		{
			ID: "base", Index: 8453, Name: "Base", Family: types.FamilyEVM,
			NativeToken: native("ETH", "Ether", "base", 18),
			RPCURL:      "https://mainnet.base.org",
			ExplorerTx:  "https://basescan.org/tx/%s",
		},
		{
			ID: "solana", Index: 501, Name: "Solana", Family: types.FamilySolana,
			NativeToken: native("SOL", "Solana", "solana", 9),
			RPCURL:      "https://api.mainnet-beta.solana.com",
			ExplorerTx:  "https://solscan.io/tx/%s",
		},
		{
			ID: "sui", Index: 784, Name: "Sui", Family: types.FamilySui,
			NativeToken: native("SUI", "Sui", "sui", 9),
			RPCURL:      "https://fullnode.mainnet.sui.io",
			ExplorerTx:  "https://suiscan.xyz/mainnet/tx/%s",
		},
		{
			ID: "tron", Index: 195, Name: "Tron", Family: types.FamilyTron,
			NativeToken: native("TRX", "Tron", "tron", 6),
			RPCURL:      "https://api.trongrid.io",
			ExplorerTx:  "https://tronscan.org/#/transaction/%s",
		},
		{
			ID: "ton", Index: 607, Name: "TON", Family: types.FamilyTON,
			NativeToken: native("TON", "Toncoin", "ton", 9),
			RPCURL:      "https://toncenter.com/api/v2/jsonRPC",
			ExplorerTx:  "https://tonviewer.com/transaction/%s",
		},
	}
}
