package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainFamily groups blockchains that share a wallet/transaction model.
type ChainFamily string

const (
	FamilyEVM    ChainFamily = "evm"
	FamilySolana ChainFamily = "solana"
	FamilySui    ChainFamily = "sui"
	FamilyTron   ChainFamily = "tron"
	FamilyTON    ChainFamily = "ton"
)

// NativeTokenAddress is the sentinel contract address used by aggregator
// APIs for a chain's native asset.
const NativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Token identifies a fungible asset on a specific chain.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
	ChainID  string `json:"chain_id"`
	LogoURL  string `json:"logo_url,omitempty"`

	// PriceUSD is optional; zero means unknown.
	PriceUSD decimal.Decimal `json:"price_usd,omitempty"`
}

// IsNative reports whether the token is the chain's native asset.
func (t Token) IsNative() bool {
	return t.Address == "" || t.Address == NativeTokenAddress
}

// Chain is a static descriptor for a supported blockchain. Loaded once
// from the registry and never mutated at runtime.
type Chain struct {
	ID          string      `json:"id"`
	Index       int         `json:"index"`
	Name        string      `json:"name"`
	Family      ChainFamily `json:"family"`
	NativeToken Token       `json:"native_token"`
	RPCURL      string      `json:"rpc_url"`
	ExplorerTx  string      `json:"explorer_tx"` // template, %s replaced by tx hash
}

// IsEVM reports whether the chain uses the EVM account/transaction model.
func (c Chain) IsEVM() bool {
	return c.Family == FamilyEVM
}

// SwapRequest is a user's desired trade before quoting.
type SwapRequest struct {
	Chain         Chain
	FromToken     Token
	ToToken       Token
	Amount        string // human units, decimal string
	SlippagePct   decimal.Decimal
	WalletAddress string

	// Bridge-only fields; zero-valued for same-chain swaps.
	ToChain    Chain
	ToAddress  string
	CrossChain bool
}

// Route is one candidate path for a trade, from the quote-compare list
// or a multi-provider fan-out.
type Route struct {
	Provider     string          `json:"provider"`
	AmountOut    decimal.Decimal `json:"amount_out"`
	Fee          decimal.Decimal `json:"fee"`
	EstimatedGas decimal.Decimal `json:"estimated_gas"`
}

// NetOutput returns the route's output net of provider fee.
func (r Route) NetOutput() decimal.Decimal {
	return r.AmountOut.Sub(r.Fee)
}

// SubRoute describes a liquidity venue's share of a routed trade.
type SubRoute struct {
	Venue   string          `json:"venue"`
	Percent decimal.Decimal `json:"percent"`
}

// Quote is the ephemeral result of a pricing request. At most one live
// Quote exists per input tuple; a newer request supersedes it.
type Quote struct {
	Request        SwapRequest
	AmountIn       decimal.Decimal // smallest units
	AmountOut      decimal.Decimal // smallest units
	AmountOutHuman decimal.Decimal
	Rate           decimal.Decimal // output per input, human units; zero when input is zero
	EstimatedGas   decimal.Decimal
	PriceImpactPct decimal.Decimal
	Routes         []Route
	SubRoutes      []SubRoute
	TxData         string // provider call data for execution, when requested
	CreatedAt      time.Time
}

// PriceTick is one observation of a pair's price, fed to the order
// evaluation loop.
type PriceTick struct {
	ChainID   string
	Pair      string // "FROM/TO" token symbols
	Price     decimal.Decimal
	Timestamp time.Time
}

// TxReceiptStatus is the outcome of a confirmation poll.
type TxReceiptStatus int

const (
	TxPending TxReceiptStatus = iota
	TxConfirmed
	TxReverted
)
