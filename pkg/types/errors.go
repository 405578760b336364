package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrorKind is the user-facing category a provider or chain error maps to.
type ErrorKind string

const (
	ErrKindTransient             ErrorKind = "transient"
	ErrKindRateLimited           ErrorKind = "rate_limited"
	ErrKindUserRejected          ErrorKind = "user_rejected"
	ErrKindInsufficientFunds     ErrorKind = "insufficient_funds"
	ErrKindInsufficientLiquidity ErrorKind = "insufficient_liquidity"
	ErrKindPriceImpact           ErrorKind = "price_impact"
	ErrKindChainExecution        ErrorKind = "chain_execution"
	ErrKindUnknown               ErrorKind = "unknown"
)

// TradeError carries the classified kind alongside the underlying cause.
type TradeError struct {
	Kind    ErrorKind
	Family  ChainFamily
	Message string // user-facing
	Err     error
}

func (e *TradeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *TradeError) Unwrap() error { return e.Err }

// NewTradeError classifies err for the given chain family and wraps it.
func NewTradeError(family ChainFamily, err error) *TradeError {
	kind := ClassifyError(err)
	return &TradeError{
		Kind:    kind,
		Family:  family,
		Message: GetUserFriendlyErrorMessage(family, err),
		Err:     err,
	}
}

var transientKeywords = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"network",
	"fetch failed",
	"econnreset",
	"temporarily unavailable",
	"eof",
}

// IsTransient reports whether err looks like a transient network failure
// worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err is a provider-reported rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429")
}

// ClassifyError maps err onto the taxonomy. Chain-family keywords are
// not consulted here; use GetUserFriendlyErrorMessage for the tailored
// per-family message.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}

	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}

	msg := strings.ToLower(err.Error())

	switch {
	case IsRateLimited(err):
		return ErrKindRateLimited
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "rejected by user"),
		strings.Contains(msg, "user cancelled"):
		return ErrKindUserRejected
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient balance"),
		strings.Contains(msg, "exceeds balance"):
		return ErrKindInsufficientFunds
	case strings.Contains(msg, "insufficient liquidity"),
		strings.Contains(msg, "no route found"),
		strings.Contains(msg, "no liquidity"):
		return ErrKindInsufficientLiquidity
	case strings.Contains(msg, "price impact"),
		strings.Contains(msg, "slippage"):
		return ErrKindPriceImpact
	case IsTransient(err):
		return ErrKindTransient
	case strings.Contains(msg, "revert"),
		strings.Contains(msg, "execution failed"),
		strings.Contains(msg, "signature"),
		strings.Contains(msg, "allowance"),
		strings.Contains(msg, "approval"):
		return ErrKindChainExecution
	default:
		return ErrKindUnknown
	}
}

const maxRawErrorLen = 100

// GetUserFriendlyErrorMessage converts a raw provider or chain error into
// a short actionable message. Non-EVM chain keywords take precedence over
// the generic EVM-style messages, so the allowance/approval message is
// never shown for a Solana, Sui, Tron or TON failure.
func GetUserFriendlyErrorMessage(family ChainFamily, err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	// Non-EVM families first. The raw text may mention EVM-ish words
	// (allowance, revert) that would otherwise misclassify.
	switch {
	case family == FamilySolana || strings.Contains(msg, "solana") || strings.Contains(msg, "lamport") || strings.Contains(msg, "blockhash"):
		return solanaMessage(msg)
	case family == FamilySui || mentionsChain(msg, "sui"):
		return "Sui transaction failed. Check your balance and try again."
	case family == FamilyTron || strings.Contains(msg, "tron") || strings.Contains(msg, "trx"):
		return "Tron transaction failed. Check your TRX balance covers energy and bandwidth."
	case family == FamilyTON || mentionsChain(msg, "ton"):
		return "TON transaction failed. Check your balance and try again."
	}

	switch ClassifyError(err) {
	case ErrKindRateLimited:
		return "Too many requests. Wait a moment and retry."
	case ErrKindUserRejected:
		return "Transaction rejected."
	case ErrKindInsufficientFunds:
		return "Insufficient funds for this trade. Reduce the amount or top up your balance."
	case ErrKindInsufficientLiquidity:
		return "Insufficient liquidity for this pair. Try a smaller amount."
	case ErrKindPriceImpact:
		return "Price moved beyond your slippage tolerance. Increase slippage or reduce the amount."
	case ErrKindTransient:
		return "Unable to connect. Check your connection and try again."
	case ErrKindChainExecution:
		if strings.Contains(msg, "allowance") || strings.Contains(msg, "approval") {
			return "Token approval required or insufficient. Approve the token and retry."
		}
		return "Transaction failed on-chain. It may have reverted; try again with higher slippage."
	default:
		raw := err.Error()
		if len(raw) > maxRawErrorLen {
			return "Something went wrong. Please try again."
		}
		return "Something went wrong: " + raw
	}
}

// mentionsChain reports whether msg contains name as a standalone word.
// Short chain names like "ton" occur inside ordinary English words, so a
// plain substring match is not enough.
func mentionsChain(msg, name string) bool {
	words := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if w == name {
			return true
		}
	}
	return false
}

func solanaMessage(msg string) string {
	switch {
	case strings.Contains(msg, "insufficient"):
		return "Insufficient SOL balance. Keep some SOL for fees."
	case strings.Contains(msg, "signature"):
		return "Solana transaction signature failed. Try again."
	case strings.Contains(msg, "blockhash"):
		return "Solana transaction expired. Try again."
	default:
		return "Solana transaction failed. Try again."
	}
}
