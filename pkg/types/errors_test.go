package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrKindUnknown},
		{"rate limit text", errors.New("API rate limit: too many requests (429)"), ErrKindRateLimited},
		{"429 status", errors.New("request failed with status 429"), ErrKindRateLimited},
		{"user rejected", errors.New("User rejected the request"), ErrKindUserRejected},
		{"user denied", errors.New("MetaMask Tx Signature: User denied transaction signature"), ErrKindUserRejected},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), ErrKindInsufficientFunds},
		{"exceeds balance", errors.New("transfer amount exceeds balance"), ErrKindInsufficientFunds},
		{"insufficient liquidity", errors.New("insufficient liquidity for this trade"), ErrKindInsufficientLiquidity},
		{"no route", errors.New("no route found for pair"), ErrKindInsufficientLiquidity},
		{"slippage", errors.New("Return amount is not enough, slippage exceeded"), ErrKindPriceImpact},
		{"timeout", errors.New("context deadline exceeded: request timed out"), ErrKindTransient},
		{"conn reset", errors.New("read tcp: connection reset by peer"), ErrKindTransient},
		{"revert", errors.New("execution reverted"), ErrKindChainExecution},
		{"allowance", errors.New("ERC20: insufficient allowance"), ErrKindChainExecution},
		{"garbage", errors.New("0xdeadbeef"), ErrKindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyErrorUnwrapsTradeError(t *testing.T) {
	inner := NewTradeError(FamilyEVM, errors.New("insufficient funds"))
	wrapped := fmt.Errorf("swap failed: %w", inner)
	assert.Equal(t, ErrKindInsufficientFunds, ClassifyError(wrapped))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("unexpected EOF")))
	assert.False(t, IsTransient(errors.New("execution reverted")))
	assert.False(t, IsTransient(nil))
}

// An allowance-flavoured message on a non-EVM chain must never surface the
// EVM approval hint.
func TestFriendlyMessageFamilyPrecedence(t *testing.T) {
	err := errors.New("solana program error: allowance check failed")

	msg := GetUserFriendlyErrorMessage(FamilySolana, err)
	assert.Contains(t, msg, "Solana")
	assert.NotContains(t, msg, "approval")
	assert.NotContains(t, msg, "Approve")

	// Same raw text on an EVM chain does get the approval hint.
	evmMsg := GetUserFriendlyErrorMessage(FamilyEVM, errors.New("ERC20: insufficient allowance"))
	assert.Contains(t, evmMsg, "approval")
}

func TestFriendlyMessageSolanaVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"insufficient lamports 100, need 200", "Insufficient SOL"},
		{"blockhash not found", "expired"},
		{"signature verification failure", "signature"},
		{"transaction simulation failed", "Solana transaction failed"},
	}
	for _, tt := range tests {
		msg := GetUserFriendlyErrorMessage(FamilySolana, errors.New(tt.raw))
		assert.Contains(t, strings.ToLower(msg), strings.ToLower(tt.want), "raw=%q", tt.raw)
	}
}

// Chain names must match as whole words, including at the end of the
// message, and never inside an unrelated English word.
func TestFriendlyMessageChainWordMatching(t *testing.T) {
	suiMsg := GetUserFriendlyErrorMessage(FamilyEVM, errors.New("dry run failed on sui"))
	assert.Contains(t, suiMsg, "Sui")

	tonMsg := GetUserFriendlyErrorMessage(FamilyEVM, errors.New("seqno mismatch on ton"))
	assert.Contains(t, tonMsg, "TON")

	// "button" and "washington" contain "ton"; "suitable" contains "sui".
	plain := GetUserFriendlyErrorMessage(FamilyEVM, errors.New("no suitable button in washington"))
	assert.NotContains(t, plain, "TON")
	assert.NotContains(t, plain, "Sui")
}

func TestFriendlyMessageTruncatesLongUnknown(t *testing.T) {
	long := errors.New(strings.Repeat("x", 300))
	msg := GetUserFriendlyErrorMessage(FamilyEVM, long)
	assert.Equal(t, "Something went wrong. Please try again.", msg)

	short := errors.New("odd failure")
	assert.Equal(t, "Something went wrong: odd failure", GetUserFriendlyErrorMessage(FamilyEVM, short))
}

func TestTradeErrorWrapping(t *testing.T) {
	cause := errors.New("no route found")
	te := NewTradeError(FamilyEVM, cause)

	assert.Equal(t, ErrKindInsufficientLiquidity, te.Kind)
	assert.ErrorIs(t, te, cause)
	assert.NotEmpty(t, te.Message)
}
