package swap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omniswap/pkg/client"
	"omniswap/pkg/retry"
	"omniswap/pkg/signer"
	"omniswap/pkg/sink"
	"omniswap/pkg/tradelog"
	"omniswap/pkg/types"
)

var (
	evmChain = types.Chain{ID: "ethereum", Index: 1, Family: types.FamilyEVM,
		NativeToken: types.Token{Symbol: "ETH", Decimals: 18}}
	solChain = types.Chain{ID: "solana", Index: 501, Family: types.FamilySolana,
		NativeToken: types.Token{Symbol: "SOL", Decimals: 9}}

	usdc = types.Token{Address: "0xa0b8", Symbol: "USDC", Decimals: 6, ChainID: "ethereum"}
	weth = types.Token{Address: "0xc02a", Symbol: "WETH", Decimals: 18, ChainID: "ethereum"}
)

type fakeBuilder struct {
	swapCalls    int
	approveCalls int
	swapErr      error
}

func (f *fakeBuilder) GetSwapTransaction(ctx context.Context, req types.SwapRequest, amountIn decimal.Decimal) (*client.TxPayload, error) {
	f.swapCalls++
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	return &client.TxPayload{To: "0xrouter", Data: "0xdead"}, nil
}

func (f *fakeBuilder) GetApprovalTransaction(ctx context.Context, chain types.Chain, tokenAddr string, amt decimal.Decimal) (*client.TxPayload, error) {
	f.approveCalls++
	return &client.TxPayload{To: tokenAddr, Data: "0xa9059"}, nil
}

type fakeSigner struct {
	family    types.ChainFamily
	allowance string

	mu       sync.Mutex
	sent     []string
	sendErr  error
	statuses map[string][]types.TxReceiptStatus // consumed per poll
	nextTx   int
}

func (f *fakeSigner) Family() types.ChainFamily { return f.family }
func (f *fakeSigner) Address() string           { return "0xwallet" }

func (f *fakeSigner) SignAndSend(ctx context.Context, tx *client.TxPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextTx++
	hash := "0xtx" + string(rune('0'+f.nextTx))
	f.sent = append(f.sent, hash)
	return hash, nil
}

func (f *fakeSigner) SignMessage(ctx context.Context, payload []byte) ([]byte, error) {
	return []byte("sig"), nil
}

func (f *fakeSigner) TxStatus(ctx context.Context, txHash string) (types.TxReceiptStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.statuses[txHash]
	if len(queue) == 0 {
		return types.TxConfirmed, nil
	}
	st := queue[0]
	if len(queue) > 1 {
		f.statuses[txHash] = queue[1:]
	}
	return st, nil
}

func (f *fakeSigner) Allowance(ctx context.Context, tokenAddr, spender string) (string, error) {
	if f.allowance == "" {
		return "0", nil
	}
	return f.allowance, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []sink.SwapCompletedEvent
}

func (c *captureEmitter) Emit(ctx context.Context, event sink.SwapCompletedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func fastConfig() Config {
	return Config{
		SpenderAddresses: map[string]string{"ethereum": "0xrouter"},
		ConfirmAttempts:  5,
		ConfirmInterval:  time.Millisecond,
		Retry:            retry.Config{MaxRetries: 1, Delay: time.Millisecond, BackoffMultiplier: 1},
	}
}

func newTestCoordinator(t *testing.T, builder *fakeBuilder, sgn *fakeSigner) (*Coordinator, *captureEmitter, *tradelog.Log) {
	t.Helper()
	reg := signer.NewRegistry()
	reg.Register(sgn)
	emitter := &captureEmitter{}
	debugLog := tradelog.New(50)
	c := NewCoordinator(builder, nil, reg, nil, emitter, debugLog, zap.NewNop(), fastConfig())
	return c, emitter, debugLog
}

func evmQuote(from, to types.Token) *types.Quote {
	return &types.Quote{
		Request: types.SwapRequest{
			Chain:         evmChain,
			FromToken:     from,
			ToToken:       to,
			Amount:        "100",
			SlippagePct:   decimal.NewFromFloat(0.5),
			WalletAddress: "0xwallet",
		},
		AmountIn:       decimal.NewFromInt(100_000_000),
		AmountOut:      decimal.RequireFromString("40000000000000000"),
		AmountOutHuman: decimal.RequireFromString("0.04"),
	}
}

func TestExecuteERC20SwapWithApproval(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "0"}
	c, emitter, debugLog := newTestCoordinator(t, builder, sgn)

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, builder.approveCalls)
	assert.Equal(t, 1, builder.swapCalls)
	assert.NotEmpty(t, res.ApprovalTxHash)
	assert.NotEmpty(t, res.TxHash)
	assert.NotEqual(t, res.ApprovalTxHash, res.TxHash)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, res.TxHash, emitter.events[0].TxHash)
	assert.Equal(t, "USDC", emitter.events[0].TokenInSymbol)
	assert.True(t, debugLog.Len() >= 2) // approve + completion entries
}

func TestExecuteSkipsApprovalWhenAllowanceSufficient(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	c, _, _ := newTestCoordinator(t, builder, sgn)

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Zero(t, builder.approveCalls)
	assert.Empty(t, res.ApprovalTxHash)
}

func TestExecuteSkipsApprovalForNativeAsset(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "0"}
	c, _, _ := newTestCoordinator(t, builder, sgn)

	eth := types.Token{Address: types.NativeTokenAddress, Symbol: "ETH", Decimals: 18}
	res, err := c.Execute(context.Background(), evmQuote(eth, usdc))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Zero(t, builder.approveCalls)
}

func TestExecuteSkipsApprovalOnSolana(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilySolana, allowance: "0"}
	reg := signer.NewRegistry()
	reg.Register(sgn)
	c := NewCoordinator(builder, nil, reg, nil, nil, tradelog.New(10), zap.NewNop(), fastConfig())

	q := evmQuote(usdc, weth)
	q.Request.Chain = solChain
	res, err := c.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Zero(t, builder.approveCalls)
}

func TestExecuteRevertIsClassifiedFailure(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	sgn.statuses = map[string][]types.TxReceiptStatus{
		"0xtx1": {types.TxPending, types.TxReverted},
	}
	c, emitter, debugLog := newTestCoordinator(t, builder, sgn)

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.Error(t, err)

	assert.Equal(t, StateFailed, res.State)
	require.NotNil(t, res.Err)
	assert.Equal(t, types.ErrKindChainExecution, res.Err.Kind)
	assert.Empty(t, emitter.events, "failed swap must not emit a webhook")

	entries := debugLog.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, tradelog.SeverityError, entries[len(entries)-1].Severity)
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	sgn.statuses = map[string][]types.TxReceiptStatus{
		"0xtx1": {types.TxPending}, // last element repeats forever
	}
	c, emitter, _ := newTestCoordinator(t, builder, sgn)

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, err.Error(), "timed out")
	assert.Empty(t, emitter.events)
}

func TestExecuteProviderErrorSurfacesTaxonomy(t *testing.T) {
	builder := &fakeBuilder{swapErr: errors.New("insufficient liquidity for this pair")}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	c, _, _ := newTestCoordinator(t, builder, sgn)

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, types.ErrKindInsufficientLiquidity, res.Err.Kind)
	assert.Empty(t, res.TxHash, "nothing was submitted")
}

func TestExecuteNoSignerForFamily(t *testing.T) {
	builder := &fakeBuilder{}
	reg := signer.NewRegistry() // empty
	c := NewCoordinator(builder, nil, reg, nil, nil, tradelog.New(10), zap.NewNop(), fastConfig())

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, builder.swapCalls)
}

func TestExecuteCancellationStopsPolling(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	sgn.statuses = map[string][]types.TxReceiptStatus{
		"0xtx1": {types.TxPending},
	}
	cfg := fastConfig()
	cfg.ConfirmAttempts = 1000
	cfg.ConfirmInterval = 5 * time.Millisecond
	reg := signer.NewRegistry()
	reg.Register(sgn)
	c := NewCoordinator(builder, nil, reg, nil, nil, tradelog.New(10), zap.NewNop(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Result, 1)
	go func() {
		res, _ := c.Execute(ctx, evmQuote(usdc, weth))
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, StateFailed, res.State)
	case <-time.After(time.Second):
		t.Fatal("execution did not stop after cancellation")
	}
}

func TestDuplicatePollDoesNotReEmit(t *testing.T) {
	builder := &fakeBuilder{}
	sgn := &fakeSigner{family: types.FamilyEVM, allowance: "999000000000"}
	reg := signer.NewRegistry()
	reg.Register(sgn)
	dispatcher := sink.NewDispatcher(zap.NewNop(), &countingTestSink{})
	c := NewCoordinator(builder, nil, reg, nil, dispatcher, tradelog.New(10), zap.NewNop(), fastConfig())

	res, err := c.Execute(context.Background(), evmQuote(usdc, weth))
	require.NoError(t, err)

	// A duplicate report of the same hash is dropped by the dispatcher.
	require.NoError(t, dispatcher.Emit(context.Background(), sink.SwapCompletedEvent{TxHash: res.TxHash}))
	assert.True(t, dispatcher.Emitted(res.TxHash))
}

type countingTestSink struct{ calls int }

func (c *countingTestSink) Publish(ctx context.Context, event sink.SwapCompletedEvent) error {
	c.calls++
	return nil
}
