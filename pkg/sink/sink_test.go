package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSink struct {
	calls atomic.Int64
	err   error
}

func (c *countingSink) Publish(ctx context.Context, event SwapCompletedEvent) error {
	c.calls.Add(1)
	return c.err
}

func testEvent(hash string) SwapCompletedEvent {
	return SwapCompletedEvent{
		TxHash:        hash,
		WalletAddress: "0xabc",
		ChainID:       "ethereum",
		TokenInSymbol: "USDC",
		TokenInAmount: decimal.NewFromInt(100),
		Status:        "completed",
	}
}

func TestEmitAtMostOncePerHash(t *testing.T) {
	s := &countingSink{}
	d := NewDispatcher(zap.NewNop(), s)

	require.NoError(t, d.Emit(context.Background(), testEvent("0xh1")))
	require.NoError(t, d.Emit(context.Background(), testEvent("0xh1")))
	require.NoError(t, d.Emit(context.Background(), testEvent("0xh1")))

	assert.EqualValues(t, 1, s.calls.Load())
	assert.True(t, d.Emitted("0xh1"))
}

func TestEmitDistinctHashes(t *testing.T) {
	s := &countingSink{}
	d := NewDispatcher(zap.NewNop(), s)

	require.NoError(t, d.Emit(context.Background(), testEvent("0xh1")))
	require.NoError(t, d.Emit(context.Background(), testEvent("0xh2")))
	assert.EqualValues(t, 2, s.calls.Load())
}

func TestEmitFailureAllowsRetry(t *testing.T) {
	s := &countingSink{err: errors.New("sink down")}
	d := NewDispatcher(zap.NewNop(), s)

	assert.Error(t, d.Emit(context.Background(), testEvent("0xh1")))
	assert.False(t, d.Emitted("0xh1"))

	s.err = nil
	require.NoError(t, d.Emit(context.Background(), testEvent("0xh1")))
	assert.True(t, d.Emitted("0xh1"))
	assert.EqualValues(t, 2, s.calls.Load())
}

func TestEmitConcurrentDuplicates(t *testing.T) {
	s := &countingSink{}
	d := NewDispatcher(zap.NewNop(), s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Emit(context.Background(), testEvent("0xdup"))
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, s.calls.Load())
}

func TestWebhookSinkPublish(t *testing.T) {
	var got webhookEnvelope
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookSink(srv.URL, "s3cret")
	require.NoError(t, w.Publish(context.Background(), testEvent("0xh9")))

	assert.Equal(t, "swap.completed", got.Event)
	assert.Equal(t, "0xh9", got.Data.TxHash)
	assert.Equal(t, "Bearer s3cret", auth)
}

func TestWebhookSinkNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhookSink(srv.URL, "")
	assert.Error(t, w.Publish(context.Background(), testEvent("0xh9")))
}
