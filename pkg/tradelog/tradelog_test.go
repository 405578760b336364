package tradelog

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniswap/pkg/types"
)

func TestEvictsOldestAtCapacity(t *testing.T) {
	l := New(3)
	for i := 0; i < 3; i++ {
		l.Info(types.FamilyEVM, "quote", fmt.Sprintf("msg-%d", i), nil)
	}
	require.Equal(t, 3, l.Len())

	// One past capacity evicts exactly the oldest, preserving order.
	l.Info(types.FamilyEVM, "quote", "msg-3", nil)
	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-1", entries[0].Message)
	assert.Equal(t, "msg-2", entries[1].Message)
	assert.Equal(t, "msg-3", entries[2].Message)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	const n = 200
	l := New(n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info(types.FamilySolana, "swap", fmt.Sprintf("msg-%d", i), nil)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, l.Len())
}

func TestExportReport(t *testing.T) {
	l := New(10)
	l.Info(types.FamilyEVM, "quote", "fetched", map[string]any{"pair": "ETH/USDC"})
	l.Error(types.FamilySolana, "swap", "signature failed", nil)
	l.Error(types.FamilyEVM, "swap", "reverted", nil)

	data, err := l.Export()
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 3, report.LogsCount)
	assert.Equal(t, 2, report.ErrorCount)
	require.Len(t, report.Logs, 3)
	assert.Equal(t, "fetched", report.Logs[0].Message)
	assert.NotEmpty(t, report.Logs[0].ID)
	assert.False(t, report.Timestamp.IsZero())
}

func TestClear(t *testing.T) {
	l := New(5)
	l.Info(types.FamilyTON, "quote", "x", nil)
	l.Clear()
	assert.Equal(t, 0, l.Len())
}
