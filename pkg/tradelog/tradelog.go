// Package tradelog keeps a bounded, in-memory diagnostic trail of quote
// and swap activity. The buffer is FIFO: at capacity, the oldest entry is
// evicted to make room for the newest.
package tradelog

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniswap/pkg/types"
)

// DefaultCapacity bounds the ring buffer.
const DefaultCapacity = 500

// Severity is the log level of one entry.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Entry is one append-only diagnostic record.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Severity  Severity          `json:"severity"`
	Family    types.ChainFamily `json:"chain_type"`
	Action    string            `json:"action"`
	Message   string            `json:"message"`
	Payload   map[string]any    `json:"payload,omitempty"`
}

// Log is an explicitly constructed, injectable trade debug log. Create
// one per process (or per test) and pass it down; there is no package
// singleton.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// New creates a log bounded at capacity entries; non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Record appends an entry, evicting the oldest when at capacity. The
// append and eviction are one atomic step, so no entry is lost or
// duplicated under concurrent use. Record never fails.
func (l *Log) Record(severity Severity, family types.ChainFamily, action, message string, payload map[string]any) {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Severity:  severity,
		Family:    family,
		Action:    action,
		Message:   message,
		Payload:   payload,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.capacity {
		overflow := len(l.entries) - l.capacity + 1
		l.entries = append(l.entries[:0], l.entries[overflow:]...)
	}
	l.entries = append(l.entries, e)
}

// Info records an info-severity entry.
func (l *Log) Info(family types.ChainFamily, action, message string, payload map[string]any) {
	l.Record(SeverityInfo, family, action, message, payload)
}

// Error records an error-severity entry.
func (l *Log) Error(family types.ChainFamily, action, message string, payload map[string]any) {
	l.Record(SeverityError, family, action, message, payload)
}

// Entries returns a snapshot in insertion order, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Report is the exported diagnostic format.
type Report struct {
	Timestamp  time.Time `json:"timestamp"`
	LogsCount  int       `json:"logsCount"`
	ErrorCount int       `json:"errorCount"`
	Logs       []Entry   `json:"logs"`
}

// Export serializes the buffer to the flat JSON report consumed by
// support tooling.
func (l *Log) Export() ([]byte, error) {
	entries := l.Entries()
	errorCount := 0
	for _, e := range entries {
		if e.Severity == SeverityError {
			errorCount++
		}
	}
	return json.MarshalIndent(Report{
		Timestamp:  time.Now(),
		LogsCount:  len(entries),
		ErrorCount: errorCount,
		Logs:       entries,
	}, "", "  ")
}
