// Package calllog records the outcome of every completed pipeline call in a
// bounded ring buffer and keeps running aggregate counters over all calls
// recorded during the life of the process.
package calllog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the ring buffer size used when none is configured.
const DefaultCapacity = 500

// Entry is one immutable record of a completed call attempt.
type Entry struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Endpoint         string    `json:"endpoint"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model"`
	LatencyMs        int64     `json:"latencyMs"`
	InputTokens      int       `json:"inputTokens"`
	OutputTokens     int       `json:"outputTokens"`
	StopReason       string    `json:"stopReason"`
	ValidationPassed bool      `json:"validationPassed"`
	CoercionApplied  bool      `json:"coercionApplied"`
	ErrorKind        string    `json:"errorKind,omitempty"`
	Error            *string   `json:"error"`
}

// Failed reports whether the call ended in an error.
func (e Entry) Failed() bool { return e.Error != nil }

// OperationStats aggregates calls for a single endpoint.
type OperationStats struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
	Coerced  int64 `json:"coerced"`
}

// Stats is the running aggregate over every entry ever recorded.
type Stats struct {
	TotalCalls  int64                     `json:"totalCalls"`
	Failures    int64                     `json:"failures"`
	Coerced     int64                     `json:"coerced"`
	ByOperation map[string]OperationStats `json:"byOperation"`
	Since       time.Time                 `json:"since"`
}

// FailureRate returns failures/totalCalls, or zero before the first call.
func (s Stats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.TotalCalls)
}

// Sink observes entries after they are recorded.
type Sink interface {
	Observe(Entry)
}

// Logger is the process-wide call log. Construct one with New and share it.
type Logger struct {
	mu       sync.RWMutex
	entries  []Entry
	next     int
	size     int
	stats    Stats
	sinks    []Sink
	now      func() time.Time
	newID    func() string
	capacity int
}

// Option configures a Logger.
type Option func(*Logger)

// WithSinks attaches sinks that observe every recorded entry.
func WithSinks(sinks ...Sink) Option {
	return func(l *Logger) {
		for _, s := range sinks {
			if s != nil {
				l.sinks = append(l.sinks, s)
			}
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Logger holding at most capacity recent entries.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	l := &Logger{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	l.stats = Stats{
		ByOperation: make(map[string]OperationStats),
		Since:       l.now(),
	}
	return l
}

// Capacity returns the ring buffer size.
func (l *Logger) Capacity() int { return l.capacity }

// Record appends entry, evicting the oldest one when the buffer is full, and
// updates the counters in the same critical section. Missing ID and timestamp
// are filled in. The stored entry is returned.
func (l *Logger) Record(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = l.newID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	if entry.Error != nil {
		msg := *entry.Error
		entry.Error = &msg
	}

	l.mu.Lock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % l.capacity
	if l.size < l.capacity {
		l.size++
	}

	op := l.stats.ByOperation[entry.Endpoint]
	op.Calls++
	l.stats.TotalCalls++
	if entry.Failed() {
		op.Failures++
		l.stats.Failures++
	}
	if entry.CoercionApplied {
		op.Coerced++
		l.stats.Coerced++
	}
	l.stats.ByOperation[entry.Endpoint] = op
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		s.Observe(entry)
	}

	return entry
}

// Stats returns a snapshot of the aggregate counters.
func (l *Logger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := l.stats
	snapshot.ByOperation = make(map[string]OperationStats, len(l.stats.ByOperation))
	for name, op := range l.stats.ByOperation {
		snapshot.ByOperation[name] = op
	}
	return snapshot
}

// Recent returns up to n of the most recent entries, most recent first.
// n is clamped to the buffer capacity.
func (l *Logger) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.size {
		n = l.size
	}
	if n <= 0 {
		return []Entry{}
	}

	out := make([]Entry, 0, n)
	idx := l.next
	for range n {
		idx = (idx - 1 + l.capacity) % l.capacity
		out = append(out, l.entries[idx])
	}
	return out
}

// ErrorMessage converts an error into the nullable form stored on entries.
func ErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
