package calllog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *recordingSink) Observe(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func entry(endpoint string, err error) Entry {
	return Entry{
		Endpoint:         endpoint,
		Model:            "gemini-2.5-pro",
		ValidationPassed: err == nil,
		Error:            ErrorMessage(err),
	}
}

func TestRecordUpdatesStats(t *testing.T) {
	log := New(10)

	log.Record(entry("generate-questions", nil))
	log.Record(entry("generate-questions", errors.New("timeout")))
	coerced := entry("generate-stages", nil)
	coerced.CoercionApplied = true
	log.Record(coerced)

	stats := log.Stats()
	assert.EqualValues(t, 3, stats.TotalCalls)
	assert.EqualValues(t, 1, stats.Failures)
	assert.EqualValues(t, 1, stats.Coerced)
	assert.Equal(t, OperationStats{Calls: 2, Failures: 1}, stats.ByOperation["generate-questions"])
	assert.Equal(t, OperationStats{Calls: 1, Coerced: 1}, stats.ByOperation["generate-stages"])
	assert.InDelta(t, 1.0/3.0, stats.FailureRate(), 1e-9)
}

func TestStatsSnapshotIsIsolated(t *testing.T) {
	log := New(2)
	log.Record(entry("analyze-coverage", nil))

	snapshot := log.Stats()
	snapshot.ByOperation["analyze-coverage"] = OperationStats{Calls: 100}

	assert.EqualValues(t, 1, log.Stats().ByOperation["analyze-coverage"].Calls)
}

func TestRecentOrderAndEviction(t *testing.T) {
	log := New(3)
	for i := range 5 {
		log.Record(entry(fmt.Sprintf("op-%d", i), nil))
	}

	recent := log.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "op-4", recent[0].Endpoint)
	assert.Equal(t, "op-3", recent[1].Endpoint)
	assert.Equal(t, "op-2", recent[2].Endpoint)

	assert.Len(t, log.Recent(2), 2)
	assert.Empty(t, log.Recent(0))
	assert.Empty(t, log.Recent(-1))

	// Counters keep every call even though the buffer evicted two entries.
	assert.EqualValues(t, 5, log.Stats().TotalCalls)
}

func TestRecentBeforeBufferFills(t *testing.T) {
	log := New(5)
	log.Record(entry("a", nil))
	log.Record(entry("b", nil))

	recent := log.Recent(5)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Endpoint)
	assert.Equal(t, "a", recent[1].Endpoint)
}

func TestRecordFillsIdentityAndNotifiesSinks(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := &recordingSink{}
	log := New(1, WithClock(func() time.Time { return fixed }), WithSinks(sink, nil))

	stored := log.Record(entry("generate-job-description", nil))

	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, fixed, stored.Timestamp)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, stored, sink.entries[0])
	assert.Equal(t, fixed, log.Stats().Since)
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestEntryJSONUsesNullError(t *testing.T) {
	payload, err := json.Marshal(Entry{Endpoint: "generate-questions"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"error":null`)

	payload, err = json.Marshal(entry("generate-questions", errors.New("boom")))
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"error":"boom"`)
}

func TestConcurrentRecordKeepsCountersConsistent(t *testing.T) {
	log := New(16)

	var wg sync.WaitGroup
	const workers, perWorker = 8, 50
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				var err error
				if (w+i)%4 == 0 {
					err = errors.New("provider unavailable")
				}
				log.Record(entry("generate-questions", err))
				stats := log.Stats()
				if stats.Failures > stats.TotalCalls {
					t.Errorf("failures %d exceed total %d", stats.Failures, stats.TotalCalls)
				}
			}
		}()
	}
	wg.Wait()

	stats := log.Stats()
	assert.EqualValues(t, workers*perWorker, stats.TotalCalls)
	assert.Len(t, log.Recent(100), 16)
	assert.EqualValues(t, stats.TotalCalls, stats.ByOperation["generate-questions"].Calls)
}
