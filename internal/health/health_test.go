package health

import (
	"errors"
	"testing"

	"github.com/spigell/hiring-pipeline/internal/calllog"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		stats  calllog.Stats
		checks []Check
		want   Status
	}{
		{name: "no calls", stats: calllog.Stats{}, want: StatusHealthy},
		{name: "below threshold", stats: calllog.Stats{TotalCalls: 10, Failures: 4}, want: StatusHealthy},
		{name: "at threshold", stats: calllog.Stats{TotalCalls: 10, Failures: 5}, want: StatusDegraded},
		{name: "all failed", stats: calllog.Stats{TotalCalls: 3, Failures: 3}, want: StatusDegraded},
		{
			name:   "failed check",
			stats:  calllog.Stats{TotalCalls: 10},
			checks: []Check{NewCheck("model", nil), NewCheck("api key", errors.New("gemini api key is not configured"))},
			want:   StatusDegraded,
		},
		{
			name:   "passing checks",
			stats:  calllog.Stats{TotalCalls: 2, Failures: 0},
			checks: []Check{NewCheck("model", nil)},
			want:   StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.stats, nil, tt.checks)
			if got.Status != tt.want {
				t.Fatalf("expected status %q, got %q", tt.want, got.Status)
			}
			if got.FailureRate != tt.stats.FailureRate() {
				t.Fatalf("expected failure rate %v, got %v", tt.stats.FailureRate(), got.FailureRate)
			}
			if got.Recent == nil || got.Checks == nil {
				t.Fatalf("expected empty slices instead of nil")
			}
		})
	}
}

func TestEvaluateFromCallLog(t *testing.T) {
	log := calllog.New(3)
	msg := "gemini is unavailable"
	for i := 0; i < 10; i++ {
		entry := calllog.Entry{Endpoint: "generate-questions", ValidationPassed: true}
		if i < 4 {
			entry = calllog.Entry{Endpoint: "generate-questions", ErrorKind: "ProviderTransportError", Error: &msg}
		}
		log.Record(entry)
	}

	report := Evaluate(log.Stats(), log.Recent(20), nil)

	if report.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %q", report.Status)
	}
	if report.FailureRate != 0.4 {
		t.Fatalf("expected failure rate 0.4, got %v", report.FailureRate)
	}
	if len(report.Recent) != 3 {
		t.Fatalf("expected 3 recent entries, got %d", len(report.Recent))
	}
}

func TestNewCheck(t *testing.T) {
	c := NewCheck("api key", errors.New("missing"))
	if c.OK || c.Detail != "missing" {
		t.Fatalf("unexpected failed check: %+v", c)
	}
	if c := NewCheck("model", nil); !c.OK || c.Detail != "" {
		t.Fatalf("unexpected passing check: %+v", c)
	}
}
