// Package health summarises the call log and configuration checks into a
// single status for the dashboard.
package health

import (
	"github.com/spigell/hiring-pipeline/internal/calllog"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// DegradedFailureRate is the failure share at which the service reports degraded.
const DegradedFailureRate = 0.5

// Check is the outcome of one configuration check.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// NewCheck builds a check that passes when err is nil.
func NewCheck(name string, err error) Check {
	if err != nil {
		return Check{Name: name, Detail: err.Error()}
	}
	return Check{Name: name, OK: true}
}

type Report struct {
	Status      Status          `json:"status"`
	FailureRate float64         `json:"failureRate"`
	Stats       calllog.Stats   `json:"stats"`
	Checks      []Check         `json:"checks"`
	Recent      []calllog.Entry `json:"recent"`
}

// Evaluate reports degraded when any check failed or when at least half of
// all recorded calls failed. A log without calls is healthy.
func Evaluate(stats calllog.Stats, recent []calllog.Entry, checks []Check) Report {
	report := Report{
		Status:      StatusHealthy,
		FailureRate: stats.FailureRate(),
		Stats:       stats,
		Checks:      checks,
		Recent:      recent,
	}
	if report.Checks == nil {
		report.Checks = []Check{}
	}
	if report.Recent == nil {
		report.Recent = []calllog.Entry{}
	}

	if stats.TotalCalls > 0 && report.FailureRate >= DegradedFailureRate {
		report.Status = StatusDegraded
	}
	for _, c := range checks {
		if !c.OK {
			report.Status = StatusDegraded
		}
	}

	return report
}
