// Package health provides health checking for the service.
// A Reporter aggregates any number of sub-checks into a single status using a
// most-severe-wins rule (DOWN > DEGRADED > UP), so extending the service with
// real dependency checks requires no change to the HTTP surface.
package health

import (
	"context"
	"strings"
)

// Status is the coarse health of the process or of one sub-check
type Status string

const (
	StatusUp       Status = "UP"
	StatusDegraded Status = "DEGRADED"
	StatusDown     Status = "DOWN"
)

// severity orders statuses for aggregation; higher is worse
func (s Status) severity() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Result is the outcome of a single check. Reason is only meaningful for
// non-UP statuses.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Check is a single health probe
type Check interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

func (c *checkFunc) Name() string                     { return c.name }
func (c *checkFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

// NewCheck wraps a function as a named Check
func NewCheck(name string, fn func(ctx context.Context) Result) Check {
	return &checkFunc{name: name, fn: fn}
}

// Liveness returns the default process check. It reports UP unconditionally:
// if the process can answer, it is alive. Real deployments add dependency
// checks alongside it.
func Liveness() Check {
	return NewCheck("liveness", func(ctx context.Context) Result {
		return Result{Status: StatusUp}
	})
}

// Report is the aggregate outcome of all sub-checks
type Report struct {
	Status Status            `json:"status"`
	Reason string            `json:"reason,omitempty"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// Reporter runs a fixed set of sub-checks and aggregates their results
type Reporter struct {
	checks []Check
}

// NewReporter creates a reporter over the given checks. The check set is
// fixed at construction; a reporter with no checks reports UP.
func NewReporter(checks ...Check) *Reporter {
	return &Reporter{checks: checks}
}

// Check runs all sub-checks and returns the worst status among them.
// Reasons from non-UP checks are joined into the aggregate reason.
func (r *Reporter) Check(ctx context.Context) Report {
	report := Report{
		Status: StatusUp,
		Checks: make(map[string]Result, len(r.checks)),
	}

	var reasons []string
	for _, c := range r.checks {
		result := c.Check(ctx)
		report.Checks[c.Name()] = result

		if result.Status.severity() > report.Status.severity() {
			report.Status = result.Status
		}
		if result.Status != StatusUp && result.Reason != "" {
			reasons = append(reasons, c.Name()+": "+result.Reason)
		}
	}

	report.Reason = strings.Join(reasons, "; ")
	return report
}
