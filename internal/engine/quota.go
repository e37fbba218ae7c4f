package engine

import "fmt"

// QuotaEnforcer counts recompute steps of one flush and enforces a limit.
//
// One step is one (compute node, line) evaluation. A well-formed forest
// settles in a number of steps proportional to its size; exceeding the
// budget means derived fields keep invalidating each other.
//
// The cycle guard rejects option links that would close a loop before any
// recompute runs; the quota catches what static checks cannot see. A fresh
// enforcer is created per transaction.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(node string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Node:  node,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// StepsExceededError is returned when a flush exceeds the step quota.
// The mutating operation that triggered the flush is rolled back.
type StepsExceededError struct {
	Node  string // compute node being evaluated when the budget ran out
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("recompute exceeded max steps quota at %s: %d steps > %d limit",
		e.Node, e.Steps, e.Limit)
}
