package lifecycle

import (
	"fmt"

	"foodsaver/pkg/types"
)

// Outcome tags every lifecycle operation so callers can tell "you had no
// right to do this" apart from success instead of a silent no-op.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomePreconditionFailed Outcome = "precondition_failed"
	OutcomeNotFound           Outcome = "not_found"
)

// Result carries the outcome of a lifecycle operation, a human-readable
// message for the presentation layer, and the updated entities when the
// operation succeeded.
type Result struct {
	Outcome  Outcome
	Message  string
	Donation *types.Donation
	Pickup   *types.Pickup
}

func (r *Result) OK() bool {
	return r.Outcome == OutcomeOK
}

func resultOK(message string, donation *types.Donation, pickup *types.Pickup) *Result {
	return &Result{Outcome: OutcomeOK, Message: message, Donation: donation, Pickup: pickup}
}

func resultFailed(message string) *Result {
	return &Result{Outcome: OutcomePreconditionFailed, Message: message}
}

func resultNotFound(message string) *Result {
	return &Result{Outcome: OutcomeNotFound, Message: message}
}

// InvalidInputError reports malformed donation input, keyed by field name.
type InvalidInputError struct {
	Fields map[string]string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid donation input: %d field(s) rejected", len(e.Fields))
}
