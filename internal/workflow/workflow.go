// Package workflow holds the estimate lifecycle state machine: which status
// transitions are allowed and which business preconditions gate them. The
// package is pure — callers load the estimate fresh, ask for a verdict, and
// apply the result themselves.
package workflow

import (
	"fmt"

	"estimator/internal/model"

	"github.com/shopspring/decimal"
)

// AllowedTransitions maps each status to the set of statuses an operator may
// move it to. draft is the sole initial status; closed and converted are
// terminal. viewed is entered via the public link, not an operator action, so
// it has no inbound edge here.
var AllowedTransitions = map[string][]string{
	model.StatusDraft:              {model.StatusSent},
	model.StatusSent:               {model.StatusApproved, model.StatusRejected},
	model.StatusViewed:             {model.StatusApproved, model.StatusRejected},
	model.StatusApproved:           {model.StatusPendingPrepayment, model.StatusInProgress},
	model.StatusPendingPrepayment:  {model.StatusPrepaymentReceived, model.StatusRejected},
	model.StatusPrepaymentReceived: {model.StatusInProgress},
	model.StatusInProgress:         {model.StatusCompleted},
	model.StatusCompleted:          {model.StatusClosed},
	model.StatusClosed:             {},
	model.StatusRejected:           {model.StatusDraft},
	model.StatusConverted:          {},
}

// EditableStatuses are the statuses in which line items and commercial terms
// may still be mutated. Leaving this set locks the estimate; only the payment
// block stays mutable after that.
var EditableStatuses = []string{model.StatusDraft, model.StatusSent}

// TransitionError is a user-correctable validation failure: the operator
// changes input (or state) and resubmits, no retry semantics involved.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return e.Reason
}

// ValidateTransition checks whether the estimate may move to target. It
// returns nil when the transition is allowed, or a *TransitionError carrying
// an operator-readable reason. Permission checks live in the HTTP layer;
// business preconditions are enforced here regardless of permission.
func ValidateTransition(e *model.Estimate, target string) error {
	allowed, ok := AllowedTransitions[e.Status]
	if !ok {
		return &TransitionError{From: e.Status, To: target, Reason: fmt.Sprintf("unknown status %q", e.Status)}
	}

	found := false
	for _, s := range allowed {
		if s == target {
			found = true
			break
		}
	}
	if !found {
		return &TransitionError{From: e.Status, To: target,
			Reason: fmt.Sprintf("transition from %q to %q is not allowed", e.Status, target)}
	}

	switch target {
	case model.StatusInProgress:
		if e.DepositPct.GreaterThan(decimal.Zero) && !e.PrepaymentConfirmed {
			return &TransitionError{From: e.Status, To: target,
				Reason: "work cannot start before the prepayment is confirmed"}
		}
		if e.PaymentMethod == "" {
			return &TransitionError{From: e.Status, To: target,
				Reason: "set a payment method before starting work"}
		}
		if e.PaymentRecipient == "" {
			return &TransitionError{From: e.Status, To: target,
				Reason: "set a payment recipient before starting work"}
		}
	case model.StatusPrepaymentReceived:
		if e.PaymentMethod == "" {
			return &TransitionError{From: e.Status, To: target,
				Reason: "set a payment method to confirm the prepayment"}
		}
		if e.PaymentRecipient == "" {
			return &TransitionError{From: e.Status, To: target,
				Reason: "set a payment recipient to confirm the prepayment"}
		}
	}

	return nil
}

// AvailableTransitions returns the statuses reachable from the given one.
// Terminal statuses return an empty slice.
func AvailableTransitions(status string) []string {
	allowed := AllowedTransitions[status]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// Editable reports whether priced content may still be mutated in the given
// status.
func Editable(status string) bool {
	for _, s := range EditableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
