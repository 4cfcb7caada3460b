package domain

import "fmt"

// InvalidTransitionError reports an illegal status change, identifying the
// current and requested state.
type InvalidTransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

// transitions is the complete edge set of the lifecycle state machine.
// paid and cancelled are terminal; overdue is derived and never a target or
// source here; draft is never re-entered after creation.
var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:  {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:   {InvoiceStatusViewed, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusViewed: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// CanTransition validates a status change against the state machine. Every
// status write in the system must pass through this check; there is no
// free-form status update path.
func CanTransition(from, to InvoiceStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// TransitionSources returns the statuses from which to is reachable, used by
// repositories as the guard set of conditional status updates.
func TransitionSources(to InvoiceStatus) []InvoiceStatus {
	var sources []InvoiceStatus
	for from, targets := range transitions {
		for _, t := range targets {
			if t == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}
