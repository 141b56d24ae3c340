package domain

import (
	"fmt"
	"strings"
)

// Guard names the transition precondition that failed.
type Guard string

const (
	GuardInvalidTransition  Guard = "invalid_transition"
	GuardRequiredGaps       Guard = "required_gaps_outstanding"
	GuardStartDateUndefined Guard = "start_date_undefined"
	GuardStartDateInPast    Guard = "start_date_in_past"
)

// TransitionError reports a rejected status transition.
type TransitionError struct {
	Guard  Guard
	Status TicketStatus
	Event  string
	Gaps   []ValidationGap
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s rejected in status %s: %s", e.Event, e.Status, e.Guard)
}

// ConflictError reports a mutation attempted on a frozen ticket.
type ConflictError struct {
	Status         TicketStatus
	AllowedActions []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ticket is locked in status %s (allowed: %s)", e.Status, strings.Join(e.AllowedActions, ", "))
}

// InputRejection reports input that cannot be merged at all.
type InputRejection struct {
	Field  FieldName
	Reason string
}

func (e *InputRejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Field, e.Reason)
}

// NotFoundError reports an id the store could not resolve.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
