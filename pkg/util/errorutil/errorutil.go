package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/locate-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewTooManyRequests(message string) error {
	return NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts lifecycle and store errors to a DomainError.
// Anything unrecognized becomes a 500.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		gaps := transitionErr.Gaps
		if gaps == nil {
			gaps = []domain.ValidationGap{}
		}
		details := map[string]any{
			"guard":  transitionErr.Guard,
			"status": transitionErr.Status,
			"event":  transitionErr.Event,
			"gaps":   gaps,
		}
		return &DomainError{
			Code:       "TRANSITION_REJECTED",
			Message:    transitionErr.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    details,
			Err:        err,
		}
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		actions := conflictErr.AllowedActions
		if actions == nil {
			actions = []string{}
		}
		return &DomainError{
			Code:       "CONFLICT",
			Message:    "ticket is locked",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"status": conflictErr.Status, "allowed_actions": actions},
			Err:        err,
		}
	}

	var rejection *domain.InputRejection
	if errors.As(err, &rejection) {
		return &DomainError{
			Code:       "INPUT_REJECTED",
			Message:    rejection.Error(),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"field": rejection.Field, "reason": rejection.Reason},
			Err:        err,
		}
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		de := NewNotFound(notFound.Resource, map[string]any{"id": notFound.ID}).(*DomainError)
		de.Err = err
		return de
	}

	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
