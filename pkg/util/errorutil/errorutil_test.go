package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/locate-service/internal/domain"
)

func TestToDomainError(t *testing.T) {
	gap := domain.ValidationGap{Field: domain.FieldPhone, Problem: domain.ProblemFieldMissing, Severity: domain.SeverityRequired}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"transition", &domain.TransitionError{Guard: domain.GuardRequiredGaps, Status: domain.TicketStatusDraft, Event: "confirm", Gaps: []domain.ValidationGap{gap}}, http.StatusUnprocessableEntity, "TRANSITION_REJECTED"},
		{"conflict", &domain.ConflictError{Status: domain.TicketStatusReady, AllowedActions: []string{"cancel"}}, http.StatusConflict, "CONFLICT"},
		{"input", &domain.InputRejection{Field: domain.FieldGPS, Reason: "latitude out of range"}, http.StatusBadRequest, "INPUT_REJECTED"},
		{"not found", &domain.NotFoundError{Resource: "ticket", ID: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped", fmt.Errorf("save: %w", &domain.NotFoundError{Resource: "ticket", ID: "x"}), http.StatusNotFound, "NOT_FOUND"},
		{"passthrough", NewUnauthorized("missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.status, de.HTTPStatus)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestToDomainError_Details(t *testing.T) {
	de := ToDomainError(&domain.TransitionError{Guard: domain.GuardStartDateInPast, Status: domain.TicketStatusValidatedPendingConfirm, Event: "confirm"})
	assert.Equal(t, domain.GuardStartDateInPast, de.Details["guard"])
	assert.Equal(t, []domain.ValidationGap{}, de.Details["gaps"])

	de = ToDomainError(&domain.ConflictError{Status: domain.TicketStatusSubmitted})
	assert.Equal(t, []string{}, de.Details["allowed_actions"])

	assert.Nil(t, ToDomainError(nil))
}
