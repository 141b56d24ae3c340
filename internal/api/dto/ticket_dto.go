package dto

import (
	"time"

	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/geometry"
)

// EnrichmentRequest carries a geocoding/parcel result resolved outside
// the service.
type EnrichmentRequest struct {
	Failed      bool               `json:"failed"`
	Error       string             `json:"error"`
	Point       *domain.Coordinate `json:"point"`
	Confidence  float64            `json:"confidence"`
	Assumptions []string           `json:"assumptions"`
	Warnings    []string           `json:"warnings"`
	Parcel      *domain.Parcel     `json:"parcel"`
}

// Result converts the request into an adapter result.
func (r EnrichmentRequest) Result() geometry.Result {
	return geometry.Result{
		Failed:      r.Failed,
		Error:       r.Error,
		Point:       r.Point,
		Confidence:  r.Confidence,
		Assumptions: r.Assumptions,
		Warnings:    r.Warnings,
		Parcel:      r.Parcel,
	}
}

// ResponsesInRequest payload. Omitting the time means now.
type ResponsesInRequest struct {
	PositiveResponseAt *time.Time `json:"positive_response_at"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// TicketListQuery captures list filters.
type TicketListQuery struct {
	Status   *domain.TicketStatus
	Page     int
	PageSize int
}

// GapCounts tallies gaps by severity.
type GapCounts struct {
	Required    int `json:"required"`
	Recommended int `json:"recommended"`
	Warning     int `json:"warning"`
}

// ValidationResponse is the result of validating a snapshot.
type ValidationResponse struct {
	Gaps            []domain.ValidationGap `json:"gaps"`
	Counts          GapCounts              `json:"counts"`
	ReadyForConfirm bool                   `json:"ready_for_confirm"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string              `json:"id"`
	Status              domain.TicketStatus `json:"status"`
	DisplayStatus       domain.TicketStatus `json:"display_status"`
	Company             string              `json:"company,omitempty"`
	County              string              `json:"county,omitempty"`
	City                string              `json:"city,omitempty"`
	RequiredGaps        int                 `json:"required_gaps"`
	EarliestLawfulStart *time.Time          `json:"earliest_lawful_start,omitempty"`
	ExpiresAt           *time.Time          `json:"expires_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                  string                 `json:"id"`
	Status              domain.TicketStatus    `json:"status"`
	DisplayStatus       domain.TicketStatus    `json:"display_status"`
	Fields              domain.Fields          `json:"fields"`
	Gaps                []domain.ValidationGap `json:"gaps"`
	GapCounts           GapCounts              `json:"gap_counts"`
	AllowedActions      []string               `json:"allowed_actions"`
	RequestedAt         time.Time              `json:"requested_at"`
	EarliestLawfulStart *time.Time             `json:"earliest_lawful_start,omitempty"`
	DaysUntilStart      *int                   `json:"days_until_start,omitempty"`
	SubmittedAt         *time.Time             `json:"submitted_at,omitempty"`
	PositiveResponseAt  *time.Time             `json:"positive_response_at,omitempty"`
	ExpiresAt           *time.Time             `json:"expires_at,omitempty"`
	MarkingValidUntil   *time.Time             `json:"marking_valid_until,omitempty"`
	DaysUntilExpiration *int                   `json:"days_until_expiration,omitempty"`
	CancelledAt         *time.Time             `json:"cancelled_at,omitempty"`
	PacketDigest        string                 `json:"packet_digest,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Pagination describes a list page.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// CountGaps tallies gaps by severity.
func CountGaps(gaps []domain.ValidationGap) GapCounts {
	counts := domain.CountBySeverity(gaps)
	return GapCounts{
		Required:    counts[domain.SeverityRequired],
		Recommended: counts[domain.SeverityRecommended],
		Warning:     counts[domain.SeverityWarning],
	}
}
