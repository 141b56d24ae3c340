package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-service/internal/api/dto"
	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/service"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Validate POST /validate.
func (h *TicketsHandler) Validate(c *fiber.Ctx) error {
	fields, err := decodeFields(c.Body())
	if err != nil {
		return err
	}
	gaps, err := h.service.ValidateSnapshot(fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ValidationResponse{
		Gaps:            gaps,
		Counts:          dto.CountGaps(gaps),
		ReadyForConfirm: !domain.HasRequired(gaps),
	}})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	fields, err := decodeFields(c.Body())
	if err != nil {
		return err
	}
	view, err := h.service.CreateTicket(c.UserContext(), auth.ActorFromContext(c), fields)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, total, err := h.service.ListTickets(c.UserContext(), service.TicketListFilter{
		Status: query.Status,
		Limit:  query.PageSize,
		Offset: (query.Page - 1) * query.PageSize,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		items = append(items, ticketSummary(&views[i]))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.Pagination{Page: query.Page, PageSize: query.PageSize, Total: total},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// UpdateTicket PATCH /tickets/:id. Keys left out of the body are
// untouched; null clears a field.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	delta, err := decodeFields(c.Body())
	if err != nil {
		return err
	}
	view, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), auth.ActorFromContext(c), delta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// ApplyEnrichment POST /tickets/:id/enrichment.
func (h *TicketsHandler) ApplyEnrichment(c *fiber.Ctx) error {
	var req dto.EnrichmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.ApplyEnrichment(c.UserContext(), c.Params("id"), req.Result())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// Confirm POST /tickets/:id/confirm.
func (h *TicketsHandler) Confirm(c *fiber.Ctx) error {
	view, err := h.service.ConfirmTicket(c.UserContext(), c.Params("id"), auth.ActorFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// MarkSubmitted POST /tickets/:id/submitted.
func (h *TicketsHandler) MarkSubmitted(c *fiber.Ctx) error {
	view, err := h.service.MarkSubmitted(c.UserContext(), c.Params("id"), auth.ActorFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// MarkResponsesIn POST /tickets/:id/responses.
func (h *TicketsHandler) MarkResponsesIn(c *fiber.Ctx) error {
	var req dto.ResponsesInRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	view, err := h.service.MarkResponsesIn(c.UserContext(), c.Params("id"), auth.ActorFromContext(c), req.PositiveResponseAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// Cancel POST /tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	view, err := h.service.CancelTicket(c.UserContext(), c.Params("id"), auth.ActorFromContext(c), strings.TrimSpace(req.Reason))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// ListAudit GET /tickets/:id/audit.
func (h *TicketsHandler) ListAudit(c *fiber.Ctx) error {
	audit, err := h.service.ListAudit(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": audit})
}

// GetPacket GET /tickets/:id/packet.
func (h *TicketsHandler) GetPacket(c *fiber.Ctx) error {
	p, err := h.service.GetPacket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": p})
}

// decodeFields parses a field snapshot, rejecting keys outside the
// closed field set.
func decodeFields(body []byte) (domain.Fields, error) {
	var fields domain.Fields
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fields); err != nil {
		return domain.Fields{}, apperrors.NewValidationError("invalid field payload", map[string]any{"reason": err.Error()})
	}
	return fields, nil
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	q := dto.TicketListQuery{Page: 1, PageSize: defaultPageSize}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return q, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		q.Status = &status
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, apperrors.NewValidationError("page must be a positive integer", nil)
		}
		q.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return q, apperrors.NewValidationError("page_size must be a positive integer", nil)
		}
		q.PageSize = min(size, maxPageSize)
	}
	return q, nil
}

func ticketSummary(v *service.TicketView) dto.TicketSummary {
	t := v.Ticket
	return dto.TicketSummary{
		ID:                  t.ID,
		Status:              t.Status,
		DisplayStatus:       v.DisplayStatus,
		Company:             t.Fields.Company.OrZero(),
		County:              t.Fields.County.OrZero(),
		City:                t.Fields.City.OrZero(),
		RequiredGaps:        dto.CountGaps(v.Gaps).Required,
		EarliestLawfulStart: t.EarliestLawfulStart,
		ExpiresAt:           t.ExpiresAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func ticketDetail(v *service.TicketView) dto.TicketDetailResponse {
	t := v.Ticket
	resp := dto.TicketDetailResponse{
		ID:                  t.ID,
		Status:              t.Status,
		DisplayStatus:       v.DisplayStatus,
		Fields:              t.Fields,
		Gaps:                v.Gaps,
		GapCounts:           dto.CountGaps(v.Gaps),
		AllowedActions:      v.AllowedActions,
		RequestedAt:         t.RequestedAt,
		EarliestLawfulStart: t.EarliestLawfulStart,
		DaysUntilStart:      v.DaysUntilStart,
		SubmittedAt:         t.SubmittedAt,
		PositiveResponseAt:  t.PositiveResponseAt,
		ExpiresAt:           t.ExpiresAt,
		MarkingValidUntil:   t.MarkingValidUntil,
		DaysUntilExpiration: v.DaysUntilExpiration,
		CancelledAt:         t.CancelledAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.SubmissionPacket != nil {
		resp.PacketDigest = t.SubmissionPacket.Digest
	}
	return resp
}
