package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/netsupport-service/internal/api/dto"
	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/service"
	apperrors "github.com/spec-kit/netsupport-service/pkg/util"
)

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets. Clients only.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.Context(), principal.Account, req.SN, req.ProblemType, req.Location)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets. Returns the caller's view by role.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var (
		tickets []domain.Ticket
		err     error
	)
	switch principal.Account.Role {
	case domain.RoleClient:
		tickets, err = h.service.ListClientTickets(c.Context(), principal.Account)
	case domain.RoleAdmin:
		tickets, err = h.service.ListAdminTickets(c.Context(), principal.Account)
	case domain.RoleTechnician:
		tickets, err = h.service.ListTechnicianTickets(c.Context(), principal.Account)
	default:
		return apperrors.NewForbidden("no ticket view for this role")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// AssignTicket PATCH /tickets/:id/assign. Admins only.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" {
		return apperrors.NewValidationError("technicienId required", nil)
	}
	ticket, err := h.service.AssignTicket(c.Context(), principal.Account, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status. Technicians close their tickets.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CloseTicket(c.Context(), principal.Account, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// HistoryBySN GET /tickets/history/:sn. Admins only.
func (h *TicketsHandler) HistoryBySN(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.HistoryBySN(c.Context(), principal.Account, c.Params("sn"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}
