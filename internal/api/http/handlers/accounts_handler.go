package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/netsupport-service/internal/api/dto"
	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/service"
	apperrors "github.com/spec-kit/netsupport-service/pkg/util"
)

// AccountsHandler covers provisioning, activation, presence and profile
// endpoints. Role gating happens in the router; ownership in the service.
type AccountsHandler struct {
	service *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{service: accountService}
}

// CreateAdmin POST /admins.
func (h *AccountsHandler) CreateAdmin(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	admin, err := h.service.CreateAdmin(c.Context(), principal.Account, req.Handle, req.Email, req.Password, req.Zone)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(admin)})
}

// ListAdmins GET /admins.
func (h *AccountsHandler) ListAdmins(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	admins, err := h.service.ListAdmins(c.Context(), principal.Account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponses(admins)})
}

// CreateTechnician POST /technicians.
func (h *AccountsHandler) CreateTechnician(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	technician, err := h.service.CreateTechnician(c.Context(), principal.Account, req.Handle, req.Email, req.Password, req.Category)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(technician)})
}

// ListTechnicians GET /technicians?present=true|false.
func (h *AccountsHandler) ListTechnicians(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var presentFilter *bool
	switch c.Query("present") {
	case "true":
		v := true
		presentFilter = &v
	case "false":
		v := false
		presentFilter = &v
	}
	technicians, err := h.service.ListTechnicians(c.Context(), principal.Account, presentFilter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTechnicianResponses(technicians)})
}

// Deactivate PATCH /accounts/:id/deactivate.
func (h *AccountsHandler) Deactivate(c *fiber.Ctx) error {
	return h.setActivation(c, false)
}

// Reactivate PATCH /accounts/:id/reactivate.
func (h *AccountsHandler) Reactivate(c *fiber.Ctx) error {
	return h.setActivation(c, true)
}

func (h *AccountsHandler) setActivation(c *fiber.Ctx, active bool) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	account, err := h.service.SetActivation(c.Context(), principal.Account, c.Params("id"), active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// MarkPresent PATCH /technicians/:id/present.
func (h *AccountsHandler) MarkPresent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	technician, err := h.service.MarkPresent(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(technician)})
}

// MarkAbsent PATCH /technicians/:id/absent.
func (h *AccountsHandler) MarkAbsent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	technician, err := h.service.MarkAbsent(c.Context(), principal.Account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(technician)})
}

// GetProfile GET /profile.
func (h *AccountsHandler) GetProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	account, err := h.service.GetProfile(c.Context(), principal.Account)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UpdateProfile PUT /profile.
func (h *AccountsHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.service.UpdateProfile(c.Context(), principal.Account, service.ProfileUpdate{
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}
