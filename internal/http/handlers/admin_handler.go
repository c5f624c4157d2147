package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/payments"
)

// IdentityAdmin maintains the identity-verified flags the ledger consults.
type IdentityAdmin interface {
	Verify(ctx context.Context, holder string) error
	Revoke(ctx context.Context, holder string) error
}

// AdminHandler exposes settings, roles and property moderation. The ledger
// enforces every permission; routes are grouped only for clarity.
type AdminHandler struct {
	engine   *ledger.Engine
	identity IdentityAdmin
	units    payments.Units
	log      *zap.Logger
}

func NewAdminHandler(engine *ledger.Engine, identity IdentityAdmin, units payments.Units, log *zap.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, identity: identity, units: units, log: log}
}

func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.engine.Settings()})
}

func (h *AdminHandler) SetPaused(c *fiber.Ctx) error {
	var req dto.SetPausedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	s, err := h.engine.SetPaused(c.UserContext(), middleware.GetHolderID(c), req.Paused)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Warn("ledger pause changed", zap.Bool("paused", s.Paused), zap.String("by", middleware.GetHolderID(c)))
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *AdminHandler) SetProposalFee(c *fiber.Ctx) error {
	var req dto.SetFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	fee, err := parseStable(h.units, req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount: "+err.Error())
	}
	s, err := h.engine.SetProposalFee(c.UserContext(), middleware.GetHolderID(c), fee)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *AdminHandler) SetRegistrationFee(c *fiber.Ctx) error {
	var req dto.SetFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	fee, err := parseStable(h.units, req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount: "+err.Error())
	}
	s, err := h.engine.SetRegistrationFee(c.UserContext(), middleware.GetHolderID(c), fee)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *AdminHandler) SetAPR(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	var req dto.SetAPRRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	prop, err := h.engine.SetAPR(c.UserContext(), middleware.GetHolderID(c), id, req.APRBps)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: prop})
}

func (h *AdminHandler) Delist(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	prop, err := h.engine.Delist(c.UserContext(), middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Warn("property delisted", zap.String("property_id", id.String()), zap.String("by", middleware.GetHolderID(c)))
	return c.JSON(dto.SuccessResponse{OK: true, Data: prop})
}

func (h *AdminHandler) TransferOwnership(c *fiber.Ctx) error {
	var req dto.TransferOwnershipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	s, err := h.engine.TransferOwnership(c.UserContext(), middleware.GetHolderID(c), strings.TrimSpace(req.NewOwner))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *AdminHandler) GrantRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	s, err := h.engine.GrantRole(c.UserContext(), middleware.GetHolderID(c), req.Holder, req.Role)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

func (h *AdminHandler) RevokeRole(c *fiber.Ctx) error {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	s, err := h.engine.RevokeRole(c.UserContext(), middleware.GetHolderID(c), req.Holder, req.Role)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: s})
}

// SetVerified records the outcome of an identity check done by the KYC
// provider. Mounted behind the manage_roles permission.
func (h *AdminHandler) SetVerified(c *fiber.Ctx) error {
	var req dto.VerifyHolderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	holder := strings.TrimSpace(req.Holder)
	if holder == "" {
		return badRequest(c, "holder is required")
	}

	var err error
	if req.Verified {
		err = h.identity.Verify(c.UserContext(), holder)
	} else {
		err = h.identity.Revoke(c.UserContext(), holder)
	}
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"holder": holder, "verified": req.Verified}})
}
