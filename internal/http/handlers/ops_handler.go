package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
)

// OpsHandler serves the settlement worker.
type OpsHandler struct {
	engine *ledger.Engine
}

func NewOpsHandler(engine *ledger.Engine) *OpsHandler {
	return &OpsHandler{engine: engine}
}

// Due lists sales and proposals whose time gate has passed.
func (h *OpsHandler) Due(c *fiber.Ctx) error {
	now := h.engine.Now()
	due := dto.DueResponse{
		Sales:     h.engine.DueSales(now),
		Proposals: h.engine.DueProposals(now),
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: due})
}

// Invariants runs the conservation checks against live state.
func (h *OpsHandler) Invariants(c *fiber.Ctx) error {
	if err := h.engine.CheckInvariants(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error(), Code: "invariant_violation"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"last_seq": h.engine.LastSeq()}})
}
