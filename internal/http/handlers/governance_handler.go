package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
)

type GovernanceHandler struct {
	engine *ledger.Engine
	units  payments.Units
	log    *zap.Logger
}

func NewGovernanceHandler(engine *ledger.Engine, units payments.Units, log *zap.Logger) *GovernanceHandler {
	return &GovernanceHandler{engine: engine, units: units, log: log}
}

// Fee reports the proposal fee due for a voting window.
func (h *GovernanceHandler) Fee(c *fiber.Ctx) error {
	hours := c.QueryInt("duration_hours", 0)
	if hours <= 0 {
		return badRequest(c, "duration_hours must be positive")
	}
	fee := h.engine.ProposalFee(time.Duration(hours) * time.Hour)
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{
		"duration_hours": hours,
		"fee":            fee,
		"display":        h.units.Format(models.CurrencyStable, fee),
	}})
}

func (h *GovernanceHandler) CreateProposal(c *fiber.Ctx) error {
	var req dto.CreateProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return badRequest(c, "invalid property_id")
	}
	proposer := middleware.GetHolderID(c)
	payment, err := parsePayment(h.units, req.Payment, proposer)
	if err != nil {
		return badRequest(c, "invalid payment: "+err.Error())
	}

	proposal, err := h.engine.CreateProposal(c.UserContext(), ledger.CreateProposalInput{
		Proposer:    proposer,
		PropertyID:  propertyID,
		Title:       req.Title,
		Description: req.Description,
		Duration:    time.Duration(req.DurationHours) * time.Hour,
		Payment:     payment,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: proposal})
}

func (h *GovernanceHandler) Vote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid proposal id")
	}

	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	vote, err := h.engine.Vote(c.UserContext(), middleware.GetHolderID(c), id, req.InFavor)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: vote})
}

// Finalize closes a proposal whose voting window has ended. Anyone may
// trigger it.
func (h *GovernanceHandler) Finalize(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid proposal id")
	}

	proposal, err := h.engine.Finalize(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: proposal})
}

func (h *GovernanceHandler) GetProposal(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid proposal id")
	}
	proposal, err := h.engine.Proposal(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	vote, err := h.engine.VoteOf(middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ProposalResponse{Proposal: proposal, MyVote: vote}})
}

func (h *GovernanceHandler) ListProposals(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	proposals, err := h.engine.Proposals(id, c.Query("status"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: proposals})
}
