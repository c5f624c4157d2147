package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
)

type RentHandler struct {
	engine *ledger.Engine
	units  payments.Units
	log    *zap.Logger
}

func NewRentHandler(engine *ledger.Engine, units payments.Units, log *zap.Logger) *RentHandler {
	return &RentHandler{engine: engine, units: units, log: log}
}

func (h *RentHandler) Deposit(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}

	var req dto.DepositRentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	amount, err := parseStable(h.units, req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount: "+err.Error())
	}
	actor := middleware.GetHolderID(c)
	payment, err := parsePayment(h.units, &req.Payment, actor)
	if err != nil {
		return badRequest(c, "invalid payment: "+err.Error())
	}

	period, err := h.engine.DepositRent(c.UserContext(), actor, id, amount, payment)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: period})
}

func (h *RentHandler) Claimable(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	holder := middleware.GetHolderID(c)
	amount, err := h.engine.Claimable(holder, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ClaimableResponse{
		PropertyID: id,
		Holder:     holder,
		Amount:     amount,
		Display:    h.units.Format(models.CurrencyStable, amount),
	}})
}

func (h *RentHandler) Withdraw(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	amount, err := h.engine.Withdraw(c.UserContext(), middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.WithdrawResponse{
		PropertyID: id,
		Amount:     amount,
		Display:    h.units.Format(models.CurrencyStable, amount),
	}})
}

func (h *RentHandler) Periods(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	periods, err := h.engine.RentPeriods(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: periods})
}

func (h *RentHandler) Summary(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	summary, err := h.engine.RentSummary(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: summary})
}
