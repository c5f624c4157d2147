package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
)

type SaleHandler struct {
	engine *ledger.Engine
	units  payments.Units
	log    *zap.Logger
}

func NewSaleHandler(engine *ledger.Engine, units payments.Units, log *zap.Logger) *SaleHandler {
	return &SaleHandler{engine: engine, units: units, log: log}
}

func (h *SaleHandler) Quote(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	shares, err := strconv.ParseUint(c.Query("shares"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid shares")
	}
	currency := strings.ToUpper(c.Query("currency", models.CurrencyStable))

	q, err := h.engine.Quote(c.UserContext(), id, shares, currency)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.QuoteResponse{
		PropertyID: q.PropertyID,
		Shares:     q.Shares,
		Currency:   q.Currency,
		UnitCost:   h.units.Format(q.Currency, q.UnitCost),
		Cost:       h.units.Format(q.Currency, q.Cost),
	}})
}

func (h *SaleHandler) Buy(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}

	var req dto.BuySharesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	buyer := middleware.GetHolderID(c)
	payment, err := parsePayment(h.units, &req.Payment, buyer)
	if err != nil {
		return badRequest(c, "invalid payment: "+err.Error())
	}

	order, err := h.engine.Buy(c.UserContext(), buyer, id, req.Shares, payment)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: order})
}

// Conclude settles a sale whose window has closed. Anyone may trigger it.
func (h *SaleHandler) Conclude(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}

	summary, err := h.engine.Conclude(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.log.Info("sale concluded",
		zap.String("property_id", id.String()),
		zap.String("by", middleware.GetHolderID(c)),
		zap.Uint64("reserved", summary.TotalReserved),
		zap.Bool("oversubscribed", summary.Oversubscribed),
	)
	return c.JSON(dto.SuccessResponse{OK: true, Data: summary})
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	summary, err := h.engine.Sale(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: summary})
}

func (h *SaleHandler) PendingClaim(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	claim, err := h.engine.PendingClaim(middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: claim})
}

func (h *SaleHandler) Claim(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	claim, err := h.engine.Claim(c.UserContext(), middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: claim})
}

func (h *SaleHandler) ClaimAll(c *fiber.Ctx) error {
	claims, err := h.engine.ClaimAll(c.UserContext(), middleware.GetHolderID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: claims})
}
