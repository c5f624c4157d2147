package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/payments"
)

type MarketHandler struct {
	engine *ledger.Engine
	units  payments.Units
	log    *zap.Logger
}

func NewMarketHandler(engine *ledger.Engine, units payments.Units, log *zap.Logger) *MarketHandler {
	return &MarketHandler{engine: engine, units: units, log: log}
}

func (h *MarketHandler) CreateListing(c *fiber.Ctx) error {
	var req dto.CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return badRequest(c, "invalid property_id")
	}
	price, err := parseStable(h.units, req.PricePerShare)
	if err != nil {
		return badRequest(c, "invalid price_per_share: "+err.Error())
	}

	listing, err := h.engine.List(c.UserContext(), middleware.GetHolderID(c), propertyID, req.Shares, price)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: listing})
}

func (h *MarketHandler) BuyListing(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}

	var req dto.BuyListingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	buyer := middleware.GetHolderID(c)
	payment, err := parsePayment(h.units, &req.Payment, buyer)
	if err != nil {
		return badRequest(c, "invalid payment: "+err.Error())
	}

	listing, err := h.engine.BuyListing(c.UserContext(), buyer, id, payment)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: listing})
}

func (h *MarketHandler) CancelListing(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}

	listing, err := h.engine.CancelListing(c.UserContext(), middleware.GetHolderID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: listing})
}

func (h *MarketHandler) GetListing(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	listing, err := h.engine.Listing(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: listing})
}

func (h *MarketHandler) ListListings(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	listings, err := h.engine.Listings(id, c.Query("status"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: listings})
}
