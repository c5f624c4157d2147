package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/metadata"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
)

// Previewer returns the metadata preview of a uri.
type Previewer interface {
	Preview(ctx context.Context, uri string) (*metadata.Preview, error)
}

// PropertyHandler covers listing requests, the property registry and share
// holdings.
type PropertyHandler struct {
	engine   *ledger.Engine
	previews Previewer
	units    payments.Units
	log      *zap.Logger
}

func NewPropertyHandler(engine *ledger.Engine, previews Previewer, units payments.Units, log *zap.Logger) *PropertyHandler {
	return &PropertyHandler{engine: engine, previews: previews, units: units, log: log}
}

func (h *PropertyHandler) SubmitRequest(c *fiber.Ctx) error {
	var req dto.SubmitPropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	price, err := parseStable(h.units, req.PricePerShare)
	if err != nil {
		return badRequest(c, "invalid price_per_share: "+err.Error())
	}
	holder := middleware.GetHolderID(c)
	payment, err := parsePayment(h.units, req.Payment, holder)
	if err != nil {
		return badRequest(c, "invalid payment: "+err.Error())
	}

	created, err := h.engine.SubmitRequest(c.UserContext(), ledger.SubmitRequestInput{
		Requester:     holder,
		PricePerShare: price,
		TotalShares:   req.TotalShares,
		SaleWindow:    time.Duration(req.SaleWindowHours) * time.Hour,
		MetadataURI:   req.MetadataURI,
		Payment:       payment,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: created})
}

func (h *PropertyHandler) ResolveRequest(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}

	var req dto.ResolvePropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	var adjusted *uint64
	if req.AdjustedPrice != nil && strings.TrimSpace(*req.AdjustedPrice) != "" {
		price, err := parseStable(h.units, *req.AdjustedPrice)
		if err != nil {
			return badRequest(c, "invalid adjusted_price: "+err.Error())
		}
		adjusted = &price
	}

	resolved, prop, err := h.engine.ResolveRequest(c.UserContext(), middleware.GetHolderID(c), id, req.Approve, adjusted)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ResolveResponse{Request: resolved, Property: prop}})
}

func (h *PropertyHandler) GetRequest(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	req, err := h.engine.Request(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: req})
}

func (h *PropertyHandler) ListRequests(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.engine.Requests(c.Query("status"))})
}

// RequestPreview lets reviewers inspect the metadata of a pending request.
func (h *PropertyHandler) RequestPreview(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid request id")
	}
	req, err := h.engine.Request(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.preview(c, req.MetadataURI)
}

func (h *PropertyHandler) ListProperties(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.engine.Properties(c.Query("status"))})
}

func (h *PropertyHandler) GetProperty(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	prop, err := h.engine.Property(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: prop})
}

func (h *PropertyHandler) PropertyPreview(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	prop, err := h.engine.Property(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.preview(c, prop.MetadataURI)
}

func (h *PropertyHandler) preview(c *fiber.Ctx, uri string) error {
	if h.previews == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Error: "previews disabled"})
	}
	p, err := h.previews.Preview(c.UserContext(), uri)
	if err != nil {
		h.log.Warn("preview failed", zap.String("uri", uri), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "metadata unavailable"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

func (h *PropertyHandler) Holders(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	holders, err := h.engine.Holders(id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: holders})
}

func (h *PropertyHandler) Balance(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	holder := c.Params("holder")
	shares, err := h.engine.BalanceOf(holder, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: models.Holding{PropertyID: id, Holder: holder, Shares: shares}})
}
