package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
)

// History reads past journal events.
type History interface {
	ByProperty(ctx context.Context, propertyID string, limit, offset int) ([]models.LedgerEvent, error)
	ByHolder(ctx context.Context, holder string, limit, offset int) ([]models.LedgerEvent, error)
}

type HolderHandler struct {
	engine  *ledger.Engine
	history History
	log     *zap.Logger
}

func NewHolderHandler(engine *ledger.Engine, history History, log *zap.Logger) *HolderHandler {
	return &HolderHandler{engine: engine, history: history, log: log}
}

func (h *HolderHandler) GetMe(c *fiber.Ctx) error {
	holder := middleware.GetHolderID(c)
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.HoldingsResponse{
		Holder:   holder,
		Holdings: h.engine.HoldingsOf(holder),
		Claims:   h.engine.PendingClaimsOf(holder),
	}})
}

func (h *HolderHandler) MyEvents(c *fiber.Ctx) error {
	limit, offset := page(c)
	evs, err := h.history.ByHolder(c.UserContext(), middleware.GetHolderID(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: evs})
}

func (h *HolderHandler) PropertyEvents(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid property id")
	}
	limit, offset := page(c)
	evs, err := h.history.ByProperty(c.UserContext(), id.String(), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: evs})
}

func page(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
