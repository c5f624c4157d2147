package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
	"github.com/property-shares/backend/internal/rbac"
)

// MetaHandler serves static reference data for clients.
type MetaHandler struct {
	units payments.Units
	rates ledger.RateSource
}

func NewMetaHandler(units payments.Units, rates ledger.RateSource) *MetaHandler {
	return &MetaHandler{units: units, rates: rates}
}

type MetaCurrency struct {
	ID       string `json:"id"`
	Decimals int32  `json:"decimals"`
	// Rate converts one stable unit into this currency; empty when the
	// currency is not accepted right now.
	Rate string `json:"rate,omitempty"`
}

var predefinedStatuses = fiber.Map{
	"request":  []string{models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected},
	"property": []string{models.PropertyStatusSelling, models.PropertyStatusConcluded, models.PropertyStatusDelisted},
	"listing":  []string{models.ListingStatusOpen, models.ListingStatusFilled, models.ListingStatusCancelled},
	"proposal": []string{models.ProposalStatusOpen, models.ProposalStatusPassed, models.ProposalStatusFailed, models.ProposalStatusCancelled},
}

func (h *MetaHandler) GetCurrencies(c *fiber.Ctx) error {
	out := []MetaCurrency{{ID: models.CurrencyStable, Decimals: h.units[models.CurrencyStable], Rate: "1/1"}}

	native := MetaCurrency{ID: models.CurrencyNative, Decimals: h.units[models.CurrencyNative]}
	if rate, ok, err := h.rates.Rate(c.UserContext(), models.CurrencyNative); err == nil && ok {
		native.Rate = payments.FormatRate(rate)
	}
	out = append(out, native)

	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

func (h *MetaHandler) GetStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: predefinedStatuses})
}

func (h *MetaHandler) GetRoles(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: rbac.RolePermissions})
}
