package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
	"github.com/property-shares/backend/internal/ledger"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/payments"
)

var kindStatus = map[ledger.Kind]int{
	ledger.KindValidation:    fiber.StatusBadRequest,
	ledger.KindState:         fiber.StatusConflict,
	ledger.KindConservation:  fiber.StatusUnprocessableEntity,
	ledger.KindAuthorization: fiber.StatusForbidden,
	ledger.KindNotFound:      fiber.StatusNotFound,
}

// respondError writes a ledger error with the status of its kind. Anything
// else is an infrastructure failure and is reported as 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)

	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		status, ok := kindStatus[lerr.Kind]
		if !ok {
			status = fiber.StatusBadRequest
		}
		if lerr.Kind == ledger.KindConservation {
			log.Error("conservation check rejected operation",
				zap.String("request_id", reqID),
				zap.String("path", c.Path()),
				zap.String("holder", middleware.GetHolderID(c)),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(dto.ErrorResponse{Error: lerr.Error(), Code: lerr.Code, RequestID: reqID})
	}

	log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	reqID := middleware.GetRequestID(c)
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, Code: "invalid_request", RequestID: reqID})
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// parsePayment converts a payment body into ledger units; the payer is the
// authenticated caller.
func parsePayment(units payments.Units, req *dto.PaymentRequest, payer string) (models.Payment, error) {
	if req == nil {
		return models.Payment{}, nil
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.CurrencyStable
	}
	amount, err := units.Parse(currency, req.Amount)
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		Amount:    amount,
		Currency:  currency,
		Payer:     payer,
		Reference: strings.TrimSpace(req.Reference),
	}, nil
}

// parseStable reads a price or fee, always denominated in the stable currency.
func parseStable(units payments.Units, s string) (uint64, error) {
	return units.Parse(models.CurrencyStable, s)
}
