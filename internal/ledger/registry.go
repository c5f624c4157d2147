package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/property-shares/backend/internal/models"
	"github.com/property-shares/backend/internal/rbac"
)

type SubmitRequestInput struct {
	Requester     string
	PricePerShare uint64
	TotalShares   uint64
	SaleWindow    time.Duration
	MetadataURI   string
	Payment       models.Payment
}

// SubmitRequest records a new property listing request awaiting validation.
func (e *Engine) SubmitRequest(ctx context.Context, in SubmitRequestInput) (*models.PropertyRequest, error) {
	if in.Requester == "" {
		return nil, fail(ErrInvalidParams, "requester is required")
	}
	if in.TotalShares == 0 || in.PricePerShare == 0 {
		return nil, fail(ErrInvalidParams, "price per share and total shares must be positive")
	}
	if _, ok := mul(in.PricePerShare, in.TotalShares); !ok {
		return nil, fail(ErrInvalidParams, "property value overflows")
	}
	if in.SaleWindow < e.opts.MinSaleWindow || in.SaleWindow > e.opts.MaxSaleWindow {
		return nil, fail(ErrInvalidParams, "sale window %s outside [%s, %s]", in.SaleWindow, e.opts.MinSaleWindow, e.opts.MaxSaleWindow)
	}
	uri := strings.TrimSpace(in.MetadataURI)
	if uri == "" {
		return nil, fail(ErrInvalidParams, "metadata uri is required")
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	if err := e.checkActive(); err != nil {
		return nil, err
	}
	fee := e.Settings().RegistrationFee
	if fee > 0 {
		if err := checkPayment(in.Payment, in.Requester, fee); err != nil {
			return nil, err
		}
	} else if in.Payment.Amount > 0 {
		return nil, fail(ErrPaymentMismatch, "no registration fee is due")
	}
	release, err := e.reserveReference(in.Payment)
	if err != nil {
		return nil, err
	}
	defer release()

	b := e.newBatch()
	req := models.PropertyRequest{
		ID:            uuid.New(),
		Requester:     in.Requester,
		PricePerShare: in.PricePerShare,
		TotalShares:   in.TotalShares,
		SaleWindow:    in.SaleWindow,
		MetadataURI:   uri,
		FeePaid:       fee,
		Status:        models.RequestStatusPending,
		CreatedAt:     b.at,
	}
	b.add(models.EventRequestSubmitted, nil, in.Requester, fee, models.RequestSubmittedPayload{
		Request: req,
		Payment: in.Payment,
	})
	if _, err := e.commit(ctx, b); err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolveRequest approves or rejects a pending request. Approval creates a
// property whose sale starts immediately.
func (e *Engine) ResolveRequest(ctx context.Context, actor string, requestID uuid.UUID, approve bool, adjustedPrice *uint64) (*models.PropertyRequest, *models.Property, error) {
	if err := e.authorize(actor, rbac.PermResolveRequest); err != nil {
		return nil, nil, err
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	req, err := e.Request(requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, nil, fail(ErrAlreadyResolved, "request %s is %s", requestID, req.Status)
	}

	b := e.newBatch()
	payload := models.RequestStatusPayload{
		RequestID:  requestID,
		Status:     models.RequestStatusRejected,
		Resolver:   actor,
		ResolvedAt: b.at,
	}
	if approve {
		price := req.PricePerShare
		if adjustedPrice != nil {
			price = *adjustedPrice
		}
		if price == 0 {
			return nil, nil, fail(ErrInvalidParams, "price per share must be positive")
		}
		if _, ok := mul(price, req.TotalShares); !ok {
			return nil, nil, fail(ErrInvalidParams, "property value overflows")
		}
		payload.Status = models.RequestStatusApproved
		payload.Property = &models.Property{
			ID:            uuid.New(),
			RequestID:     requestID,
			Owner:         req.Requester,
			PricePerShare: price,
			TotalShares:   req.TotalShares,
			SaleDeadline:  b.at.Add(req.SaleWindow),
			MetadataURI:   req.MetadataURI,
			Status:        models.PropertyStatusSelling,
			CreatedAt:     b.at,
		}
	}
	if !models.IsValidRequestTransition(req.Status, payload.Status) {
		return nil, nil, fail(ErrAlreadyResolved, "request %s cannot move to %s", requestID, payload.Status)
	}

	var propertyID *uuid.UUID
	if payload.Property != nil {
		propertyID = idRef(payload.Property.ID)
	}
	b.add(models.EventRequestStatus, propertyID, req.Requester, 0, payload)
	if _, err := e.commit(ctx, b); err != nil {
		return nil, nil, err
	}

	resolved, err := e.Request(requestID)
	if err != nil {
		return nil, nil, err
	}
	return resolved, payload.Property, nil
}

func (e *Engine) Request(id uuid.UUID) (*models.PropertyRequest, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	req, ok := e.requests[id]
	if !ok {
		return nil, fail(ErrRequestNotFound, "request %s", id)
	}
	out := *req
	return &out, nil
}

// Requests lists requests in submission order, optionally filtered by status.
func (e *Engine) Requests(status string) []models.PropertyRequest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.PropertyRequest, 0, len(e.requestOrder))
	for _, id := range e.requestOrder {
		req := e.requests[id]
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, *req)
	}
	return out
}

func (e *Engine) Property(id uuid.UUID) (*models.Property, error) {
	ps, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := ps.property
	return &out, nil
}

// Properties lists properties in creation order, optionally filtered by status.
func (e *Engine) Properties(status string) []models.Property {
	var out []models.Property
	for _, ps := range e.snapshotProperties() {
		ps.mu.RLock()
		if status == "" || ps.property.Status == status {
			out = append(out, ps.property)
		}
		ps.mu.RUnlock()
	}
	return out
}
