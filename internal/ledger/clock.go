package ledger

import (
	"context"
	"time"

	"github.com/property-shares/backend/internal/models"
)

// Clock supplies the time used for sale deadlines and voting windows.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IdentityChecker answers whether a holder passed identity verification.
type IdentityChecker interface {
	IsVerified(ctx context.Context, holder string) (bool, error)
}

// RateSource returns the conversion rate from stable units into currency.
// ok is false when the currency is not accepted.
type RateSource interface {
	Rate(ctx context.Context, currency string) (rate models.Rate, ok bool, err error)
}

// AllowAll is an IdentityChecker that verifies everyone.
type AllowAll struct{}

func (AllowAll) IsVerified(context.Context, string) (bool, error) { return true, nil }

// StableOnly is a RateSource that accepts no currency besides the stable one.
type StableOnly struct{}

func (StableOnly) Rate(context.Context, string) (models.Rate, bool, error) {
	return models.Rate{}, false, nil
}
