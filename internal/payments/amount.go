package payments

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/property-shares/backend/internal/models"
)

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooPrecise      = errors.New("amount has more decimals than the currency allows")
	ErrAmountOverflow  = errors.New("amount does not fit into base units")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Units maps a currency to its number of decimal places. Ledger amounts are
// integers in the smallest unit; the API accepts and renders decimal strings.
type Units map[string]int32

func NewUnits(stableDecimals, nativeDecimals int32) Units {
	return Units{
		models.CurrencyStable: stableDecimals,
		models.CurrencyNative: nativeDecimals,
	}
}

// Parse converts a decimal string such as "12.50" into base units.
func (u Units) Parse(currency, s string) (uint64, error) {
	places, ok := u[currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	scaled := d.Shift(places)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if scaled.GreaterThan(fromUint(math.MaxUint64)) {
		return 0, ErrAmountOverflow
	}
	return scaled.BigInt().Uint64(), nil
}

// Format renders base units as a fixed-point decimal string.
func (u Units) Format(currency string, amount uint64) string {
	places := u[currency]
	return fromUint(amount).Shift(-places).StringFixed(places)
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
