package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
)

const rateKeyPrefix = "rates:"

// RedisRates reads conversion rates published by the pricing feed under
// "rates:<CURRENCY>" as "num/den". Missing keys fall back to the configured
// rates; a currency with neither is not accepted.
type RedisRates struct {
	client   *redis.Client
	fallback map[string]models.Rate
	log      *zap.Logger
}

func NewRedisRates(client *redis.Client, fallback map[string]models.Rate, log *zap.Logger) *RedisRates {
	return &RedisRates{client: client, fallback: fallback, log: log}
}

func (r *RedisRates) Rate(ctx context.Context, currency string) (models.Rate, bool, error) {
	raw, err := r.client.Get(ctx, rateKeyPrefix+currency).Result()
	if err == redis.Nil {
		rate, ok := r.fallback[currency]
		return rate, ok, nil
	}
	if err != nil {
		return models.Rate{}, false, err
	}

	rate, err := ParseRate(raw)
	if err != nil {
		r.log.Warn("ignoring malformed rate", zap.String("currency", currency), zap.String("value", raw), zap.Error(err))
		fb, ok := r.fallback[currency]
		return fb, ok, nil
	}
	return rate, true, nil
}

// Publish stores a rate; used by operators and tests.
func (r *RedisRates) Publish(ctx context.Context, currency string, rate models.Rate) error {
	return r.client.Set(ctx, rateKeyPrefix+currency, FormatRate(rate), 0).Err()
}

func ParseRate(s string) (models.Rate, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return models.Rate{}, fmt.Errorf("rate %q is not num/den", s)
	}
	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return models.Rate{}, err
	}
	d, err := strconv.ParseUint(den, 10, 64)
	if err != nil {
		return models.Rate{}, err
	}
	if n == 0 || d == 0 {
		return models.Rate{}, fmt.Errorf("rate %q has a zero term", s)
	}
	return models.Rate{Num: n, Den: d}, nil
}

func FormatRate(r models.Rate) string {
	return strconv.FormatUint(r.Num, 10) + "/" + strconv.FormatUint(r.Den, 10)
}
