package identity

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultVerifiedKey = "kyc:verified"

// Registry keeps the set of holders that passed identity verification in a
// redis set. The verification itself happens outside this service.
type Registry struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

func NewRegistry(client *redis.Client, key string, log *zap.Logger) *Registry {
	if key == "" {
		key = DefaultVerifiedKey
	}
	return &Registry{client: client, key: key, log: log}
}

func (r *Registry) IsVerified(ctx context.Context, holder string) (bool, error) {
	if holder == "" {
		return false, nil
	}
	return r.client.SIsMember(ctx, r.key, holder).Result()
}

func (r *Registry) Verify(ctx context.Context, holder string) error {
	if err := r.client.SAdd(ctx, r.key, holder).Err(); err != nil {
		return err
	}
	r.log.Info("holder verified", zap.String("holder", holder))
	return nil
}

func (r *Registry) Revoke(ctx context.Context, holder string) error {
	if err := r.client.SRem(ctx, r.key, holder).Err(); err != nil {
		return err
	}
	r.log.Info("holder verification revoked", zap.String("holder", holder))
	return nil
}
