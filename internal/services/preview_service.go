package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/metadata"
)

const previewKeyPrefix = "preview:"

// PreviewFetcher loads a metadata preview from its uri.
type PreviewFetcher interface {
	Fetch(ctx context.Context, uri string) (*metadata.Preview, error)
}

// PreviewService serves metadata previews to request reviewers and buyers,
// caching them in redis.
type PreviewService struct {
	fetcher PreviewFetcher
	rdb     *redis.Client
	ttl     time.Duration
	log     *zap.Logger
}

func NewPreviewService(fetcher PreviewFetcher, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *PreviewService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PreviewService{fetcher: fetcher, rdb: rdb, ttl: ttl, log: log}
}

func (s *PreviewService) Preview(ctx context.Context, uri string) (*metadata.Preview, error) {
	key := previewKey(uri)

	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var p metadata.Preview
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
	} else if err != redis.Nil {
		s.log.Warn("preview cache unavailable", zap.Error(err))
	}

	p, err := s.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.log.Warn("failed to cache preview", zap.String("uri", uri), zap.Error(err))
		}
	}
	return p, nil
}

func previewKey(uri string) string {
	sum := sha1.Sum([]byte(uri))
	return previewKeyPrefix + hex.EncodeToString(sum[:])
}
