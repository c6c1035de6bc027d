package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReportCacheTTL bounds how long a report survives without invalidation.
const DefaultReportCacheTTL = 5 * time.Minute

// Key prefixes
const (
	reportCachePrefix   = "cache:report:"
	reportGenerationKey = "cache:report:generation"
	generationSeparator = ":g"
)

// ReportCache stores rendered revenue reports. Invalidate bumps a generation
// counter that is part of every key, so stale entries are never read again
// and simply expire.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a new ReportCache. A zero ttl uses DefaultReportCacheTTL.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportCacheTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Get returns the cached report bytes for key.
func (s *ReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	fullKey, err := s.versionedKey(ctx, key)
	if err != nil {
		return nil, false, err
	}

	data, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores report bytes under the current generation.
func (s *ReportCache) Set(ctx context.Context, key string, value []byte) error {
	fullKey, err := s.versionedKey(ctx, key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fullKey, value, s.ttl).Err()
}

// Invalidate retires every cached report.
func (s *ReportCache) Invalidate(ctx context.Context) error {
	return s.client.Incr(ctx, reportGenerationKey).Err()
}

func (s *ReportCache) versionedKey(ctx context.Context, key string) (string, error) {
	gen, err := s.client.Get(ctx, reportGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return reportCachePrefix + key + generationSeparator + strconv.FormatInt(gen, 10), nil
}
