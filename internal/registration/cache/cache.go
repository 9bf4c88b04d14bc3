// Package cache invalidates the per-(competition, user) registration
// processing flag kept in Redis. The flag is owned by the API layer; this
// core only deletes it after every successful save.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "compreg/pkg/domain"
)

var invalidateDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "compreg_cache_invalidate_duration_ms",
	Help:    "Latency of registration processing-flag invalidations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const processingKeyPrefix = "registration_processing:"

// ProcessingKey builds the cache key for a (competition, user) pair.
func ProcessingKey(competitionID id.CompetitionID, userID id.UserID) string {
	return fmt.Sprintf("%s%s:%s", processingKeyPrefix, competitionID, userID)
}

// RedisInvalidator deletes processing flags from Redis. Callers treat it as
// fire-and-forget; a failed delete is logged upstream, never propagated
// into the registration write.
type RedisInvalidator struct {
	client *redis.Client
}

func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

func (c *RedisInvalidator) InvalidateProcessing(ctx context.Context, competitionID id.CompetitionID, userID id.UserID) error {
	start := time.Now()
	defer func() {
		invalidateDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()
	return c.client.Del(ctx, ProcessingKey(competitionID, userID)).Err()
}
