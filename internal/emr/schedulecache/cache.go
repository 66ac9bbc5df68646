// Package schedulecache puts a short-lived Redis cache in front of an EMR
// schedule source, so an alternative-time search and rapid re-checks for the
// same provider do not hammer the EMR API.
package schedulecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/halcyonmd/voice-scheduler/internal/emr"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// DefaultTTL keeps snapshots fresh enough that a booking made elsewhere shows
// up within a minute.
const DefaultTTL = time.Minute

// CachingClient wraps an emr.Client with a Redis read-through cache keyed by
// provider and date range. Cache failures degrade to the underlying client.
type CachingClient struct {
	inner  emr.Client
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// New wraps client with a Redis cache. A ttl of 0 uses DefaultTTL.
func New(client emr.Client, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *CachingClient {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachingClient{inner: client, rdb: rdb, ttl: ttl, logger: logger.Component("schedulecache")}
}

// GetSchedule returns the cached snapshot for the request when present,
// otherwise fetches from the EMR and stores the result.
func (c *CachingClient) GetSchedule(ctx context.Context, req emr.ScheduleRequest) ([]emr.DaySchedule, error) {
	key := cacheKey(req)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var days []emr.DaySchedule
		if err := json.Unmarshal(data, &days); err == nil {
			return days, nil
		}
		// Unreadable entry; fall through to a fresh fetch.
		c.logger.Warn("dropping unreadable cached schedule", "key", key)
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("schedule cache read failed", "key", key, "error", err)
	}

	days, err := c.inner.GetSchedule(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(days); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("schedule cache write failed", "key", key, "error", err)
		}
	}

	return days, nil
}

// Invalidate drops every cached snapshot for a provider, for callers that
// learn out-of-band that the provider's schedule changed.
func (c *CachingClient) Invalidate(ctx context.Context, providerID string) error {
	pattern := fmt.Sprintf("schedule:%s:*", providerID)
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("schedulecache: delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("schedulecache: scan: %w", err)
	}
	return nil
}

func cacheKey(req emr.ScheduleRequest) string {
	return fmt.Sprintf("schedule:%s:%s:%s",
		req.ProviderID,
		req.StartDate.UTC().Format(time.RFC3339),
		req.EndDate.UTC().Format(time.RFC3339),
	)
}
