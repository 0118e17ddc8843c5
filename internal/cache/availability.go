// Package cache keeps short-lived availability answers in Redis so that
// repeated probes for the same slot do not reach the database.  Answers
// are advisory: create and update always re-check under the room-day
// lock.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/meeting-room-reservation/internal/config"
	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Availability implements ports.AvailabilityCache on Redis.  Redis
// failures degrade to cache misses.
type Availability struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

// NewAvailability returns nil when caching is disabled or rdb is nil;
// the service treats a nil cache as "always miss".
func NewAvailability(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) *Availability {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "avail"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Availability{rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

// Key layout: <prefix>:<room>:<date>:<start>:<end>.
func (a *Availability) key(roomID uint64, date model.Date, iv model.Interval) string {
	return fmt.Sprintf("%s:%d:%s:%s:%s", a.prefix, roomID, date, iv.Start, iv.End)
}

func (a *Availability) Get(ctx context.Context, roomID uint64, date model.Date, iv model.Interval) (available, ok bool) {
	v, err := a.rdb.Get(ctx, a.key(roomID, date, iv)).Result()
	switch {
	case err == redis.Nil:
		metrics.IncCacheLookup("miss")
		return false, false
	case err != nil:
		metrics.IncCacheLookup("error")
		a.log.Debug("availability cache get failed", slog.Any("error", err))
		return false, false
	}
	metrics.IncCacheLookup("hit")
	return v == "1", true
}

func (a *Availability) Set(ctx context.Context, roomID uint64, date model.Date, iv model.Interval, available bool) {
	v := "0"
	if available {
		v = "1"
	}
	if err := a.rdb.Set(ctx, a.key(roomID, date, iv), v, a.ttl).Err(); err != nil {
		a.log.Debug("availability cache set failed", slog.Any("error", err))
	}
}

// Invalidate drops every cached answer for the room on date.  Called
// after a mutation so probes see the change before the TTL runs out.
func (a *Availability) Invalidate(ctx context.Context, roomID uint64, date model.Date) {
	pattern := fmt.Sprintf("%s:%d:%s:*", a.prefix, roomID, date)
	iter := a.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		a.log.Debug("availability cache scan failed", slog.Any("error", err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := a.rdb.Del(ctx, keys...).Err(); err != nil {
		a.log.Debug("availability cache invalidate failed", slog.Any("error", err))
	}
}
