package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps a cumulative hash at <prefix>:total and per-hour hashes at
// <prefix>:hour:YYYYMMDDHH that expire after ttl.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis recorder.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Surrounding colons are dropped.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the lifetime of hourly buckets. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// NewRedis returns a recorder writing to rdb under the "contact:stats" prefix
// with a seven day bucket TTL unless overridden by opts.
func NewRedis(rdb redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "contact:stats",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record increments the outcome in the total hash and in the hourly bucket.
// A nil receiver or client records nothing.
func (r *Redis) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Outcome)
	bucketKey := r.BucketKey(at)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.TotalKey(), field, 1)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if r.ttl > 0 {
		pipe.Expire(ctx, bucketKey, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record %s: %w", field, err)
	}
	return nil
}

// TotalKey returns the key of the cumulative hash.
func (r *Redis) TotalKey() string {
	return r.prefix + ":total"
}

// BucketKey returns the key of the hourly hash containing at.
func (r *Redis) BucketKey(at time.Time) string {
	return fmt.Sprintf("%s:hour:%s", r.prefix, at.UTC().Format("2006010215"))
}
