package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/scholar/internal/api"
	"github.com/alan-mat/scholar/internal/session"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "scholar:quota:"

// acquireScript increments the counter unless it already reached the limit.
// A negative limit means unbounded. Returns -1 when refused.
var acquireScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if limit >= 0 and used >= limit then
	return -1
end
return redis.call("INCR", KEYS[1])
`)

var releaseScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used <= 0 then
	return 0
end
return redis.call("DECR", KEYS[1])
`)

type Redis struct {
	rdb    *redis.Client
	limits Limits
	prefix string
}

func NewRedis(rdb *redis.Client, limits Limits) *Redis {
	return &Redis{
		rdb:    rdb,
		limits: limits,
		prefix: defaultKeyPrefix,
	}
}

func (r *Redis) key(sess session.Session) string {
	return r.prefix + sess.QuotaKey()
}

func (r *Redis) Acquire(ctx context.Context, sess session.Session) (Usage, error) {
	limit := r.limits.For(sess)
	used, err := acquireScript.Run(ctx, r.rdb, []string{r.key(sess)}, limit).Int()
	if err != nil {
		return Usage{}, fmt.Errorf("failed to acquire quota for '%s': %w", sess.QuotaKey(), err)
	}

	if used < 0 {
		return Usage{Used: limit, Limit: limit}, api.ErrQuotaExceeded
	}
	return Usage{Used: used, Limit: limit}, nil
}

func (r *Redis) Release(ctx context.Context, sess session.Session) error {
	err := releaseScript.Run(ctx, r.rdb, []string{r.key(sess)}).Err()
	if err != nil {
		return fmt.Errorf("failed to release quota for '%s': %w", sess.QuotaKey(), err)
	}
	return nil
}

func (r *Redis) Usage(ctx context.Context, sess session.Session) (Usage, error) {
	used, err := r.rdb.Get(ctx, r.key(sess)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, err
	}
	return Usage{Used: used, Limit: r.limits.For(sess)}, nil
}
