package admission

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter. The first hit in a window arms the expiry; the
// key's death is the refill. PTTL can report -1 if the expiry was lost
// (e.g. key written by an older client), in which case it is re-armed.
const fixedWindowLua = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local n = redis.call("INCR", key)
if n == 1 then
  redis.call("PEXPIRE", key, window_ms)
end
if n <= limit then
  return {1, 0}
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
  redis.call("PEXPIRE", key, window_ms)
  ttl = window_ms
end
return {0, ttl}
`

// RedisController enforces the same reset-to-full window policy as
// WindowController, but shared across processes: the counter lives in
// Redis and every cooperating client draws from the same allowance.
type RedisController struct {
	rdb    *redis.Client
	key    string
	limit  int
	window time.Duration
}

// NewRedis builds a distributed controller. All clients that should
// share one allowance must use the same key.
func NewRedis(rdb *redis.Client, key string, limit int, window time.Duration) (*RedisController, error) {
	if limit <= 0 || window <= 0 {
		return nil, ErrBadLimit
	}
	if key == "" {
		key = "admission:window"
	}
	return &RedisController{rdb: rdb, key: key, limit: limit, window: window}, nil
}

// Acquire increments the shared counter and, when the window is spent,
// sleeps until the counter key expires before trying again.
func (c *RedisController) Acquire(ctx context.Context) error {
	for {
		res, err := c.rdb.Eval(ctx, fixedWindowLua, []string{c.key}, c.limit, c.window.Milliseconds()).Result()
		if err != nil {
			return err
		}
		arr, ok := res.([]any)
		if !ok || len(arr) != 2 {
			return errors.New("admission: unexpected script reply")
		}
		if toInt(arr[0]) == 1 {
			return nil
		}

		wait := time.Duration(toInt(arr[1])) * time.Millisecond
		if wait <= 0 || wait > c.window {
			wait = c.window
		}
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

func (c *RedisController) Close() error { return c.rdb.Close() }

func toInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
