package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// incrementScript bumps the window counter and starts the window TTL on the
// first hit. Returns {count, pttl_ms}.
// KEYS[1] = counter key
// ARGV[1] = window length in milliseconds
var incrementScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], tonumber(ARGV[1]))
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	res, err := incrementScript.Run(ctx, s.rdb, []string{prefixCounter + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("gateway/redis: increment counter: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("gateway/redis: increment counter: unexpected reply length %d", len(res))
	}

	count := int(res[0])
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return count, now().Add(ttl), nil
}

func (s *Store) Peek(ctx context.Context, key string) (int, time.Time, bool, error) {
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(ctx, prefixCounter+key)
	ttlCmd := pipe.PTTL(ctx, prefixCounter+key)
	if _, err := pipe.Exec(ctx); err != nil && !isRedisNil(err) {
		return 0, time.Time{}, false, fmt.Errorf("gateway/redis: peek counter: %w", err)
	}

	count, err := getCmd.Int()
	if err != nil {
		if isRedisNil(err) {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, fmt.Errorf("gateway/redis: peek counter value: %w", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("gateway/redis: peek counter ttl: %w", err)
	}
	if ttl < 0 {
		return 0, time.Time{}, false, nil
	}
	return count, now().Add(ttl), true, nil
}
