package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript implements the sliding log over a sorted set keyed by
// timestamp. Running it as a script keeps expire+count+insert atomic
// without a round trip per step.
//
// KEYS[1] = log key
// ARGV[1] = now (unix micros), ARGV[2] = window (micros), ARGV[3] = limit
// Returns {allowed, count, oldest} with oldest in unix micros (0 = empty).
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
local count = redis.call('ZCARD', KEYS[1])

local oldest = 0
local first = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if first[2] then
	oldest = tonumber(first[2])
end

if count >= limit then
	return {0, count, oldest}
end

redis.call('ZADD', KEYS[1], now, now .. '-' .. redis.call('INCR', KEYS[1] .. ':seq'))
redis.call('PEXPIRE', KEYS[1], math.ceil(window / 1000))
redis.call('PEXPIRE', KEYS[1] .. ':seq', math.ceil(window / 1000))
return {1, count, oldest}
`)

// RedisStore keeps the sliding log in Redis sorted sets. Suited to
// deployments where rate limit traffic would dominate the relational
// store; entries expire via key TTLs so no retention job is needed.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Take, error) {
	res, err := takeScript.Run(ctx, s.client,
		[]string{key},
		time.Now().UnixMicro(), window.Microseconds(), limit,
	).Int64Slice()
	if err != nil {
		return Take{}, fmt.Errorf("redis take: %w", err)
	}
	if len(res) != 3 {
		return Take{}, fmt.Errorf("redis take: unexpected reply length %d", len(res))
	}

	take := Take{
		Allowed: res[0] == 1,
		Count:   res[1],
	}
	if res[2] > 0 {
		take.Oldest = time.UnixMicro(res[2])
	}
	return take, nil
}
