package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"videoqa/internal/contextutil"
)

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "videoqa:lease:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared across processes through Redis.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// ConnectRedis connects to Redis at addr and verifies the connection.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisLocker creates a locker over client. ttl <= 0 selects DefaultTTL.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Key returns the Redis key guarding a lease.
func Key(key string) string {
	return keyPrefix + key
}

// Acquire sets the lease key with NX and a TTL.
// The release func removes it only while this holder's token is still stored.
func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, Key(key), token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	return func() {
		// Release must outlive a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, r.client, []string{Key(key)}, token).Err(); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to release lease", "key", key, "error", err)
		}
	}, nil
}
