// Package lock provides a Redis-backed mutex that keeps two sync runs from
// overlapping across processes.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = eris.New("lock: already held")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a lock backed by SET NX with a TTL.
type Redis struct {
	client redis.UniversalClient
}

// New connects to Redis.
func New(opts Options) *Redis {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}))
}

// NewWithClient wraps an existing client.
func NewWithClient(c redis.UniversalClient) *Redis {
	return &Redis{client: c}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return eris.Wrap(r.client.Ping(ctx).Err(), "lock: redis ping")
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Acquire takes the lock at key for at most ttl. The returned release
// func only deletes the key if this holder still owns it.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "lock: acquire %s", key)
	}
	if !ok {
		return nil, eris.Wrapf(ErrNotAcquired, "lock: %s", key)
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{key}, token).Err()
		return eris.Wrapf(err, "lock: release %s", key)
	}
	return release, nil
}
