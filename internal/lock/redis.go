package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/voidview/internal/util"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOpts configures a Redis-backed Locker.
type RedisOpts struct {
	KeyPrefix     string        // e.g. "voidview:lock:"
	TTL           time.Duration // lease length, default 30s
	RetryInterval time.Duration // poll interval while contended, default 50ms
}

// Redis serializes access to a file across processes sharing one Redis.
// The lease expires after TTL, so a crashed holder cannot wedge the file.
type Redis struct {
	client *redis.Client
	opts   RedisOpts
}

func NewRedis(client *redis.Client, opts RedisOpts) *Redis {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "voidview:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	return &Redis{client: client, opts: opts}
}

var _ Locker = (*Redis)(nil)

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	if r.client == nil {
		return nil, errors.New("redis lock: nil client")
	}
	k := r.opts.KeyPrefix + key
	token := util.New()

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", k, err)
		}
		if ok {
			return func() {
				// release with a fresh context: the caller's may already be done
				rctx, cancel := context.WithTimeout(context.Background(), r.opts.TTL)
				defer cancel()
				_ = releaseScript.Run(rctx, r.client, []string{k}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
