package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/voidview/internal/config"
	"github.com/jmehdipour/voidview/internal/db"
	"github.com/jmehdipour/voidview/internal/lock"
	"github.com/jmehdipour/voidview/internal/logger"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// storage is what every command needs: the config, the opened backend and,
// when redis.addr is set, the Redis client. Redis backs the login throttle
// and, with storage.locker=redis, the file locks.
type storage struct {
	cfg     config.Config
	backend *tabular.Backend
	redis   *redis.Client
}

func (s *storage) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	logger.Sync()
}

var errRedisAddrRequired = errors.New("storage.locker=redis needs redis.addr")

func openStorage(ctx context.Context) (*storage, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	switch cfg.Storage.Locker {
	case "", "local":
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, errRedisAddrRequired
		}
	default:
		return nil, fmt.Errorf("unknown storage.locker %q", cfg.Storage.Locker)
	}

	s := &storage{cfg: cfg}
	if cfg.Redis.Addr != "" {
		s.redis, err = db.NewRedisClient(ctx, db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		logger.Log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Storage.Locker == "redis" {
		locker = lock.NewRedis(s.redis, lock.RedisOpts{
			KeyPrefix:     cfg.Lock.KeyPrefix,
			TTL:           cfg.Lock.TTL,
			RetryInterval: cfg.Lock.RetryInterval,
		})
	}

	s.backend, err = tabular.Open(ctx, cfg.Storage.Dir, locker,
		tabular.WithLogger(logger.Log),
		tabular.WithSeed(tabular.FileUsers, repository.SeedRoot(repository.RootAccount{
			Username:    cfg.Auth.RootUsername,
			Password:    cfg.Auth.RootPassword,
			DisplayName: cfg.Auth.RootDisplayName,
			Cost:        cfg.Auth.BcryptCost,
		})),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open storage %s: %w", cfg.Storage.Dir, err)
	}
	return s, nil
}
