package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, ":8000", cfg.HTTP.Addr)
	require.Equal(t, "local", cfg.Storage.Locker)
	require.Equal(t, 30*time.Second, cfg.Lock.TTL)
	require.Equal(t, 50*time.Millisecond, cfg.Lock.RetryInterval)
	require.Equal(t, "root", cfg.Auth.RootUsername)
	require.Equal(t, "root123", cfg.Auth.RootPassword)
	require.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 20, cfg.Pagination.DefaultPageSize)
	require.Equal(t, 100, cfg.Pagination.MaxPageSize)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, "voidview:lock:", cfg.Lock.KeyPrefix)
	require.Equal(t, "voidview:rl:login:", cfg.RateLimit.KeyPrefix)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dir: /srv/voidview\nhttp:\n  addr: \":9000\"\n"), 0o600))
	t.Setenv("VOIDVIEW_HTTP_ADDR", ":9100")
	t.Setenv("VOIDVIEW_AUTH_BCRYPT_COST", "4")
	t.Setenv("VOIDVIEW_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/voidview", cfg.Storage.Dir)
	require.Equal(t, ":9100", cfg.HTTP.Addr)
	require.Equal(t, 4, cfg.Auth.BcryptCost)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "./data", cfg.Storage.Dir)
}
