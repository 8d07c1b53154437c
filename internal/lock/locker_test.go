package lock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLocal_ExcludesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "users")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(ctx, "users")
		require.NoError(t, err)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder got the lock while the first still held it")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
}

func TestLocal_KeysAreIndependent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	u1, err := l.Lock(ctx, "users")
	require.NoError(t, err)
	defer u1()

	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	u2, err := l.Lock(tctx, "entities")
	require.NoError(t, err)
	u2()
}

func TestLocal_WaiterHonorsContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "users")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "users")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_UnlockTwiceIsHarmless(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "users")
	require.NoError(t, err)
	unlock()
	unlock()

	// a second release must not have freed a slot held by someone else
	u2, err := l.Lock(ctx, "users")
	require.NoError(t, err)
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(tctx, "users")
	require.Error(t, err)
	u2()
}

func TestLocal_CounterUnderContention(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "k")
			if err != nil {
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

// TestRedis runs against a live server named by VOIDVIEW_TEST_REDIS_ADDR.
func TestRedis(t *testing.T) {
	addr := os.Getenv("VOIDVIEW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VOIDVIEW_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, RedisOpts{KeyPrefix: "voidview:test:" + t.Name() + ":", TTL: 5 * time.Second, RetryInterval: 5 * time.Millisecond})
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "users")
	require.NoError(t, err)

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(tctx, "users")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	u2, err := l.Lock(ctx, "users")
	require.NoError(t, err)
	u2()
}

func TestRedis_NilClient(t *testing.T) {
	_, err := NewRedis(nil, RedisOpts{}).Lock(context.Background(), "users")
	require.Error(t, err)
}
