package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedis(client, RedisOptions{
		Expiry:      5 * time.Second,
		Tries:       200,
		RetryDelay:  5 * time.Millisecond,
		DriftFactor: 0.01,
	})
	require.NoError(t, err)
	return mr, locker
}

func TestRedisWithLockRunsAndReleases(t *testing.T) {
	mr, locker := newTestRedis(t)

	key := AccountKey("acc-1")
	err := locker.WithLock(context.Background(), key, func(context.Context) error {
		assert.True(t, mr.Exists(key))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestRedisSerializesSameKey(t *testing.T) {
	_, locker := newTestRedis(t)

	var inside, overlaps atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return locker.WithLock(ctx, LoanKey("l-1"), func(context.Context) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
		})
	}

	require.NoError(t, g.Wait())
	assert.Zero(t, overlaps.Load())
}

func TestRedisPassesThroughFnError(t *testing.T) {
	_, locker := newTestRedis(t)
	sentinel := errors.New("insufficient")

	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestRedisFailsWhenKeyHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedis(client, RedisOptions{
		Expiry:     time.Second,
		Tries:      2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, mr.Set("lock:account:busy", "other-holder"))

	err = locker.WithLock(context.Background(), "lock:account:busy", func(context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.Error(t, err)
}

func TestNewRedisValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name string
		opts RedisOptions
		want error
	}{
		{name: "zero expiry", opts: RedisOptions{Tries: 1}, want: ErrExpiryInvalid},
		{name: "no tries", opts: RedisOptions{Expiry: time.Second}, want: ErrTriesInvalid},
		{name: "negative delay", opts: RedisOptions{Expiry: time.Second, Tries: 1, RetryDelay: -1}, want: ErrRetryDelayNegative},
		{name: "drift", opts: RedisOptions{Expiry: time.Second, Tries: 1, DriftFactor: 1}, want: ErrDriftFactorInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedis(client, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewRedis(nil, DefaultRedisOptions())
	assert.ErrorIs(t, err, ErrNilRedisClient)
}
