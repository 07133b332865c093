package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

const maxTries = 1000

var (
	ErrNilRedisClient     = errors.New("redis client is nil")
	ErrExpiryInvalid      = errors.New("lock expiry must be greater than 0")
	ErrTriesInvalid       = errors.New("lock tries must be between 1 and 1000")
	ErrRetryDelayNegative = errors.New("lock retry delay cannot be negative")
	ErrDriftFactorInvalid = errors.New("lock drift factor must be between 0 (inclusive) and 1 (exclusive)")
)

// RedisOptions tunes the RedLock mutex. Expiry bounds how long a crashed
// holder can keep a key locked.
type RedisOptions struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

func (o RedisOptions) validate() error {
	if o.Expiry <= 0 {
		return ErrExpiryInvalid
	}
	if o.Tries < 1 || o.Tries > maxTries {
		return ErrTriesInvalid
	}
	if o.RetryDelay < 0 {
		return ErrRetryDelayNegative
	}
	if o.DriftFactor < 0 || o.DriftFactor >= 1 {
		return ErrDriftFactorInvalid
	}
	return nil
}

// Redis is a Locker shared by every process pointed at the same Redis, using
// the RedLock algorithm from redsync.
type Redis struct {
	redsync *redsync.Redsync
	opts    RedisOptions
}

func NewRedis(client goredislib.UniversalClient, opts RedisOptions) (*Redis, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Redis{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
	}, nil
}

func (r *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return ErrNilFunc
	}

	mutex := r.redsync.NewMutex(
		key,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
		redsync.WithDriftFactor(r.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		logger.Error("redis lock acquire failed", err, logger.Fields{"lockKey": key})
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}

	defer func() {
		// A fresh context so that a cancelled caller still releases the key.
		unlockCtx, cancel := context.WithTimeout(context.Background(), r.opts.Expiry)
		defer cancel()

		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			logger.Error("redis lock release failed", err, logger.Fields{
				"lockKey":  key,
				"unlockOk": ok,
			})
		}
	}()

	return fn(ctx)
}
