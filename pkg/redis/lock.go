package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/nettle/internal/tracing"
)

var (
	// ErrLockNotAcquired is returned when a lock is held by someone else
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing or extending a lock we no longer own
	ErrLockNotHeld = errors.New("lock not held")
)

const defaultKeyPrefix = "nettle:lock:"

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held distributed lock
type Lock struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Key returns the full redis key of the lock
func (lock *Lock) Key() string {
	return lock.key
}

// Locker hands out distributed locks so only one dedup run executes at a time
type Locker struct {
	client    *Client
	keyPrefix string
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to take the lock once
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	ctx, span := tracing.StartSpan(ctx, "redis.Locker.Acquire")
	defer span.End()

	lockKey := l.keyPrefix + key
	lockValue := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lock: %s", lockKey)

	return &Lock{
		client: l.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// TryAcquire retries Acquire with capped exponential backoff until timeout
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		lock, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

// Release deletes the lock if we still own it
func (lock *Lock) Release(ctx context.Context) error {
	lock.stopKeepAlive()

	result, err := releaseScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.client.logger.WithContext(ctx).Debugf("Released lock: %s", lock.key)
	return nil
}

// Extend resets the lock's TTL if we still own it
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.client.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}

	lock.ttl = ttl
	return nil
}

// KeepAlive extends the lock every ttl/3 until Release is called or ctx ends
func (lock *Lock) KeepAlive(ctx context.Context) {
	lock.stop = make(chan struct{})
	lock.done = make(chan struct{})

	interval := lock.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(lock.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-lock.stop:
				return
			case <-ticker.C:
				if err := lock.Extend(ctx, lock.ttl); err != nil {
					lock.client.logger.WithContext(ctx).WithError(err).Warnf("Failed to extend lock: %s", lock.key)
					return
				}
			}
		}
	}()
}

func (lock *Lock) stopKeepAlive() {
	if lock.stop == nil {
		return
	}
	lock.once.Do(func() {
		close(lock.stop)
		<-lock.done
	})
}

// WithLock runs fn while holding the lock, extending it for as long as fn runs
func (l *Locker) WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	var (
		lock *Lock
		err  error
	)
	if wait > 0 {
		lock, err = l.TryAcquire(ctx, key, ttl, wait)
	} else {
		lock, err = l.Acquire(ctx, key, ttl)
	}
	if err != nil {
		return err
	}

	lock.KeepAlive(ctx)
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.client.logger.WithContext(ctx).WithError(err).Warnf("Failed to release lock: %s", lock.key)
		}
	}()

	return fn(ctx)
}
