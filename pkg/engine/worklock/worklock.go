package worklock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
	"github.com/voxflow/voxflow/pkg/common/validation"
)

// Lua scripts keep the check-and-act sequences atomic: a lock is only
// refreshed or released by the run that owns it.
const (
	luaRelease = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

	luaRefresh = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`
)

// Config holds configuration for a work directory lock.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key guarding the work directory. Convention:
	// "voxflow:lock:<workdir>/<workflow>".
	Key string

	// TTL is how long the lock survives without a refresh, so a crashed
	// run cannot fence the directory forever. Defaults to 30s.
	TTL time.Duration

	// RefreshInterval controls how often the holder extends the TTL.
	// Defaults to TTL/3.
	RefreshInterval time.Duration

	// RedisTimeout is the timeout for Redis operations. Defaults to 500ms.
	RedisTimeout time.Duration
}

// validate checks the configuration and applies defaults.
func (c *Config) validate() error {
	if err := validation.ValidateNotNil("worklock", "Redis", c.Redis); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("worklock", "Key", c.Key); err != nil {
		return err
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = c.TTL / 3
	}
	if c.RedisTimeout <= 0 {
		c.RedisTimeout = 500 * time.Millisecond
	}
	return nil
}

// Lock is a Redis-backed mutual exclusion lock for a shared work directory.
// It satisfies workflow.Locker: the engine acquires it before any instance
// writes and releases it when the run finishes.
type Lock struct {
	config Config
	token  string

	releaseScript *redis.Script
	refreshScript *redis.Script

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a work directory lock. The lock is inert until Lock is called.
func New(config Config) (*Lock, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Lock{
		config:        config,
		token:         uuid.NewString(),
		releaseScript: redis.NewScript(luaRelease),
		refreshScript: redis.NewScript(luaRefresh),
	}, nil
}

// Lock attempts to acquire the lock. It does not block waiting for another
// holder: a held lock returns ErrLockHeld immediately, since two engines
// sweeping the same work directory is a configuration mistake, not a queue.
func (l *Lock) Lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	ok, err := l.config.Redis.SetNX(ctx, l.config.Key, l.token, l.config.TTL).Result()
	if err != nil {
		return fmt.Errorf("acquiring lock %q: %w", l.config.Key, err)
	}
	if !ok {
		return fmt.Errorf("lock %q: %w", l.config.Key, vferrors.ErrLockHeld)
	}

	l.mu.Lock()
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.refreshLoop(l.stopCh, l.doneCh)
	l.mu.Unlock()

	return nil
}

// Unlock releases the lock if this instance still holds it.
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if l.stopCh != nil {
		close(l.stopCh)
		<-l.doneCh
		l.stopCh = nil
		l.doneCh = nil
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
	defer cancel()

	n, err := l.releaseScript.Run(ctx, l.config.Redis, []string{l.config.Key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("releasing lock %q: %w", l.config.Key, err)
	}
	if n == 0 {
		return fmt.Errorf("releasing lock %q: not held by this run", l.config.Key)
	}
	return nil
}

// refreshLoop extends the TTL until Unlock stops it. A refresh that finds the
// key gone or owned by someone else gives up silently; the next write by this
// run is already unsafe and Unlock will report it.
func (l *Lock) refreshLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(l.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.config.RedisTimeout)
			n, err := l.refreshScript.Run(ctx, l.config.Redis,
				[]string{l.config.Key}, l.token, l.config.TTL.Milliseconds()).Int()
			cancel()
			if err != nil || n == 0 {
				return
			}
		}
	}
}
