package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked means another run holds the lock
var ErrLocked = errors.New("run already in progress")

// releaseScript deletes the lock only if it still holds our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RunLock keeps two pipeline runs from overlapping
type RunLock struct {
	client   redis.Cmdable
	key      string
	ttl      time.Duration
	newToken func() string
}

// NewRunLock creates a lock on sgp:lock:<name>
func NewRunLock(client redis.Cmdable, name string, ttl time.Duration) *RunLock {
	return &RunLock{
		client:   client,
		key:      fmt.Sprintf("sgp:lock:%s", name),
		ttl:      ttl,
		newToken: uuidToken,
	}
}

func uuidToken() string {
	return uuid.New().String()
}

// Key returns the Redis key of the lock
func (l *RunLock) Key() string {
	return l.key
}

// Acquire takes the lock or returns ErrLocked. The returned func releases it.
func (l *RunLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", l.key, err)
		}
		return nil
	}
	return release, nil
}
