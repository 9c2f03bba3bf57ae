package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another agent is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key's ttl only while it still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a Locker shared by every process using the same key.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLock(addr, password, key string, ttl time.Duration) (*RedisLock, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis lock addr is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("redis lock key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("redis lock requires a positive ttl")
	}

	return &RedisLock{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key: key,
		ttl: ttl,
	}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire redis lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	stop := make(chan struct{})
	go l.keepalive(token, stop)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release redis lock: %w", err)
		}
		return nil
	}, nil
}

// keepalive extends the lock every ttl/3 until stop is closed or the key
// no longer carries token.
func (l *RedisLock) keepalive(token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			ok, err := l.refresh(ctx, token)
			cancel()
			if err == nil && !ok {
				return
			}
		}
	}
}

func (l *RedisLock) refresh(ctx context.Context, token string) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("refresh redis lock: %w", err)
	}
	return n == 1, nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}
