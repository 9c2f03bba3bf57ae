// Package lock guards sync passes against overlapping runs, either inside one
// process or across every agent sharing a Redis instance.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("lock is held by another run")

// Release gives a lock back. It is safe to call once.
type Release func(ctx context.Context) error

// Locker hands out a non-blocking, exclusive lock.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// LocalLock is an in-process Locker.
type LocalLock struct {
	mutex sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) Acquire(ctx context.Context) (Release, error) {
	if !l.mutex.TryLock() {
		return nil, ErrLocked
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mutex.Unlock)
		return nil
	}, nil
}

// Chain acquires every locker in order. If one fails, the ones already held
// are released before the error is returned.
type Chain []Locker

func (c Chain) Acquire(ctx context.Context) (Release, error) {
	held := make([]Release, 0, len(c))

	releaseAll := func(ctx context.Context) error {
		var errs []error
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, locker := range c {
		release, err := locker.Acquire(ctx)
		if err != nil {
			_ = releaseAll(ctx)
			return nil, err
		}
		held = append(held, release)
	}

	return releaseAll, nil
}
