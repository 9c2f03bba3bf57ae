package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLock()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLock(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	first, err := NewRedisLock(server.Addr(), "", "test:lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(server.Addr(), "", "test:lock", time.Minute)
	require.NoError(t, err)

	release, err := first.Acquire(ctx)
	require.NoError(t, err)

	_, err = second.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	assert.False(t, server.Exists("test:lock"))

	release, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedisLock_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	first, err := NewRedisLock(server.Addr(), "", "test:lock", time.Second)
	require.NoError(t, err)
	second, err := NewRedisLock(server.Addr(), "", "test:lock", time.Minute)
	require.NoError(t, err)

	stale, err := first.Acquire(ctx)
	require.NoError(t, err)

	server.FastForward(2 * time.Second)

	_, err = second.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, server.Exists("test:lock"))
}

func TestRedisLock_RefreshExtendsOwnLockOnly(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	l, err := NewRedisLock(server.Addr(), "", "test:lock", time.Minute)
	require.NoError(t, err)

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	defer func() { _ = release(ctx) }()

	server.FastForward(40 * time.Second)
	assert.Equal(t, 20*time.Second, server.TTL("test:lock"))

	token, err := server.Get("test:lock")
	require.NoError(t, err)

	ok, err := l.refresh(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, server.TTL("test:lock"))

	ok, err = l.refresh(ctx, "someone-else")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLock_KeepsLockAliveWhileHeld(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	l, err := NewRedisLock(server.Addr(), "", "test:lock", 300*time.Millisecond)
	require.NoError(t, err)

	release, err := l.Acquire(ctx)
	require.NoError(t, err)

	server.FastForward(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		return server.TTL("test:lock") == 300*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, release(ctx))
	assert.False(t, server.Exists("test:lock"))
}

func TestRedisLock_FailsWhenRedisIsDown(t *testing.T) {
	server := miniredis.RunT(t)
	l, err := NewRedisLock(server.Addr(), "", "test:lock", time.Minute)
	require.NoError(t, err)
	server.Close()

	_, err = l.Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLocked))
}

func TestNewRedisLock_Validation(t *testing.T) {
	_, err := NewRedisLock("", "", "k", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock("localhost:6379", "", "", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock("localhost:6379", "", "k", 0)
	assert.Error(t, err)
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context) (Release, error) {
	return nil, ErrLocked
}

func TestChain_ReleasesHeldLocksOnFailure(t *testing.T) {
	ctx := context.Background()
	local := NewLocalLock()

	_, err := Chain{local, failingLocker{}}.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	release, err := local.Acquire(ctx)
	require.NoError(t, err, "local lock should have been released")
	require.NoError(t, release(ctx))
}

func TestChain_HoldsEveryLock(t *testing.T) {
	ctx := context.Background()
	a, b := NewLocalLock(), NewLocalLock()

	release, err := Chain{a, b}.Acquire(ctx)
	require.NoError(t, err)

	_, err = b.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	_, err = a.Acquire(ctx)
	assert.NoError(t, err)
}
