package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cine-prompt-server/modules/common/apperror"
)

// fakeRedis - SETNX/compare-and-delete over a map
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	setErr  error
	evalled int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalled++
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "s1:storyboard")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "s1:storyboard")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	other, err := g.Acquire(ctx, "s1:transition")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := g.Acquire(ctx, "s1:storyboard")
	require.NoError(t, err)
	again()
}

func TestRedisGuard(t *testing.T) {
	fake := newFakeRedis()
	g := NewRedisGuard(fake, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, GuardKey("s1", "storyboard"))
	require.NoError(t, err)
	assert.Contains(t, fake.values, "cineprompt:inflight:s1:storyboard")

	_, err = g.Acquire(ctx, GuardKey("s1", "storyboard"))
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	release()
	release()
	assert.Equal(t, 1, fake.evalled)
	assert.NotContains(t, fake.values, "cineprompt:inflight:s1:storyboard")

	next, err := g.Acquire(ctx, GuardKey("s1", "storyboard"))
	require.NoError(t, err)
	next()
}

func TestRedisGuard_ReleaseDoesNotDropForeignLock(t *testing.T) {
	fake := newFakeRedis()
	g := NewRedisGuard(fake, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "s1:storyboard")
	require.NoError(t, err)

	// lock expired and was taken by another instance
	fake.values["cineprompt:inflight:s1:storyboard"] = "someone-else"
	release()

	assert.Equal(t, "someone-else", fake.values["cineprompt:inflight:s1:storyboard"])
}

func TestRedisGuard_FailsOpen(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("connection refused")
	g := NewRedisGuard(fake, time.Minute)

	release, err := g.Acquire(context.Background(), "s1:storyboard")
	require.NoError(t, err)
	require.NotNil(t, release)
	release()
	assert.Equal(t, 0, fake.evalled)
}

func TestGuardKey(t *testing.T) {
	assert.Equal(t, "abc:transition", GuardKey("abc", "transition"))
}
