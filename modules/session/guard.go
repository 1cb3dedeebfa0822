package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
)

// Guard - at most one submission per key at a time
type Guard interface {
	// Acquire - CONFLICT error when the key is already held
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func errInFlight() error {
	return apperror.Conflict("a generation is already in progress for this session")
}

// MemoryGuard - single process guard
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, errInFlight()
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// redisLocker - the subset of *redis.Client the guard uses
type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// deletes the key only if this holder still owns it
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// RedisGuard - SETNX lock with TTL, shared by every server instance
type RedisGuard struct {
	client redisLocker
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client redisLocker, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, prefix: "cineprompt:inflight:"}
}

// Acquire - a Redis outage lets the request through with a warning
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := g.prefix + key
	owner := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, owner, g.ttl).Result()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", redisKey).Msg("[Guard] redis unavailable, continuing without lock")
		return func() {}, nil
	}
	if !ok {
		return nil, errInFlight()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.client.Eval(releaseCtx, releaseScript, []string{redisKey}, owner).Err(); err != nil {
				log.Warn().Err(err).Str("key", redisKey).Msg("[Guard] failed to release lock, it will expire")
			}
		})
	}, nil
}

// GuardKey - one lock per session and generation kind
func GuardKey(sessionID, kind string) string {
	return fmt.Sprintf("%s:%s", sessionID, kind)
}
