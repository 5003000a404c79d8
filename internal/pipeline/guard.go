package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard admits at most one pipeline run at a time.
type Guard interface {
	// TryAcquire never blocks waiting for a holder. ok is false when another
	// run holds the guard; release must be called once when ok is true.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalGuard serializes runs within one process.
type LocalGuard struct {
	mu sync.Mutex
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !g.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(g.mu.Unlock) }, true, nil
}

const DefaultLockTTL = 10 * time.Minute

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard serializes runs across instances sharing one Redis. The lock
// expires after ttl so a crashed holder cannot block runs forever.
type RedisGuard struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, key string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{client: client, key: key, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", g.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, g.client, []string{g.key}, token).Err()
		})
	}
	return release, true, nil
}
