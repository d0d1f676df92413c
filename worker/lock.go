package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCycleInProgress = errors.New("polling cycle already in progress")

// CycleLock guarantees at most one polling cycle in flight. TryLock never
// waits: it fails with ErrCycleInProgress when the lock is held.
type CycleLock interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// LocalLock guards a single process.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	return l.mu.Unlock, nil
}

// release only deletes the key when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// RedisLock guards every instance sharing one Redis. The key expires after ttl
// so a crashed holder cannot wedge polling.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisLock(client redis.UniversalClient, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLock) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrCycleInProgress
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil {
			log.Warn("failed to release cycle lock", "key", l.key, "err", err)
		}
	}, nil
}
