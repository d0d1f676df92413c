//go:build integration

package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, setupRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	a := NewRedisLock(client, "whale-alert:test-cycle", time.Minute)
	b := NewRedisLock(client, "whale-alert:test-cycle", time.Minute)

	release, err := a.TryLock(ctx)
	require.NoError(t, err)

	_, err = b.TryLock(ctx)
	require.ErrorIs(t, err, ErrCycleInProgress)

	release()
	releaseB, err := b.TryLock(ctx)
	require.NoError(t, err)

	// a stale release must not free a lock someone else now holds
	release()
	_, err = a.TryLock(ctx)
	require.ErrorIs(t, err, ErrCycleInProgress)
	releaseB()
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, setupRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	lock := NewRedisLock(client, "whale-alert:expiring", 200*time.Millisecond)
	_, err = lock.TryLock(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		release, err := lock.TryLock(ctx)
		if err != nil {
			return false
		}
		release()
		return true
	}, 5*time.Second, 50*time.Millisecond)
}
