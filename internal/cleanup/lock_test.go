package cleanup

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func lockClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRunLockSerialisesRuns(t *testing.T) {
	client := lockClient(t)
	lock := RunLock{R: client, TTL: time.Minute}
	ctx := context.Background()

	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- lock.WithLock(ctx, func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	err := lock.WithLock(ctx, func(context.Context) error {
		t.Error("second run must not start while lock is held")
		return nil
	})
	require.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)

	// lock released, a new run may proceed
	ran := false
	require.NoError(t, lock.WithLock(ctx, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestRunLockWithoutRedisRunsAnyway(t *testing.T) {
	ran := false
	err := RunLock{}.WithLock(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestRunLockReleasesAfterFailure(t *testing.T) {
	client := lockClient(t)
	lock := RunLock{R: client, TTL: time.Minute}
	ctx := context.Background()

	wantErr := context.DeadlineExceeded
	err := lock.WithLock(ctx, func(context.Context) error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	require.NoError(t, lock.WithLock(ctx, func(context.Context) error { return nil }))
}
