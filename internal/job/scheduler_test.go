package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobhub/internal/infrastructure/lock"
	"jobhub/internal/testutil"
)

func TestScheduler_RegisterValidation(t *testing.T) {
	s := NewScheduler(nil)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Register(Task{Name: "", Interval: time.Second, Timeout: time.Second, Handler: noop}))
	assert.Error(t, s.Register(Task{Name: "a", Interval: 0, Timeout: time.Second, Handler: noop}))
	assert.Error(t, s.Register(Task{Name: "a", Interval: time.Second, Timeout: time.Second}))
	require.NoError(t, s.Register(Task{Name: "a", Interval: time.Second, Timeout: time.Second, Handler: noop}))
	assert.Error(t, s.Register(Task{Name: "a", Interval: time.Second, Timeout: time.Second, Handler: noop}))
	assert.Equal(t, []string{"a"}, s.Tasks())
}

func TestScheduler_SingleFlightSkipsOverlap(t *testing.T) {
	logs := testutil.ObserveLogs(t)
	s := NewScheduler(nil)
	release := make(chan struct{})
	var calls atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  time.Minute,
		Handler: func(ctx context.Context) error {
			calls.Add(1)
			<-release
			return nil
		},
	}))

	ctx := context.Background()
	assert.True(t, s.Trigger(ctx, "slow"))
	assert.False(t, s.Trigger(ctx, "slow"))
	assert.Equal(t, 1, logs.FilterMessage("[Scheduler] 上一轮仍在执行，跳过本轮").Len())

	close(release)
	assert.Eventually(t, func() bool { return !s.IsRunning("slow") }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Trigger(ctx, "slow"))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_TimeoutReleasesFlag(t *testing.T) {
	s := NewScheduler(nil)
	stuck := make(chan struct{})
	defer close(stuck)
	require.NoError(t, s.Register(Task{
		Name:     "stuck",
		Interval: time.Hour,
		Timeout:  30 * time.Millisecond,
		Handler: func(ctx context.Context) error {
			// 不理会 ctx 的处理函数也不能一直占住运行标记
			<-stuck
			return nil
		},
	}))

	ctx := context.Background()
	require.True(t, s.Trigger(ctx, "stuck"))
	assert.Eventually(t, func() bool { return !s.IsRunning("stuck") }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Trigger(ctx, "stuck"))
}

func TestScheduler_HandlerErrorAndPanicReleaseFlag(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Register(Task{
		Name: "err", Interval: time.Hour, Timeout: time.Second,
		Handler: func(context.Context) error { return errors.New("boom") },
	}))
	require.NoError(t, s.Register(Task{
		Name: "panic", Interval: time.Hour, Timeout: time.Second,
		Handler: func(context.Context) error { panic("boom") },
	}))

	ctx := context.Background()
	require.True(t, s.Trigger(ctx, "err"))
	require.True(t, s.Trigger(ctx, "panic"))
	assert.Eventually(t, func() bool {
		return !s.IsRunning("err") && !s.IsRunning("panic")
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StartRunsOnInterval(t *testing.T) {
	s := NewScheduler(nil)
	var calls atomic.Int32
	require.NoError(t, s.Register(Task{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Timeout:  time.Second,
		Handler: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

func TestScheduler_DistributedLockSkipsWhenHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	factory := func(name string) TaskLock { return lock.NewTaskLock(client, name, time.Minute) }
	s := NewScheduler(factory)
	var calls atomic.Int32
	require.NoError(t, s.Register(Task{
		Name: "sync.job", Interval: time.Hour, Timeout: time.Second,
		Handler: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}))

	ctx := context.Background()
	other := lock.NewTaskLock(client, "sync.job", time.Minute)
	ok, err := other.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, s.Trigger(ctx, "sync.job"))
	assert.Eventually(t, func() bool { return !s.IsRunning("sync.job") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, other.Unlock(ctx))
	require.True(t, s.Trigger(ctx, "sync.job"))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !mr.Exists(lock.TaskLockKey("sync.job")) }, time.Second, 5*time.Millisecond)
}
