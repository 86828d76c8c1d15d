package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"jobhub/internal/model"
	"jobhub/internal/repository"
	"jobhub/internal/testutil"
)

func newJobCounter(t *testing.T) (*CounterCache, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	jobs := repository.NewJobRepository(db)
	outbox := repository.NewOutboxRepository(db)
	return NewCounterCache(db, model.TargetTypeJob, model.CounterViewCount, jobs, outbox), db
}

func seedJob(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Job{ID: id, Title: "job"}).Error)
}

func viewCount(t *testing.T, db *gorm.DB, id int64) int64 {
	t.Helper()
	var job model.Job
	require.NoError(t, db.First(&job, id).Error)
	return job.Popularity.ViewCount
}

func popularityEvents(t *testing.T, db *gorm.DB, id int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.OutboxEvent{}).
		Where("target_id = ? AND update_type = ?", id, model.UpdateTypePopularityOnly).
		Count(&n).Error)
	return n
}

func TestCounterCache_FlushAppliesOneIncrement(t *testing.T) {
	cc, db := newJobCounter(t)
	seedJob(t, db, 1)

	for i := 0; i < 7; i++ {
		cc.CountUp(1)
	}
	assert.Equal(t, int64(7), cc.Pending(1))

	res := cc.Flush(context.Background())
	assert.Equal(t, 1, res.Flushed)
	assert.Equal(t, int64(7), res.Amount)
	assert.Equal(t, int64(7), viewCount(t, db, 1))
	assert.Equal(t, int64(1), popularityEvents(t, db, 1))
	assert.Equal(t, int64(0), cc.Pending(1))

	// 第二次 flush 不会重复计数
	res = cc.Flush(context.Background())
	assert.Equal(t, 0, res.Flushed)
	assert.Equal(t, int64(7), viewCount(t, db, 1))
	assert.Equal(t, int64(1), popularityEvents(t, db, 1))
}

func TestCounterCache_ConcurrentCountUpDuringFlush(t *testing.T) {
	cc, db := newJobCounter(t)
	seedJob(t, db, 1)

	const writers, perWriter = 8, 500
	var wg sync.WaitGroup
	stop := make(chan struct{})
	flushed := make(chan int64, 1)

	go func() {
		var total int64
		for {
			select {
			case <-stop:
				flushed <- total
				return
			default:
				total += cc.Flush(context.Background()).Amount
			}
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				cc.CountUp(1)
			}
		}()
	}
	wg.Wait()
	close(stop)
	total := <-flushed
	total += cc.Flush(context.Background()).Amount

	assert.Equal(t, int64(writers*perWriter), total)
	assert.Equal(t, int64(writers*perWriter), viewCount(t, db, 1))
	assert.Equal(t, int64(0), cc.Pending(1))
}

type flakyStore struct {
	CounterStore
	failID int64
}

func (s *flakyStore) IncreaseCounter(ctx context.Context, tx *gorm.DB, id int64, column string, amount int64) error {
	if id == s.failID {
		return errors.New("lock wait timeout")
	}
	return s.CounterStore.IncreaseCounter(ctx, tx, id, column, amount)
}

func TestCounterCache_FailureIsIsolatedAndRetained(t *testing.T) {
	db := testutil.NewDB(t)
	for id := int64(1); id <= 3; id++ {
		seedJob(t, db, id)
	}
	store := &flakyStore{CounterStore: repository.NewJobRepository(db), failID: 2}
	cc := NewCounterCache(db, model.TargetTypeJob, model.CounterViewCount, store, repository.NewOutboxRepository(db))

	for id := int64(1); id <= 3; id++ {
		cc.Add(id, 5)
	}
	res := cc.Flush(context.Background())
	assert.Equal(t, 2, res.Flushed)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, int64(5), viewCount(t, db, 1))
	assert.Equal(t, int64(0), viewCount(t, db, 2))
	assert.Equal(t, int64(5), viewCount(t, db, 3))
	assert.Equal(t, int64(5), cc.Pending(2))
	assert.Equal(t, int64(0), popularityEvents(t, db, 2))

	store.failID = 0
	res = cc.Flush(context.Background())
	assert.Equal(t, 1, res.Flushed)
	assert.Equal(t, int64(5), viewCount(t, db, 2))
}

func TestCounterCache_MissingEntityIsDropped(t *testing.T) {
	cc, _ := newJobCounter(t)
	cc.Add(99, 3)

	res := cc.Flush(context.Background())
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, int64(0), cc.Pending(99))
}

func TestCounterCache_CancelledContextKeepsCounts(t *testing.T) {
	cc, db := newJobCounter(t)
	seedJob(t, db, 1)
	cc.Add(1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := cc.Flush(ctx)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(4), cc.Pending(1))
	assert.Equal(t, int64(0), viewCount(t, db, 1))
}

func TestCounterCache_IgnoresNonPositive(t *testing.T) {
	cc, _ := newJobCounter(t)
	cc.Add(1, 0)
	cc.Add(1, -3)
	assert.Equal(t, 0, cc.Size())
}
