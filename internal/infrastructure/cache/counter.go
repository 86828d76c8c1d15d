package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"jobhub/internal/metrics"
	"jobhub/internal/model"
	"jobhub/pkg/logger"
)

// CounterStore 计数列的原子累加
type CounterStore interface {
	IncreaseCounter(ctx context.Context, tx *gorm.DB, id int64, column string, amount int64) error
	NotFoundErr() error
}

// OutboxRecorder 在同一事务内记录变更通知
type OutboxRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, targetType string, targetID int64, updateType string) (*model.OutboxEvent, error)
}

// FlushResult 一轮 flush 的统计
type FlushResult struct {
	Flushed int   // 成功落库的 id 数
	Failed  int   // 失败并已放回累加器的 id 数
	Dropped int   // 实体已不存在而丢弃的 id 数
	Amount  int64 // 成功落库的累加总量
}

// CounterCache 写回式计数缓存
//
// CountUp 只在内存里累加；Flush 定时把累加值一次性写回数据库，并记录 POPULARITY_ONLY 事件
// 让索引同步任务带上新的计数。
//
// Flush 用整表替换的方式摘下累加器：写锁只保护指针替换，写入方持读锁操作当前累加器，
// 替换完成后旧累加器上不会再有新的写入，不存在“复制后清空”之间丢计数的窗口。
type CounterCache struct {
	targetType string
	column     string
	db         *gorm.DB
	store      CounterStore
	outbox     OutboxRecorder

	mu   sync.RWMutex
	live *xsync.MapOf[int64, *xsync.Counter]
}

func NewCounterCache(db *gorm.DB, targetType, column string, store CounterStore, outbox OutboxRecorder) *CounterCache {
	return &CounterCache{
		targetType: targetType,
		column:     column,
		db:         db,
		store:      store,
		outbox:     outbox,
		live:       xsync.NewMapOf[int64, *xsync.Counter](),
	}
}

func (c *CounterCache) TargetType() string {
	return c.targetType
}

func (c *CounterCache) Column() string {
	return c.column
}

// CountUp 计数加一，不做任何 I/O
func (c *CounterCache) CountUp(id int64) {
	c.Add(id, 1)
}

// Add 累加 n，n <= 0 时忽略
func (c *CounterCache) Add(id int64, n int64) {
	if n <= 0 {
		return
	}
	c.mu.RLock()
	counter, _ := c.live.LoadOrCompute(id, func() *xsync.Counter {
		return xsync.NewCounter()
	})
	counter.Add(n)
	c.mu.RUnlock()
}

// Pending 尚未落库的累加值
func (c *CounterCache) Pending(id int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if counter, ok := c.live.Load(id); ok {
		return counter.Value()
	}
	return 0
}

// Size 累加器中的 id 数
func (c *CounterCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live.Size()
}

func (c *CounterCache) swap() *xsync.MapOf[int64, *xsync.Counter] {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.live
	c.live = xsync.NewMapOf[int64, *xsync.Counter]()
	return drained
}

// Flush 把摘下的累加值逐个 id 写回
//
// 每个 id 一个事务：原子累加 + 记录 POPULARITY_ONLY 事件。单个 id 失败时记录日志，
// 累加值放回当前累加器等下一轮重试，不影响其他 id。ctx 超时后剩余的 id 全部放回。
func (c *CounterCache) Flush(ctx context.Context) FlushResult {
	var res FlushResult
	drained := c.swap()

	drained.Range(func(id int64, counter *xsync.Counter) bool {
		amount := counter.Value()
		if amount <= 0 {
			return true
		}
		if ctx.Err() != nil {
			c.Add(id, amount)
			res.Failed++
			return true
		}

		err := c.flushOne(ctx, id, amount)
		switch {
		case err == nil:
			res.Flushed++
			res.Amount += amount
			metrics.CounterFlushed.WithLabelValues(c.targetType, c.column).Add(float64(amount))
		case errors.Is(err, c.store.NotFoundErr()):
			res.Dropped++
			logger.Warn("[CounterCache] 实体不存在，丢弃计数",
				zap.String("target_type", c.targetType),
				zap.String("column", c.column),
				zap.Int64("id", id),
				zap.Int64("amount", amount))
		default:
			c.Add(id, amount)
			res.Failed++
			metrics.CounterFlushFailures.WithLabelValues(c.targetType, c.column).Inc()
			logger.Error("[CounterCache] 计数落库失败，放回等待下一轮",
				zap.String("target_type", c.targetType),
				zap.String("column", c.column),
				zap.Int64("id", id),
				zap.Int64("amount", amount),
				zap.Error(err))
		}
		return true
	})

	if res.Flushed > 0 || res.Failed > 0 {
		logger.Info("[CounterCache] flush 完成",
			zap.String("target_type", c.targetType),
			zap.String("column", c.column),
			zap.Int("flushed", res.Flushed),
			zap.Int("failed", res.Failed),
			zap.Int64("amount", res.Amount))
	}
	return res
}

func (c *CounterCache) flushOne(ctx context.Context, id int64, amount int64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.store.IncreaseCounter(ctx, tx, id, c.column, amount); err != nil {
			return err
		}
		_, err := c.outbox.Record(ctx, tx, c.targetType, id, model.UpdateTypePopularityOnly)
		return err
	})
}
