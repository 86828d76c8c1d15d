package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"jobhub/internal/infrastructure/mq"
	"jobhub/internal/infrastructure/search"
	"jobhub/internal/metrics"
	"jobhub/internal/model"
	"jobhub/internal/projection"
	"jobhub/internal/repository"
	"jobhub/pkg/logger"
)

// Notifier 索引写入成功后的通知
type Notifier interface {
	Notify(ctx context.Context, msg mq.IndexSynced) error
}

// EntityDescriptor 描述一种实体如何从规范存储读出并投影成索引文档
type EntityDescriptor[E any] struct {
	TargetType string
	Collection string
	Load       func(ctx context.Context, id int64) (*E, error)
	// Load 返回该错误表示实体已不存在
	NotFound error
	Project  func(entity *E) (interface{}, error)
}

type SyncOptions struct {
	BatchSize            int
	UpdateTypes          []string
	MaxRetry             int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	ProcessingLease      time.Duration
}

// SyncReport 一轮同步的统计
type SyncReport struct {
	Reclaimed    int64
	Fetched      int
	Claimed      int
	Completed    int
	Failed       int
	DeadLettered int
	Released     int
}

// IndexSynchronizer 消费 outbox 事件，把实体当前状态同步到搜索索引
//
// 事件只是“某个实体变了”的提示，每次都重新读取实体并整篇覆盖写入，
// 所以同一实体的事件乱序、重复都会收敛到同一个文档。
type IndexSynchronizer[E any] struct {
	desc     EntityDescriptor[E]
	outbox   *repository.OutboxRepository
	index    search.Index
	notifier Notifier
	opts     SyncOptions
	now      func() time.Time
}

func NewIndexSynchronizer[E any](desc EntityDescriptor[E], outbox *repository.OutboxRepository, index search.Index, opts SyncOptions, notifier Notifier) *IndexSynchronizer[E] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 5
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 2 * time.Second
	}
	if opts.RetryMaxInterval <= 0 {
		opts.RetryMaxInterval = 5 * time.Minute
	}
	if opts.ProcessingLease <= 0 {
		opts.ProcessingLease = 2 * time.Minute
	}
	return &IndexSynchronizer[E]{
		desc:     desc,
		outbox:   outbox,
		index:    index,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *IndexSynchronizer[E]) TargetType() string {
	return s.desc.TargetType
}

// RunOnce 执行一轮同步
//
// 单个事件失败只影响它自己：标记 FAILED、retry_count 加一并计算下次重试时间，其余事件照常处理。
// 只有拉取或抢占阶段的错误会返回给调用方。
func (s *IndexSynchronizer[E]) RunOnce(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	tt := s.desc.TargetType
	start := time.Now()
	defer func() {
		metrics.SyncBatchDuration.WithLabelValues(tt).Observe(time.Since(start).Seconds())
	}()

	reclaimed, err := s.outbox.ReclaimStale(ctx, tt, s.now().Add(-s.opts.ProcessingLease))
	if err != nil {
		return report, fmt.Errorf("回收超时事件失败: %w", err)
	}
	report.Reclaimed = reclaimed
	if reclaimed > 0 {
		logger.Warn("[IndexSync] 回收超过租期的 PROCESSING 事件",
			zap.String("target_type", tt), zap.Int64("count", reclaimed))
	}

	events, err := s.outbox.FetchPending(ctx, repository.PollFilter{
		TargetType:  tt,
		UpdateTypes: s.opts.UpdateTypes,
		Limit:       s.opts.BatchSize,
		MaxRetry:    s.opts.MaxRetry,
		Now:         s.now(),
	})
	if err != nil {
		return report, fmt.Errorf("查询待同步事件失败: %w", err)
	}
	report.Fetched = len(events)
	if len(events) == 0 {
		return report, nil
	}

	claimed, claimErr := s.outbox.Claim(ctx, events)
	report.Claimed = len(claimed)

	for i, e := range claimed {
		if ctx.Err() != nil {
			report.Released = s.release(ctx, claimed[i:])
			break
		}
		s.process(ctx, e, &report)
	}

	if report.Completed > 0 || report.Failed > 0 {
		logger.Info("[IndexSync] 本轮同步完成",
			zap.String("target_type", tt),
			zap.Int("claimed", report.Claimed),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed))
	}
	if claimErr != nil {
		return report, fmt.Errorf("抢占事件失败: %w", claimErr)
	}
	return report, nil
}

func (s *IndexSynchronizer[E]) process(ctx context.Context, e *model.OutboxEvent, report *SyncReport) {
	tt := s.desc.TargetType
	outcome, err := s.syncOne(ctx, e)
	if err != nil {
		report.Failed++
		if s.fail(ctx, e, err) {
			report.DeadLettered++
		}
		return
	}

	metrics.SyncOutcomes.WithLabelValues(tt, string(outcome)).Inc()
	markCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.outbox.MarkCompleted(markCtx, e.ID, s.now()); err != nil {
		// 行仍是 PROCESSING，租期过后会被回收重放，重放是幂等的
		logger.Error("[IndexSync] 标记完成失败",
			zap.String("target_type", tt), zap.Int64("event_id", e.ID), zap.Error(err))
		return
	}
	report.Completed++
	metrics.SyncEvents.WithLabelValues(tt, "completed").Inc()
	s.notify(ctx, e, outcome)
}

// syncOne 同步单个事件，projection 中的 panic 也按失败处理
func (s *IndexSynchronizer[E]) syncOne(ctx context.Context, e *model.OutboxEvent) (outcome search.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome, err = search.OutcomeUnknown, fmt.Errorf("panic: %v", p)
		}
	}()

	docID := projection.DocumentID(s.desc.TargetType, e.TargetID)
	if e.UpdateType == model.UpdateTypeDeleted {
		return s.index.Delete(ctx, s.desc.Collection, docID)
	}

	entity, err := s.desc.Load(ctx, e.TargetID)
	if err != nil {
		if s.desc.NotFound != nil && errors.Is(err, s.desc.NotFound) {
			// 入队后实体被物理删除，等同于 DELETED
			logger.Info("[IndexSync] 实体已不存在，删除索引文档",
				zap.String("target_type", s.desc.TargetType), zap.Int64("target_id", e.TargetID))
			return s.index.Delete(ctx, s.desc.Collection, docID)
		}
		return search.OutcomeUnknown, fmt.Errorf("读取实体失败: %w", err)
	}

	doc, err := s.desc.Project(entity)
	if err != nil {
		return search.OutcomeUnknown, fmt.Errorf("投影失败: %w", err)
	}
	return s.index.Upsert(ctx, s.desc.Collection, docID, doc)
}

// fail 标记失败，返回是否已达到重试上限
func (s *IndexSynchronizer[E]) fail(ctx context.Context, e *model.OutboxEvent, cause error) bool {
	tt := s.desc.TargetType
	attempt := e.RetryCount + 1
	next := s.now().Add(s.retryDelay(attempt))
	metrics.SyncEvents.WithLabelValues(tt, "failed").Inc()

	markCtx, cancel := detached(ctx)
	defer cancel()
	if err := s.outbox.MarkFailed(markCtx, e.ID, cause.Error(), next); err != nil {
		logger.Error("[IndexSync] 标记失败状态失败",
			zap.String("target_type", tt), zap.Int64("event_id", e.ID), zap.Error(err))
		return false
	}

	if attempt >= s.opts.MaxRetry {
		metrics.SyncDeadLetters.WithLabelValues(tt).Inc()
		logger.Error("[IndexSync] 达到重试上限，事件转为死信",
			zap.String("target_type", tt),
			zap.Int64("event_id", e.ID),
			zap.Int64("target_id", e.TargetID),
			zap.String("update_type", e.UpdateType),
			zap.Int("retry_count", attempt),
			zap.Error(cause))
		return true
	}
	logger.Warn("[IndexSync] 同步失败，等待重试",
		zap.String("target_type", tt),
		zap.Int64("event_id", e.ID),
		zap.Int64("target_id", e.TargetID),
		zap.Int("retry_count", attempt),
		zap.Time("next_retry_at", next),
		zap.Error(cause))
	return false
}

// retryDelay 第 attempt 次失败后的等待时间：指数增长，封顶 RetryMaxInterval
func (s *IndexSynchronizer[E]) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInitialInterval
	b.MaxInterval = s.opts.RetryMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.InitialInterval
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// release 本轮超时，把尚未处理的事件放回 WAIT，不计重试次数
func (s *IndexSynchronizer[E]) release(ctx context.Context, events []*model.OutboxEvent) int {
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	releaseCtx, cancel := detached(ctx)
	defer cancel()
	n, err := s.outbox.Release(releaseCtx, ids)
	if err != nil {
		logger.Warn("[IndexSync] 放回未处理事件失败，等待租期回收",
			zap.String("target_type", s.desc.TargetType), zap.Int("count", len(ids)), zap.Error(err))
		return 0
	}
	logger.Warn("[IndexSync] 本轮超时，未处理事件放回队列",
		zap.String("target_type", s.desc.TargetType), zap.Int64("count", n))
	return int(n)
}

func (s *IndexSynchronizer[E]) notify(ctx context.Context, e *model.OutboxEvent, outcome search.Outcome) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, mq.IndexSynced{
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		UpdateType: e.UpdateType,
		Outcome:    string(outcome),
		DocumentID: projection.DocumentID(e.TargetType, e.TargetID),
		SyncedAt:   s.now(),
	})
	if err != nil {
		logger.Warn("[IndexSync] 发送同步通知失败",
			zap.String("target_type", e.TargetType), zap.Int64("target_id", e.TargetID), zap.Error(err))
	}
}

// detached 状态回写不随本轮超时取消
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}
