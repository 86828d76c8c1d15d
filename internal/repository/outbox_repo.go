package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobhub/internal/model"

	"gorm.io/gorm"
)

var (
	ErrOutboxEventNotFound = errors.New("outbox 事件不存在或状态不允许该操作")
	ErrInvalidTargetType   = errors.New("无效的目标类型")
	ErrInvalidUpdateType   = errors.New("无效的更新类型")
)

const maxErrorMessageLen = 1024

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Record 记录一条变更通知
//
// tx 必须是业务写操作所在的事务：业务提交则事件一定存在，业务回滚则事件一定不存在。
// 插入失败时返回错误，调用方应让整个事务失败。
func (r *OutboxRepository) Record(ctx context.Context, tx *gorm.DB, targetType string, targetID int64, updateType string) (*model.OutboxEvent, error) {
	if !model.IsValidTargetType(targetType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTargetType, targetType)
	}
	if !model.IsValidUpdateType(updateType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUpdateType, updateType)
	}
	if tx == nil {
		tx = r.db
	}

	event := &model.OutboxEvent{
		TargetType: targetType,
		TargetID:   targetID,
		UpdateType: updateType,
		Status:     model.OutboxStatusWait,
	}
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// PollFilter 拉取条件
type PollFilter struct {
	TargetType  string
	UpdateTypes []string // 为空表示不过滤
	Limit       int
	MaxRetry    int
	Now         time.Time
}

// FetchPending 拉取待同步事件：WAIT，或者 FAILED 且未超过重试上限、已到重试时间
func (r *OutboxRepository) FetchPending(ctx context.Context, f PollFilter) ([]*model.OutboxEvent, error) {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	q := r.db.WithContext(ctx).
		Where("(status = ? OR (status = ? AND retry_count < ? AND (next_retry_at IS NULL OR next_retry_at <= ?)))",
			model.OutboxStatusWait, model.OutboxStatusFailed, f.MaxRetry, now)
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	if len(f.UpdateTypes) > 0 {
		q = q.Where("update_type IN ?", f.UpdateTypes)
	}

	var events []*model.OutboxEvent
	err := q.Order("id ASC").Limit(limit).Find(&events).Error
	return events, err
}

// Claim 将事件标记为 PROCESSING
//
// 以拉取时看到的状态做条件更新，多实例同时拉到同一条时只有一个能抢到。
// 返回真正抢到的事件。
func (r *OutboxRepository) Claim(ctx context.Context, events []*model.OutboxEvent) ([]*model.OutboxEvent, error) {
	claimed := make([]*model.OutboxEvent, 0, len(events))
	now := time.Now()
	for _, e := range events {
		if !model.CanOutboxTransitionTo(e.Status, model.OutboxStatusProcessing) {
			continue
		}
		result := r.db.WithContext(ctx).
			Model(&model.OutboxEvent{}).
			Where("id = ? AND status = ?", e.ID, e.Status).
			Updates(map[string]interface{}{
				"status":     model.OutboxStatusProcessing,
				"updated_at": now,
			})
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 1 {
			e.Status = model.OutboxStatusProcessing
			e.UpdatedAt = now
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkCompleted(ctx context.Context, id int64, processedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.OutboxStatusCompleted,
			"processed_at":  processedAt,
			"error_message": "",
			"next_retry_at": nil,
			"updated_at":    processedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutboxEventNotFound
	}
	return nil
}

// MarkFailed 标记失败，retry_count 原子加一
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	if len(errMsg) > maxErrorMessageLen {
		errMsg = errMsg[:maxErrorMessageLen]
	}
	result := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.OutboxStatusFailed,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": errMsg,
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutboxEventNotFound
	}
	return nil
}

// ReclaimStale 把超过租期仍处于 PROCESSING 的事件放回 WAIT
// 上一轮超时或进程崩溃时会留下这类事件
func (r *OutboxRepository) ReclaimStale(ctx context.Context, targetType string, olderThan time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("status = ? AND updated_at < ?", model.OutboxStatusProcessing, olderThan)
	if targetType != "" {
		q = q.Where("target_type = ?", targetType)
	}
	result := q.Updates(map[string]interface{}{
		"status":     model.OutboxStatusWait,
		"updated_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// Release 把本轮已抢占但未处理的事件放回 WAIT，不计重试次数
func (r *OutboxRepository) Release(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id IN ? AND status = ?", ids, model.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusWait,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ListDeadLetters 查询已达到重试上限的失败事件，供运维排查
func (r *OutboxRepository) ListDeadLetters(ctx context.Context, targetType string, maxRetry, limit int) ([]*model.OutboxEvent, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND retry_count >= ?", model.OutboxStatusFailed, maxRetry)
	if targetType != "" {
		q = q.Where("target_type = ?", targetType)
	}
	var events []*model.OutboxEvent
	err := q.Order("id ASC").Limit(limit).Find(&events).Error
	return events, err
}

// Requeue 人工重放死信：重置为 WAIT 并清零重试次数
func (r *OutboxRepository) Requeue(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusFailed).
		Updates(map[string]interface{}{
			"status":        model.OutboxStatusWait,
			"retry_count":   0,
			"next_retry_at": nil,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutboxEventNotFound
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id int64) (*model.OutboxEvent, error) {
	var event model.OutboxEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOutboxEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListByTarget 按写入顺序返回某个实体的全部事件
func (r *OutboxRepository) ListByTarget(ctx context.Context, targetType string, targetID int64) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
