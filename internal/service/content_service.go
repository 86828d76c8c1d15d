package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/model"
	"jobhub/internal/repository"
)

var (
	ErrContentDeleted  = errors.New("内容已删除")
	ErrInvalidArgument = errors.New("参数不合法")
)

// contentService 三类内容共用的写路径
//
// 每个写操作都在一个事务里完成“业务写 + 记录 outbox 事件”：业务提交则事件一定存在，
// 事件写入失败则业务一起回滚。
type contentService[T any] struct {
	db         *gorm.DB
	repo       *repository.ContentRepository[T]
	outboxRepo *repository.OutboxRepository
	views      *cache.CounterCache
	targetType string
	idOf       func(*T) int64
	deleted    func(*T) bool
}

func (s *contentService[T]) inTx(ctx context.Context, id int64, updateType string, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		if _, err := s.outboxRepo.Record(ctx, tx, s.targetType, id, updateType); err != nil {
			return fmt.Errorf("记录变更事件失败: %w", err)
		}
		return nil
	})
}

func (s *contentService[T]) create(ctx context.Context, entity *T) error {
	return s.inTx(ctx, s.idOf(entity), model.UpdateTypeCreated, func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, entity)
	})
}

func (s *contentService[T]) save(ctx context.Context, entity *T) error {
	return s.inTx(ctx, s.idOf(entity), model.UpdateTypeUpdated, func(tx *gorm.DB) error {
		return s.repo.Save(ctx, tx, s.idOf(entity), entity)
	})
}

// loadForUpdate 读取待修改的实体，已软删除的不允许修改
func (s *contentService[T]) loadForUpdate(ctx context.Context, id int64) (*T, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.deleted(entity) {
		return nil, ErrContentDeleted
	}
	return entity, nil
}

// Get 读取内容并累加一次浏览
// 浏览数只进内存累加器，由定时 flush 合并写回
func (s *contentService[T]) Get(ctx context.Context, id int64) (*T, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.deleted(entity) {
		return nil, ErrContentDeleted
	}
	if s.views != nil {
		s.views.CountUp(id)
	}
	return entity, nil
}

// SoftDelete 软删除，索引文档保留并带上 deleted 标记
func (s *contentService[T]) SoftDelete(ctx context.Context, id int64) error {
	return s.inTx(ctx, id, model.UpdateTypeUpdated, func(tx *gorm.DB) error {
		return s.repo.MarkDeleted(ctx, tx, id)
	})
}

// Delete 物理删除，索引文档随之移除
func (s *contentService[T]) Delete(ctx context.Context, id int64) error {
	return s.inTx(ctx, id, model.UpdateTypeDeleted, func(tx *gorm.DB) error {
		return s.repo.DeleteByID(ctx, tx, id)
	})
}

func (s *contentService[T]) IncreaseCommentCount(ctx context.Context, id int64, delta int64) error {
	return s.increase(ctx, id, model.CounterCommentCount, delta)
}

func (s *contentService[T]) IncreaseLikeCount(ctx context.Context, id int64, delta int64) error {
	return s.increase(ctx, id, model.CounterLikeCount, delta)
}

func (s *contentService[T]) increase(ctx context.Context, id int64, column string, delta int64) error {
	if delta == 0 {
		return nil
	}
	return s.inTx(ctx, id, model.UpdateTypePopularityOnly, func(tx *gorm.DB) error {
		return s.repo.IncreaseCounter(ctx, tx, id, column, delta)
	})
}

func joinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, ",")
}
