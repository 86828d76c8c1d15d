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
	ErrJobNotFound           = errors.New("岗位不存在")
	ErrTechBlogNotFound      = errors.New("技术博客不存在")
	ErrCommunityPostNotFound = errors.New("社区帖子不存在")
	ErrInvalidCounterColumn  = errors.New("无效的计数列")
)

// ContentRepository 内容表的通用 CRUD
// 岗位、技术博客、社区帖子三张表的读写方式完全一致，只有实体类型不同
type ContentRepository[T any] struct {
	db       *gorm.DB
	notFound error
}

func NewJobRepository(db *gorm.DB) *ContentRepository[model.Job] {
	return &ContentRepository[model.Job]{db: db, notFound: ErrJobNotFound}
}

func NewTechBlogRepository(db *gorm.DB) *ContentRepository[model.TechBlog] {
	return &ContentRepository[model.TechBlog]{db: db, notFound: ErrTechBlogNotFound}
}

func NewCommunityPostRepository(db *gorm.DB) *ContentRepository[model.CommunityPost] {
	return &ContentRepository[model.CommunityPost]{db: db, notFound: ErrCommunityPostNotFound}
}

// NotFoundErr 返回该仓储的“记录不存在”哨兵错误
func (r *ContentRepository[T]) NotFoundErr() error {
	return r.notFound
}

func (r *ContentRepository[T]) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *ContentRepository[T]) Create(ctx context.Context, tx *gorm.DB, entity *T) error {
	return r.conn(tx).WithContext(ctx).Create(entity).Error
}

// Save 全量保存（计数列除外）
// 计数列只走 IncreaseCounter 的原子累加，这里忽略它们，避免覆盖并发累加的结果
func (r *ContentRepository[T]) Save(ctx context.Context, tx *gorm.DB, id int64, entity *T) error {
	result := r.conn(tx).WithContext(ctx).
		Model(entity).
		Select("*").
		Omit("created_at", model.CounterViewCount, model.CounterCommentCount, model.CounterLikeCount).
		Updates(entity)
	return r.checkAffected(ctx, tx, id, result)
}

// checkAffected 影响行数为 0 不一定是记录不存在：
// 未开启 clientFoundRows 时，MySQL 对值没有变化的 UPDATE 同样返回 0，需要再查一次
func (r *ContentRepository[T]) checkAffected(ctx context.Context, tx *gorm.DB, id int64, result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := r.conn(tx).WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return r.notFound
	}
	return nil
}

func (r *ContentRepository[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, r.notFound
		}
		return nil, err
	}
	return &entity, nil
}

// MarkDeleted 软删除，只改 deleted 标记
func (r *ContentRepository[T]) MarkDeleted(ctx context.Context, tx *gorm.DB, id int64) error {
	result := r.conn(tx).WithContext(ctx).
		Model(new(T)).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted": true, "updated_at": time.Now()})
	return r.checkAffected(ctx, tx, id, result)
}

// DeleteByID 物理删除
func (r *ContentRepository[T]) DeleteByID(ctx context.Context, tx *gorm.DB, id int64) error {
	result := r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.notFound
	}
	return nil
}

// IncreaseCounter 原子累加计数
// 单条 UPDATE col = col + ?，不做读-改-写，并发调用不会丢更新
func (r *ContentRepository[T]) IncreaseCounter(ctx context.Context, tx *gorm.DB, id int64, column string, amount int64) error {
	if !model.IsValidCounterColumn(column) {
		return fmt.Errorf("%w: %s", ErrInvalidCounterColumn, column)
	}
	result := r.conn(tx).WithContext(ctx).
		Model(new(T)).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount))
	return r.checkAffected(ctx, tx, id, result)
}
