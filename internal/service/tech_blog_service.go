package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/model"
	"jobhub/internal/repository"
	"jobhub/pkg/idgen"
)

type TechBlogService struct {
	*contentService[model.TechBlog]
}

func NewTechBlogService(db *gorm.DB, views *cache.CounterCache) *TechBlogService {
	return &TechBlogService{contentService: &contentService[model.TechBlog]{
		db:         db,
		repo:       repository.NewTechBlogRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		views:      views,
		targetType: model.TargetTypeTechBlog,
		idOf:       func(b *model.TechBlog) int64 { return b.ID },
		deleted:    func(b *model.TechBlog) bool { return b.Deleted },
	}}
}

type TechBlogRequest struct {
	Title       string    `json:"title" binding:"required"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content"`
	Company     string    `json:"company"`
	URL         string    `json:"url" binding:"required,url"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
}

func (r *TechBlogRequest) validate() error {
	if r.Title == "" || r.URL == "" {
		return fmt.Errorf("%w: title 和 url 不能为空", ErrInvalidArgument)
	}
	return nil
}

func (r *TechBlogRequest) apply(b *model.TechBlog) {
	b.Title = r.Title
	b.Summary = r.Summary
	b.Content = r.Content
	b.Company = r.Company
	b.URL = r.URL
	b.Tags = joinTags(r.Tags)
	b.PublishedAt = r.PublishedAt
	if b.PublishedAt.IsZero() {
		b.PublishedAt = time.Now()
	}
}

func (s *TechBlogService) Create(ctx context.Context, req *TechBlogRequest) (*model.TechBlog, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	blog := &model.TechBlog{ID: idgen.NextID()}
	req.apply(blog)

	if err := s.create(ctx, blog); err != nil {
		return nil, fmt.Errorf("创建技术博客失败: %w", err)
	}
	return blog, nil
}

func (s *TechBlogService) Update(ctx context.Context, id int64, req *TechBlogRequest) (*model.TechBlog, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	blog, err := s.loadForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(blog)

	if err := s.save(ctx, blog); err != nil {
		return nil, fmt.Errorf("更新技术博客失败: %w", err)
	}
	return blog, nil
}
