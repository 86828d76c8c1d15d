package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/model"
	"jobhub/internal/repository"
	"jobhub/pkg/idgen"
)

type CommunityPostService struct {
	*contentService[model.CommunityPost]
}

func NewCommunityPostService(db *gorm.DB, views *cache.CounterCache) *CommunityPostService {
	return &CommunityPostService{contentService: &contentService[model.CommunityPost]{
		db:         db,
		repo:       repository.NewCommunityPostRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		views:      views,
		targetType: model.TargetTypeCommunityPost,
		idOf:       func(p *model.CommunityPost) int64 { return p.ID },
		deleted:    func(p *model.CommunityPost) bool { return p.Deleted },
	}}
}

type CommunityPostRequest struct {
	AuthorID int64    `json:"author_id" binding:"required"`
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content"`
	Category string   `json:"category" binding:"required"`
	Tags     []string `json:"tags"`
}

func (r *CommunityPostRequest) validate() error {
	if r.AuthorID <= 0 || r.Title == "" {
		return fmt.Errorf("%w: author_id 和 title 不能为空", ErrInvalidArgument)
	}
	switch r.Category {
	case model.PostCategoryQuestion, model.PostCategoryReview, model.PostCategoryFree:
	default:
		return fmt.Errorf("%w: 未知分类 %s", ErrInvalidArgument, r.Category)
	}
	return nil
}

func (r *CommunityPostRequest) apply(p *model.CommunityPost) {
	p.AuthorID = r.AuthorID
	p.Title = r.Title
	p.Content = r.Content
	p.Category = r.Category
	p.Tags = joinTags(r.Tags)
}

func (s *CommunityPostService) Create(ctx context.Context, req *CommunityPostRequest) (*model.CommunityPost, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	post := &model.CommunityPost{ID: idgen.NextID()}
	req.apply(post)

	if err := s.create(ctx, post); err != nil {
		return nil, fmt.Errorf("创建帖子失败: %w", err)
	}
	return post, nil
}

func (s *CommunityPostService) Update(ctx context.Context, id int64, req *CommunityPostRequest) (*model.CommunityPost, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	post, err := s.loadForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != req.AuthorID {
		return nil, fmt.Errorf("%w: 不能修改他人的帖子", ErrInvalidArgument)
	}
	req.apply(post)

	if err := s.save(ctx, post); err != nil {
		return nil, fmt.Errorf("更新帖子失败: %w", err)
	}
	return post, nil
}
