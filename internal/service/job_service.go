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

type JobService struct {
	*contentService[model.Job]
}

func NewJobService(db *gorm.DB, views *cache.CounterCache) *JobService {
	return &JobService{contentService: &contentService[model.Job]{
		db:         db,
		repo:       repository.NewJobRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		views:      views,
		targetType: model.TargetTypeJob,
		idOf:       func(j *model.Job) int64 { return j.ID },
		deleted:    func(j *model.Job) bool { return j.Deleted },
	}}
}

type JobRequest struct {
	Title          string     `json:"title" binding:"required"`
	Company        string     `json:"company" binding:"required"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	EmploymentType string     `json:"employment_type"`
	CareerLevel    string     `json:"career_level"`
	MinYears       int        `json:"min_years" binding:"gte=0"`
	MaxYears       int        `json:"max_years" binding:"gte=0"`
	Tags           []string   `json:"tags"`
	SourceURL      string     `json:"source_url"`
	Deadline       *time.Time `json:"deadline"`
}

func (r *JobRequest) validate() error {
	if r.Title == "" || r.Company == "" {
		return fmt.Errorf("%w: title 和 company 不能为空", ErrInvalidArgument)
	}
	if r.MinYears < 0 || r.MaxYears < 0 || (r.MaxYears > 0 && r.MinYears > r.MaxYears) {
		return fmt.Errorf("%w: 经验年限区间非法 [%d, %d]", ErrInvalidArgument, r.MinYears, r.MaxYears)
	}
	return nil
}

func (r *JobRequest) apply(j *model.Job) {
	j.Title = r.Title
	j.Company = r.Company
	j.Description = r.Description
	j.Location = r.Location
	j.EmploymentType = r.EmploymentType
	j.CareerLevel = r.CareerLevel
	j.MinYears = r.MinYears
	j.MaxYears = r.MaxYears
	j.Tags = joinTags(r.Tags)
	j.SourceURL = r.SourceURL
	j.Deadline = r.Deadline
}

func (s *JobService) Create(ctx context.Context, req *JobRequest) (*model.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	job := &model.Job{ID: idgen.NextID()}
	req.apply(job)

	if err := s.create(ctx, job); err != nil {
		return nil, fmt.Errorf("创建岗位失败: %w", err)
	}
	return job, nil
}

func (s *JobService) Update(ctx context.Context, id int64, req *JobRequest) (*model.Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	job, err := s.loadForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(job)

	if err := s.save(ctx, job); err != nil {
		return nil, fmt.Errorf("更新岗位失败: %w", err)
	}
	return job, nil
}
