package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/infrastructure/search"
	"jobhub/internal/model"
	"jobhub/internal/projection"
	"jobhub/internal/repository"
)

func JobDescriptor(repo *repository.ContentRepository[model.Job]) EntityDescriptor[model.Job] {
	return EntityDescriptor[model.Job]{
		TargetType: model.TargetTypeJob,
		Collection: search.CollectionJobs,
		Load:       repo.FindByID,
		NotFound:   repo.NotFoundErr(),
		Project: func(j *model.Job) (interface{}, error) {
			return projection.Job(j), nil
		},
	}
}

func TechBlogDescriptor(repo *repository.ContentRepository[model.TechBlog]) EntityDescriptor[model.TechBlog] {
	return EntityDescriptor[model.TechBlog]{
		TargetType: model.TargetTypeTechBlog,
		Collection: search.CollectionTechBlogs,
		Load:       repo.FindByID,
		NotFound:   repo.NotFoundErr(),
		Project: func(b *model.TechBlog) (interface{}, error) {
			return projection.TechBlog(b), nil
		},
	}
}

func CommunityPostDescriptor(repo *repository.ContentRepository[model.CommunityPost]) EntityDescriptor[model.CommunityPost] {
	return EntityDescriptor[model.CommunityPost]{
		TargetType: model.TargetTypeCommunityPost,
		Collection: search.CollectionCommunityPosts,
		Load:       repo.FindByID,
		NotFound:   repo.NotFoundErr(),
		Project: func(p *model.CommunityPost) (interface{}, error) {
			return projection.CommunityPost(p), nil
		},
	}
}

// SyncTask 把同步器包装成调度任务，任务名形如 sync.job
func SyncTask[E any](s *IndexSynchronizer[E], interval, timeout time.Duration) Task {
	return Task{
		Name:     "sync." + strings.ToLower(s.TargetType()),
		Interval: interval,
		Timeout:  timeout,
		Handler: func(ctx context.Context) error {
			_, err := s.RunOnce(ctx)
			return err
		},
	}
}

// FlushTask 把计数缓存包装成调度任务，任务名形如 flush.job.view_count
func FlushTask(cc *cache.CounterCache, interval, timeout time.Duration) Task {
	return Task{
		Name:     fmt.Sprintf("flush.%s.%s", strings.ToLower(cc.TargetType()), cc.Column()),
		Interval: interval,
		Timeout:  timeout,
		Handler: func(ctx context.Context) error {
			res := cc.Flush(ctx)
			if res.Failed > 0 {
				return fmt.Errorf("%d 个计数未能落库，已放回等待下一轮", res.Failed)
			}
			return nil
		},
	}
}
