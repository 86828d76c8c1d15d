package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/model"
	"jobhub/internal/repository"
	"jobhub/internal/testutil"
)

func outboxOf(t *testing.T, db *gorm.DB, targetType string, id int64) []*model.OutboxEvent {
	t.Helper()
	events, err := repository.NewOutboxRepository(db).ListByTarget(context.Background(), targetType, id)
	require.NoError(t, err)
	return events
}

func updateTypes(events []*model.OutboxEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.UpdateType)
	}
	return out
}

func newJobRequest() *JobRequest {
	return &JobRequest{
		Title:    "Backend Engineer",
		Company:  "META",
		MinYears: 1,
		MaxYears: 3,
		Tags:     []string{"go", " kafka ", ""},
	}
}

func TestJobService_CreateRecordsEventInSameTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	job, err := svc.Create(ctx, newJobRequest())
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "go,kafka", job.Tags)

	events := outboxOf(t, db, model.TargetTypeJob, job.ID)
	require.Len(t, events, 1)
	assert.Equal(t, model.UpdateTypeCreated, events[0].UpdateType)
	assert.Equal(t, model.OutboxStatusWait, events[0].Status)
}

func TestJobService_CreateRejectsInvalidRequest(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	req := newJobRequest()
	req.MinYears, req.MaxYears = 5, 2
	_, err := svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var count int64
	require.NoError(t, db.Model(&model.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestJobService_UpdateKeepsCounters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	job, err := svc.Create(ctx, newJobRequest())
	require.NoError(t, err)
	require.NoError(t, svc.IncreaseLikeCount(ctx, job.ID, 4))

	req := newJobRequest()
	req.Title = "Staff Engineer"
	_, err = svc.Update(ctx, job.ID, req)
	require.NoError(t, err)

	stored, err := svc.repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", stored.Title)
	assert.Equal(t, int64(4), stored.Popularity.LikeCount)

	assert.Equal(t,
		[]string{model.UpdateTypeCreated, model.UpdateTypePopularityOnly, model.UpdateTypeUpdated},
		updateTypes(outboxOf(t, db, model.TargetTypeJob, job.ID)))
}

func TestJobService_SoftDeleteEmitsUpdated(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	job, err := svc.Create(ctx, newJobRequest())
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, job.ID))

	stored, err := svc.repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)

	_, err = svc.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrContentDeleted)
	_, err = svc.Update(ctx, job.ID, newJobRequest())
	assert.ErrorIs(t, err, ErrContentDeleted)

	assert.Equal(t,
		[]string{model.UpdateTypeCreated, model.UpdateTypeUpdated},
		updateTypes(outboxOf(t, db, model.TargetTypeJob, job.ID)))
}

func TestJobService_HardDeleteEmitsDeleted(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	job, err := svc.Create(ctx, newJobRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, job.ID))

	_, err = svc.repo.FindByID(ctx, job.ID)
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
	assert.Equal(t,
		[]string{model.UpdateTypeCreated, model.UpdateTypeDeleted},
		updateTypes(outboxOf(t, db, model.TargetTypeJob, job.ID)))
}

func TestJobService_MissingEntityRecordsNothing(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewJobService(db, nil)

	assert.ErrorIs(t, svc.Delete(ctx, 404), repository.ErrJobNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, 404), repository.ErrJobNotFound)
	assert.ErrorIs(t, svc.IncreaseCommentCount(ctx, 404, 1), repository.ErrJobNotFound)
	assert.Empty(t, outboxOf(t, db, model.TargetTypeJob, 404))
}

func TestJobService_GetCountsViewWithoutWriting(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	jobs := repository.NewJobRepository(db)
	views := cache.NewCounterCache(db, model.TargetTypeJob, model.CounterViewCount, jobs, repository.NewOutboxRepository(db))
	svc := NewJobService(db, views)

	job, err := svc.Create(ctx, newJobRequest())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Get(ctx, job.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), views.Pending(job.ID))

	stored, err := jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Popularity.ViewCount)
	assert.Len(t, outboxOf(t, db, model.TargetTypeJob, job.ID), 1)

	res := views.Flush(ctx)
	assert.Equal(t, 1, res.Flushed)
	stored, err = jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Popularity.ViewCount)
}

func TestTechBlogService_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewTechBlogService(db, nil)

	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	blog, err := svc.Create(ctx, &TechBlogRequest{
		Title:       "Outbox in practice",
		URL:         "https://tech.example.com/outbox",
		Company:     "NAVER",
		PublishedAt: published,
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, blog.ID, &TechBlogRequest{Title: "Outbox revisited", URL: blog.URL})
	require.NoError(t, err)

	stored, err := svc.repo.FindByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Outbox revisited", stored.Title)
	assert.Equal(t,
		[]string{model.UpdateTypeCreated, model.UpdateTypeUpdated},
		updateTypes(outboxOf(t, db, model.TargetTypeTechBlog, blog.ID)))

	_, err = svc.Create(ctx, &TechBlogRequest{Title: "no url"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCommunityPostService_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewCommunityPostService(db, nil)

	_, err := svc.Create(ctx, &CommunityPostRequest{AuthorID: 1, Title: "hi", Category: "RANT"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	post, err := svc.Create(ctx, &CommunityPostRequest{AuthorID: 1, Title: "hi", Category: model.PostCategoryQuestion})
	require.NoError(t, err)

	_, err = svc.Update(ctx, post.ID, &CommunityPostRequest{AuthorID: 2, Title: "mine now", Category: model.PostCategoryFree})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, svc.IncreaseCommentCount(ctx, post.ID, 2))
	assert.NoError(t, svc.IncreaseCommentCount(ctx, post.ID, 0))

	stored, err := svc.repo.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Popularity.CommentCount)
	assert.Equal(t,
		[]string{model.UpdateTypeCreated, model.UpdateTypePopularityOnly},
		updateTypes(outboxOf(t, db, model.TargetTypeCommunityPost, post.ID)))
}

// 事件写入失败时业务写入必须一起回滚
func TestJobService_OutboxFailureRollsBackMutation(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `job`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `outbox_event`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	svc := NewJobService(db, nil)
	_, err = svc.Create(context.Background(), newJobRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "记录变更事件失败")

	assert.NoError(t, mock.ExpectationsWereMet())
}
