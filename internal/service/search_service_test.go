package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobhub/internal/infrastructure/search"
	"jobhub/internal/model"
	"jobhub/internal/projection"
	"jobhub/internal/query"
	"jobhub/pkg/idgen"
)

func seedJobs(t *testing.T, index *search.MemoryIndex, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		job := &model.Job{
			ID:       int64(i),
			Title:    fmt.Sprintf("Backend Engineer %d", i),
			Company:  "META",
			MinYears: i % 4,
		}
		job.Popularity.ViewCount = int64(i * 10)
		doc := projection.Job(job)
		_, err := index.Upsert(context.Background(), search.CollectionJobs, doc.ID, doc)
		require.NoError(t, err)
	}
}

func TestSearchService_PagesWithLookaheadRow(t *testing.T) {
	ctx := context.Background()
	index := search.NewMemoryIndex()
	seedJobs(t, index, 5)
	svc := NewJobSearchService(index)

	conds := []query.Condition{query.Eq("company", "META"), query.Eq("deleted", false)}
	sortByViews := query.SortField{Field: "viewCount", Desc: true}

	page, err := svc.Search(ctx, conds, 0, 2, sortByViews)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.Equal(t, int64(50), page.Items[0].Popularity.ViewCount)
	assert.Equal(t, int64(40), page.Items[1].Popularity.ViewCount)

	page, err = svc.Search(ctx, conds, 4, 6, sortByViews)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasNext)
	assert.Equal(t, int64(10), page.Items[0].Popularity.ViewCount)
}

func TestSearchService_RejectsBadInputBeforeQuerying(t *testing.T) {
	ctx := context.Background()
	svc := NewJobSearchService(search.NewMemoryIndex())

	_, err := svc.Search(ctx, []query.Condition{query.Eq("salary", 1)}, 0, 10)
	assert.ErrorIs(t, err, query.ErrFieldNotResolvable)

	_, err = svc.Search(ctx, nil, 10, 10)
	assert.ErrorIs(t, err, query.ErrInvalidPage)
}

func TestSearchService_RangeFilter(t *testing.T) {
	ctx := context.Background()
	index := search.NewMemoryIndex()
	seedJobs(t, index, 8)
	svc := NewJobSearchService(index)

	page, err := svc.Search(ctx, []query.Condition{query.Between("minYears", 0, 1)}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	for _, item := range page.Items {
		assert.LessOrEqual(t, item.MinYears, 1)
	}
}

func TestSearchService_SnowflakeIDsRoundTrip(t *testing.T) {
	ctx := context.Background()
	index := search.NewMemoryIndex()

	author := idgen.NextID()
	ids := []int64{idgen.NextID(), idgen.NextID(), idgen.NextID()}
	require.Greater(t, ids[0], int64(1)<<53)
	for _, id := range ids {
		doc := projection.CommunityPost(&model.CommunityPost{ID: id, AuthorID: author, Title: "hello", Category: model.PostCategoryFree})
		_, err := index.Upsert(ctx, search.CollectionCommunityPosts, doc.ID, doc)
		require.NoError(t, err)
	}
	other := projection.CommunityPost(&model.CommunityPost{ID: idgen.NextID(), AuthorID: author + 1, Title: "hello"})
	_, err := index.Upsert(ctx, search.CollectionCommunityPosts, other.ID, other)
	require.NoError(t, err)

	svc := NewCommunityPostSearchService(index)
	page, err := svc.Search(ctx, []query.Condition{query.Eq("authorId", author)}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)

	got := make([]int64, 0, len(page.Items))
	for _, item := range page.Items {
		assert.Equal(t, author, item.AuthorID)
		assert.Equal(t, projection.DocumentID(model.TargetTypeCommunityPost, item.PostID), item.ID)
		got = append(got, item.PostID)
	}
	assert.ElementsMatch(t, ids, got)
}
