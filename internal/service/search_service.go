package service

import (
	"context"
	"encoding/json"
	"fmt"

	"jobhub/internal/infrastructure/search"
	"jobhub/internal/projection"
	"jobhub/internal/query"
)

// SearchPage 一页搜索结果
type SearchPage[D any] struct {
	Items   []D  `json:"items"`
	HasNext bool `json:"has_next"`
	Total   int  `json:"total"`
}

// SearchService 某一类内容的查询入口
type SearchService[D any] struct {
	index      search.Index
	registry   *query.Registry
	collection string
}

func NewJobSearchService(index search.Index) *SearchService[projection.JobDocument] {
	return &SearchService[projection.JobDocument]{index: index, registry: query.JobFields, collection: search.CollectionJobs}
}

func NewTechBlogSearchService(index search.Index) *SearchService[projection.TechBlogDocument] {
	return &SearchService[projection.TechBlogDocument]{index: index, registry: query.TechBlogFields, collection: search.CollectionTechBlogs}
}

func NewCommunityPostSearchService(index search.Index) *SearchService[projection.CommunityPostDocument] {
	return &SearchService[projection.CommunityPostDocument]{index: index, registry: query.CommunityPostFields, collection: search.CollectionCommunityPosts}
}

// Search 按条件查询 [from, to) 区间
// 多取一条判断是否有下一页；查询条件非法时不会访问索引
func (s *SearchService[D]) Search(ctx context.Context, conditions []query.Condition, from, to int, sorts ...query.SortField) (*SearchPage[D], error) {
	page, err := query.NewPage(from, to)
	if err != nil {
		return nil, err
	}
	compiled, err := query.Compile(s.registry, conditions, page, sorts...)
	if err != nil {
		return nil, err
	}

	result, err := s.index.Search(ctx, s.collection, compiled)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 索引 %s 失败: %w", s.registry.Entity(), s.collection, err)
	}

	hits, hasNext := query.Trim(result.Hits, page)
	items := make([]D, 0, len(hits))
	for _, raw := range hits {
		var doc D
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("解析文档失败: %w", err)
		}
		items = append(items, doc)
	}
	return &SearchPage[D]{Items: items, HasNext: hasNext, Total: result.Found}, nil
}
