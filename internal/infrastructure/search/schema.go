package search

import (
	"github.com/typesense/typesense-go/typesense/api"
)

// collectionConfig 集合配置，QueryBy 是没有全文条件时的默认 query_by
type collectionConfig struct {
	Schema  *api.CollectionSchema
	QueryBy string
}

var collectionConfigs = map[string]collectionConfig{
	CollectionJobs:           {Schema: jobSchema(), QueryBy: "title,description"},
	CollectionTechBlogs:      {Schema: techBlogSchema(), QueryBy: "title,summary,content"},
	CollectionCommunityPosts: {Schema: communityPostSchema(), QueryBy: "title,content"},
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func popularityFields() []api.Field {
	return []api.Field{
		{Name: "popularity", Type: "object"},
		{Name: "popularity.view_count", Type: "int64"},
		{Name: "popularity.comment_count", Type: "int64"},
		{Name: "popularity.like_count", Type: "int64"},
	}
}

func jobSchema() *api.CollectionSchema {
	fields := []api.Field{
		{Name: "job_id", Type: "string"},
		{Name: "title", Type: "string"},
		{Name: "company", Type: "string", Facet: boolPtr(true)},
		{Name: "description", Type: "string"},
		{Name: "location", Type: "string", Facet: boolPtr(true)},
		{Name: "employment_type", Type: "string", Facet: boolPtr(true)},
		{Name: "career_level", Type: "string", Facet: boolPtr(true)},
		{Name: "min_years", Type: "int32"},
		{Name: "max_years", Type: "int32"},
		{Name: "tags", Type: "string[]", Facet: boolPtr(true)},
		{Name: "source_url", Type: "string", Optional: boolPtr(true)},
		{Name: "deadline", Type: "int64"},
		{Name: "deleted", Type: "bool"},
		{Name: "created_at", Type: "int64"},
		{Name: "updated_at", Type: "int64"},
	}
	return &api.CollectionSchema{
		Name:                CollectionJobs,
		Fields:              append(fields, popularityFields()...),
		DefaultSortingField: strPtr("created_at"),
		EnableNestedFields:  boolPtr(true),
	}
}

func techBlogSchema() *api.CollectionSchema {
	fields := []api.Field{
		{Name: "blog_id", Type: "string"},
		{Name: "title", Type: "string"},
		{Name: "summary", Type: "string"},
		{Name: "content", Type: "string"},
		{Name: "company", Type: "string", Facet: boolPtr(true)},
		{Name: "url", Type: "string", Optional: boolPtr(true)},
		{Name: "tags", Type: "string[]", Facet: boolPtr(true)},
		{Name: "published_at", Type: "int64"},
		{Name: "deleted", Type: "bool"},
		{Name: "created_at", Type: "int64"},
		{Name: "updated_at", Type: "int64"},
	}
	return &api.CollectionSchema{
		Name:                CollectionTechBlogs,
		Fields:              append(fields, popularityFields()...),
		DefaultSortingField: strPtr("published_at"),
		EnableNestedFields:  boolPtr(true),
	}
}

func communityPostSchema() *api.CollectionSchema {
	fields := []api.Field{
		{Name: "post_id", Type: "string"},
		{Name: "author_id", Type: "string", Facet: boolPtr(true)},
		{Name: "title", Type: "string"},
		{Name: "content", Type: "string"},
		{Name: "category", Type: "string", Facet: boolPtr(true)},
		{Name: "tags", Type: "string[]", Facet: boolPtr(true)},
		{Name: "deleted", Type: "bool"},
		{Name: "created_at", Type: "int64"},
		{Name: "updated_at", Type: "int64"},
	}
	return &api.CollectionSchema{
		Name:                CollectionCommunityPosts,
		Fields:              append(fields, popularityFields()...),
		DefaultSortingField: strPtr("created_at"),
		EnableNestedFields:  boolPtr(true),
	}
}
