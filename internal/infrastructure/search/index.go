// Package search 搜索索引适配层：typesense 实现和进程内实现共用同一接口。
package search

import (
	"context"
	"bytes"
	"encoding/json"
	"errors"

	"jobhub/internal/query"
)

// Outcome 单次索引写操作的结果
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeNotFound Outcome = "not_found"
	OutcomeNoop     Outcome = "noop"
	OutcomeUnknown  Outcome = "unknown"
)

// 集合名
const (
	CollectionJobs           = "jobs"
	CollectionTechBlogs      = "tech_blogs"
	CollectionCommunityPosts = "community_posts"
)

var (
	ErrUnknownCollection = errors.New("未知的索引集合")
	ErrUnsupportedQuery  = errors.New("索引不支持该查询")
)

// Result 一次查询的结果，Hits 按排名顺序排列
type Result struct {
	Found int
	Hits  []json.RawMessage
}

// Index 搜索索引。所有写操作都是按文档 ID 的整篇覆盖，可重放
type Index interface {
	Upsert(ctx context.Context, collection, id string, doc interface{}) (Outcome, error)
	Get(ctx context.Context, collection, id string) (map[string]interface{}, bool, error)
	Delete(ctx context.Context, collection, id string) (Outcome, error)
	Search(ctx context.Context, collection string, c *query.Compiled) (*Result, error)
}

// normalize 经过一次 JSON 往返，得到与索引中存储形态一致的文档。
// 数字保留为 json.Number，不经过 float64
func normalize(doc interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	out := make(map[string]interface{})
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
