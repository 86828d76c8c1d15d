package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
	"go.uber.org/zap"

	"jobhub/internal/query"
	"jobhub/pkg/logger"
)

// TypesenseIndex 基于 typesense 的索引实现
type TypesenseIndex struct {
	client *typesense.Client
}

func NewTypesenseIndex(apiKey string, hosts []string, timeout time.Duration) (*TypesenseIndex, error) {
	if len(hosts) == 0 {
		return nil, errors.New("typesense 未配置节点地址")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := typesense.NewClient(
		typesense.WithServer(hosts[0]),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(timeout),
		typesense.WithCircuitBreakerMaxRequests(50),
		typesense.WithCircuitBreakerInterval(2*time.Minute),
		typesense.WithCircuitBreakerTimeout(1*time.Minute),
	)
	return &TypesenseIndex{client: client}, nil
}

// EnsureCollections 创建缺失的集合，已存在的跳过
func (t *TypesenseIndex) EnsureCollections(ctx context.Context) error {
	for name, cfg := range collectionConfigs {
		_, err := t.client.Collections().Create(ctx, cfg.Schema)
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("创建集合 %s 失败: %w", name, err)
		}
		logger.Info("[Search] 集合已创建", zap.String("collection", name))
	}
	return nil
}

// Upsert 整篇覆盖写入。先读一次用于区分 created / updated / noop
func (t *TypesenseIndex) Upsert(ctx context.Context, collection, id string, doc interface{}) (Outcome, error) {
	if _, ok := collectionConfigs[collection]; !ok {
		return OutcomeUnknown, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	data, err := normalize(doc)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("文档 %s 编码失败: %w", id, err)
	}
	data["id"] = id

	existing, found, err := t.Get(ctx, collection, id)
	if err != nil {
		return OutcomeUnknown, err
	}
	if found && sameDocument(existing, data) {
		return OutcomeNoop, nil
	}

	if _, err := t.client.Collection(collection).Documents().Upsert(ctx, data); err != nil {
		return OutcomeUnknown, fmt.Errorf("写入文档 %s/%s 失败: %w", collection, id, err)
	}
	if found {
		return OutcomeUpdated, nil
	}
	return OutcomeCreated, nil
}

func (t *TypesenseIndex) Get(ctx context.Context, collection, id string) (map[string]interface{}, bool, error) {
	doc, err := t.client.Collection(collection).Document(id).Retrieve(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("读取文档 %s/%s 失败: %w", collection, id, err)
	}
	return doc, true, nil
}

func (t *TypesenseIndex) Delete(ctx context.Context, collection, id string) (Outcome, error) {
	if _, err := t.client.Collection(collection).Document(id).Delete(ctx); err != nil {
		if isNotFound(err) {
			return OutcomeNotFound, nil
		}
		return OutcomeUnknown, fmt.Errorf("删除文档 %s/%s 失败: %w", collection, id, err)
	}
	return OutcomeDeleted, nil
}

func (t *TypesenseIndex) Search(ctx context.Context, collection string, c *query.Compiled) (*Result, error) {
	cfg, ok := collectionConfigs[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	rendered, err := renderSearch(c, cfg.QueryBy)
	if err != nil {
		return nil, err
	}
	params, err := toSearchParams(rendered)
	if err != nil {
		return nil, err
	}

	res, err := t.client.Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("查询集合 %s 失败: %w", collection, err)
	}
	return decodeResult(res)
}

// toSearchParams 通过 JSON 填充 api.SearchCollectionParams，与 HTTP 接口绑定参数的方式一致
func toSearchParams(p *searchParams) (*api.SearchCollectionParams, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var params api.SearchCollectionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("构建查询参数失败: %w", err)
	}
	return &params, nil
}

type rawSearchResult struct {
	Found int `json:"found"`
	Hits  []struct {
		Document json.RawMessage `json:"document"`
	} `json:"hits"`
}

func decodeResult(res *api.SearchResult) (*Result, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var decoded rawSearchResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("解析查询结果失败: %w", err)
	}
	out := &Result{Found: decoded.Found, Hits: make([]json.RawMessage, 0, len(decoded.Hits))}
	for _, h := range decoded.Hits {
		out.Hits = append(out.Hits, h.Document)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

// sameDocument 只比较待写入的字段，索引端附加的字段不参与。
// 两侧数字的 Go 类型不同（float64 / json.Number），按 JSON 编码后比较
func sameDocument(existing, incoming map[string]interface{}) bool {
	for k, v := range incoming {
		a, err := json.Marshal(existing[k])
		if err != nil {
			return false
		}
		b, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}
