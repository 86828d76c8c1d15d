package search

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"jobhub/internal/query"
)

// MemoryIndex 进程内索引，语义与 TypesenseIndex 对齐，用于本地运行和测试
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]interface{}
}

func NewMemoryIndex() *MemoryIndex {
	docs := make(map[string]map[string]map[string]interface{}, len(collectionConfigs))
	for name := range collectionConfigs {
		docs[name] = make(map[string]map[string]interface{})
	}
	return &MemoryIndex{docs: docs}
}

func (m *MemoryIndex) Upsert(_ context.Context, collection, id string, doc interface{}) (Outcome, error) {
	data, err := normalize(doc)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("文档 %s 编码失败: %w", id, err)
	}
	data["id"] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.docs[collection]
	if !ok {
		return OutcomeUnknown, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	existing, found := coll[id]
	if found && reflect.DeepEqual(existing, data) {
		return OutcomeNoop, nil
	}
	coll[id] = data
	if found {
		return OutcomeUpdated, nil
	}
	return OutcomeCreated, nil
}

func (m *MemoryIndex) Get(_ context.Context, collection, id string) (map[string]interface{}, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.docs[collection]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	doc, found := coll[id]
	if !found {
		return nil, false, nil
	}
	cp := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp, true, nil
}

func (m *MemoryIndex) Delete(_ context.Context, collection, id string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.docs[collection]
	if !ok {
		return OutcomeUnknown, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if _, found := coll[id]; !found {
		return OutcomeNotFound, nil
	}
	delete(coll, id)
	return OutcomeDeleted, nil
}

// Len 集合内文档数
func (m *MemoryIndex) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}

type scored struct {
	doc   map[string]interface{}
	score int
}

func (m *MemoryIndex) Search(_ context.Context, collection string, c *query.Compiled) (*Result, error) {
	m.mu.RLock()
	coll, ok := m.docs[collection]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	var matched []scored
	for _, doc := range coll {
		hit, score := evalBool(c.Query, doc)
		if hit {
			matched = append(matched, scored{doc: doc, score: score})
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.score != b.score {
			return a.score > b.score
		}
		for _, s := range c.Sort {
			cmp := compareValues(lookup(a.doc, s.Field), lookup(b.doc, s.Field))
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return fmt.Sprint(a.doc["id"]) < fmt.Sprint(b.doc["id"])
	})

	res := &Result{Found: len(matched), Hits: make([]json.RawMessage, 0)}
	end := c.Page.From + c.Page.RequestSize()
	for i := c.Page.From; i < len(matched) && i < end; i++ {
		raw, err := json.Marshal(matched[i].doc)
		if err != nil {
			return nil, err
		}
		res.Hits = append(res.Hits, raw)
	}
	return res, nil
}

func evalBool(q *query.BoolQuery, doc map[string]interface{}) (bool, int) {
	if q == nil {
		return true, 0
	}
	for _, c := range q.Must {
		if !evalClause(c, doc) {
			return false, 0
		}
	}
	for _, c := range q.Filter {
		if !evalClause(c, doc) {
			return false, 0
		}
	}
	for _, c := range q.MustNot {
		if evalClause(c, doc) {
			return false, 0
		}
	}
	score := 0
	for _, c := range q.Should {
		if evalClause(c, doc) {
			score++
		}
	}
	if score < q.MinimumShouldMatch {
		return false, 0
	}
	return true, score
}

func evalClause(c query.Clause, doc map[string]interface{}) bool {
	switch x := c.(type) {
	case query.TermClause:
		return containsValue(lookup(doc, x.Field), x.Value)
	case query.TermsClause:
		v := lookup(doc, x.Field)
		for _, want := range x.Values {
			if containsValue(v, want) {
				return true
			}
		}
		return false
	case query.MatchClause:
		text, ok := lookup(doc, x.Field).(string)
		if !ok {
			return false
		}
		text = strings.ToLower(text)
		for _, token := range strings.Fields(strings.ToLower(x.Text)) {
			if strings.Contains(text, token) {
				return true
			}
		}
		return false
	case query.RangeClause:
		n, ok := toFloat(lookup(doc, x.Field))
		if !ok {
			return false
		}
		if x.GTE != nil && n < *x.GTE {
			return false
		}
		if x.LTE != nil && n > *x.LTE {
			return false
		}
		return true
	case query.ExistsClause:
		return present(lookup(doc, x.Field))
	case query.NestedClause:
		return evalClause(x.Inner, doc)
	case query.BoolClause:
		hit, _ := evalBool(x.Query, doc)
		return hit
	}
	return false
}

// lookup 按点分路径取值
func lookup(doc map[string]interface{}, path string) interface{} {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = obj[part]
	}
	return cur
}

func containsValue(docValue, want interface{}) bool {
	if arr, ok := docValue.([]interface{}); ok {
		for _, v := range arr {
			if equalValue(v, want) {
				return true
			}
		}
		return false
	}
	return equalValue(docValue, want)
}

// equalValue 数字按精确值比较；以字符串存储的 ID 字段也接受数字形式的查询值
func equalValue(docValue, want interface{}) bool {
	switch d := docValue.(type) {
	case json.Number:
		if di, err := d.Int64(); err == nil {
			if wi, ok := toInt(want); ok {
				return di == wi
			}
		}
		df, err := d.Float64()
		if err != nil {
			return false
		}
		wf, ok := toFloat(want)
		return ok && df == wf
	case string:
		if wi, ok := toInt(want); ok {
			return d == strconv.FormatInt(wi, 10)
		}
	}
	return reflect.DeepEqual(docValue, want)
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// present 与投影约定一致：缺省值（0、空串、空数组）视为不存在
func present(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case json.Number:
		f, err := x.Float64()
		return err == nil && f > 0
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	}
	return true
}

func compareValues(a, b interface{}) int {
	if ia, ok := toInt(a); ok {
		if ib, ok := toInt(b); ok {
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			}
			return 0
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
