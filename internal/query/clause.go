package query

// Clause 编译后的子句
type Clause interface {
	isClause()
}

// TermClause 精确匹配
type TermClause struct {
	Field string
	Value interface{}
}

// TermsClause 精确匹配任一值
type TermsClause struct {
	Field  string
	Values []interface{}
}

// MatchClause 全文匹配
type MatchClause struct {
	Field string
	Text  string
}

// RangeClause 闭区间范围，nil 表示该侧不限
// 时间值已归一化为 unix 秒
type RangeClause struct {
	Field string
	GTE   *float64
	LTE   *float64
}

// ExistsClause 字段存在
type ExistsClause struct {
	Field string
}

// NestedClause 嵌套对象内的子句
type NestedClause struct {
	Path  string
	Inner Clause
}

// BoolClause 把一个布尔查询作为子句嵌入
type BoolClause struct {
	Query *BoolQuery
}

func (TermClause) isClause()   {}
func (TermsClause) isClause()  {}
func (MatchClause) isClause()  {}
func (RangeClause) isClause()  {}
func (ExistsClause) isClause() {}
func (NestedClause) isClause() {}
func (BoolClause) isClause()   {}

// BoolQuery 布尔查询
//
// Must / Filter 取交集，Should 取并集且至少命中 MinimumShouldMatch 个，MustNot 取反。
type BoolQuery struct {
	Must               []Clause
	Should             []Clause
	Filter             []Clause
	MustNot            []Clause
	MinimumShouldMatch int
}

func (q *BoolQuery) add(role Role, c Clause) {
	switch role {
	case RoleMust:
		q.Must = append(q.Must, c)
	case RoleShould:
		q.Should = append(q.Should, c)
	case RoleFilter:
		q.Filter = append(q.Filter, c)
	case RoleMustNot:
		q.MustNot = append(q.MustNot, c)
	}
}

// MergeShould 向已构建的查询追加只影响排序的 should 子句
//
// 原查询若已有 should 子句（最少命中 >= 1），先把它们收进一个 MUST 子查询保留其过滤效果，
// 再把新子句作为 MinimumShouldMatch = 0 的 should 挂上去，保证不改变可命中的文档集合。
func (q *BoolQuery) MergeShould(clauses ...Clause) {
	if len(clauses) == 0 {
		return
	}
	if len(q.Should) > 0 && q.MinimumShouldMatch > 0 {
		q.Must = append(q.Must, BoolClause{Query: &BoolQuery{
			Should:             q.Should,
			MinimumShouldMatch: q.MinimumShouldMatch,
		}})
		q.Should = nil
	}
	q.Should = append(q.Should, clauses...)
	q.MinimumShouldMatch = 0
}

// IsEmpty 没有任何子句时匹配全部文档
func (q *BoolQuery) IsEmpty() bool {
	return len(q.Must) == 0 && len(q.Should) == 0 && len(q.Filter) == 0 && len(q.MustNot) == 0
}
