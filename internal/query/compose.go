package query

// Compose 把有序条件编译成一个布尔查询
//
// 任一条件无法解析或结构非法时返回错误，不会返回只编译了一部分的查询。
// 存在 should 子句时 MinimumShouldMatch 为 1。
func Compose(reg *Registry, conditions []Condition) (*BoolQuery, error) {
	q := &BoolQuery{}
	for _, cond := range conditions {
		clause, role, err := reg.Build(cond)
		if err != nil {
			return nil, err
		}
		q.add(role, clause)
	}
	if len(q.Should) > 0 {
		q.MinimumShouldMatch = 1
	}
	return q, nil
}

// Compiled 可直接交给索引执行的查询
type Compiled struct {
	Query *BoolQuery
	Page  Page
	Sort  []SortField // 已换成索引字段名
}

// Compile 组合条件、排序和分页
func Compile(reg *Registry, conditions []Condition, page Page, sorts ...SortField) (*Compiled, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	q, err := Compose(reg, conditions)
	if err != nil {
		return nil, err
	}
	resolved, err := reg.ResolveSort(sorts)
	if err != nil {
		return nil, err
	}
	return &Compiled{Query: q, Page: page, Sort: resolved}, nil
}
