package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"jobhub/internal/query"
)

// searchParams typesense 查询参数，json 字段与 api.SearchCollectionParams 对应
type searchParams struct {
	Q        string `json:"q"`
	QueryBy  string `json:"query_by"`
	FilterBy string `json:"filter_by,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

// renderer 把 BoolQuery 拆成 typesense 的三部分：
// filter_by 负责必须满足的条件，q/query_by 负责全文匹配，_eval 排序负责只影响排名的条件
type renderer struct {
	filters []string
	texts   []string
	queryBy []string
	ranking []string
}

func renderSearch(c *query.Compiled, defaultQueryBy string) (*searchParams, error) {
	r := &renderer{}
	if c.Query != nil {
		if err := r.bool(c.Query); err != nil {
			return nil, err
		}
	}

	p := &searchParams{
		Q:        "*",
		QueryBy:  defaultQueryBy,
		FilterBy: strings.Join(r.filters, " && "),
		Offset:   c.Page.From,
		Limit:    c.Page.RequestSize(),
	}
	if len(r.texts) > 0 {
		p.Q = strings.Join(r.texts, " ")
		p.QueryBy = strings.Join(dedupe(r.queryBy), ",")
	}

	sorts := make([]string, 0, len(c.Sort)+1)
	if len(r.ranking) > 0 {
		conds := make([]string, 0, len(r.ranking))
		for _, expr := range r.ranking {
			conds = append(conds, "("+expr+"):1")
		}
		sorts = append(sorts, "_eval([ "+strings.Join(conds, ", ")+" ]):desc")
	}
	for _, s := range c.Sort {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		sorts = append(sorts, s.Field+":"+dir)
	}
	p.SortBy = strings.Join(sorts, ",")
	return p, nil
}

func (r *renderer) bool(q *query.BoolQuery) error {
	for _, c := range q.Must {
		if err := r.must(c); err != nil {
			return err
		}
	}
	for _, c := range q.Filter {
		if err := r.must(c); err != nil {
			return err
		}
	}
	for _, c := range q.MustNot {
		expr, err := negate(c)
		if err != nil {
			return err
		}
		r.filters = append(r.filters, expr)
	}
	return r.should(q.Should, q.MinimumShouldMatch)
}

func (r *renderer) must(c query.Clause) error {
	switch x := c.(type) {
	case query.MatchClause:
		r.match(x)
		return nil
	case query.BoolClause:
		return r.bool(x.Query)
	}
	expr, err := filterExpr(c)
	if err != nil {
		return err
	}
	r.filters = append(r.filters, expr)
	return nil
}

func (r *renderer) match(m query.MatchClause) {
	r.texts = append(r.texts, m.Text)
	r.queryBy = append(r.queryBy, m.Field)
}

// should 只支持三种可等价表达的形态：
//   - min = 0 且全部是过滤型子句：进 _eval 排名
//   - min = 1 且全部是全文子句：进 q
//   - min = 1 且全部是过滤型子句：整体 || 成一个过滤条件
//
// 全文和过滤混在一起时，把全文放进 q 会把“任一命中”收紧成“全文必须命中”；
// min = 0 的全文子句在 typesense 里无法只影响排名。两者都直接拒绝
func (r *renderer) should(clauses []query.Clause, min int) error {
	if len(clauses) == 0 {
		return nil
	}
	if min > 1 {
		return fmt.Errorf("%w: minimum_should_match=%d", ErrUnsupportedQuery, min)
	}

	var matches []query.MatchClause
	var others []string
	for _, c := range clauses {
		if m, ok := c.(query.MatchClause); ok {
			matches = append(matches, m)
			continue
		}
		expr, err := filterExpr(c)
		if err != nil {
			return err
		}
		others = append(others, expr)
	}

	switch {
	case min == 0 && len(matches) > 0:
		return fmt.Errorf("%w: 全文条件不能只参与排名", ErrUnsupportedQuery)
	case min == 0:
		r.ranking = append(r.ranking, others...)
	case len(matches) > 0 && len(others) > 0:
		return fmt.Errorf("%w: should 中全文条件与过滤条件混用", ErrUnsupportedQuery)
	case len(matches) > 0:
		for _, m := range matches {
			r.match(m)
		}
	default:
		r.filters = append(r.filters, "("+strings.Join(others, " || ")+")")
	}
	return nil
}

func filterExpr(c query.Clause) (string, error) {
	switch x := c.(type) {
	case query.TermClause:
		return x.Field + ":=" + literal(x.Value), nil
	case query.TermsClause:
		return x.Field + ":=" + literalList(x.Values), nil
	case query.RangeClause:
		switch {
		case x.GTE != nil && x.LTE != nil:
			return fmt.Sprintf("%s:[%s..%s]", x.Field, number(*x.GTE), number(*x.LTE)), nil
		case x.GTE != nil:
			return x.Field + ":>=" + number(*x.GTE), nil
		case x.LTE != nil:
			return x.Field + ":<=" + number(*x.LTE), nil
		}
		return "", fmt.Errorf("%w: %s 的范围为空", ErrUnsupportedQuery, x.Field)
	case query.ExistsClause:
		// 可选字段在投影时补 0，大于 0 即存在
		return x.Field + ":>0", nil
	case query.NestedClause:
		return filterExpr(x.Inner)
	case query.BoolClause:
		sub := &renderer{}
		if err := sub.bool(x.Query); err != nil {
			return "", err
		}
		if len(sub.texts) > 0 || len(sub.ranking) > 0 {
			return "", fmt.Errorf("%w: 过滤条件内不能包含全文条件", ErrUnsupportedQuery)
		}
		return "(" + strings.Join(sub.filters, " && ") + ")", nil
	}
	return "", fmt.Errorf("%w: %T 不能作为过滤条件", ErrUnsupportedQuery, c)
}

func negate(c query.Clause) (string, error) {
	switch x := c.(type) {
	case query.TermClause:
		return x.Field + ":!=" + literal(x.Value), nil
	case query.TermsClause:
		return x.Field + ":!=" + literalList(x.Values), nil
	case query.RangeClause:
		switch {
		case x.GTE != nil && x.LTE != nil:
			return fmt.Sprintf("(%s:<%s || %s:>%s)", x.Field, number(*x.GTE), x.Field, number(*x.LTE)), nil
		case x.GTE != nil:
			return x.Field + ":<" + number(*x.GTE), nil
		case x.LTE != nil:
			return x.Field + ":>" + number(*x.LTE), nil
		}
	case query.ExistsClause:
		return x.Field + ":=0", nil
	case query.NestedClause:
		return negate(x.Inner)
	}
	return "", fmt.Errorf("%w: %T 不能取反", ErrUnsupportedQuery, c)
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case string:
		return "`" + strings.ReplaceAll(x, "`", "") + "`"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case json.Number:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(v)
}

func literalList(values []interface{}) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, literal(v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
