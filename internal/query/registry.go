package query

import (
	"fmt"
)

// FieldSpec 逻辑字段到索引字段的映射，是查询构建器和索引结构之间的契约
type FieldSpec struct {
	Name       string // 对外的逻辑字段名
	Kind       Kind
	IndexField string // 索引中的字段名，为空时同 Name
	Role       Role   // 为空时取 Kind.DefaultRole()
	Sortable   bool

	// 仅 NESTED：嵌套对象路径和内层子句类型
	Path      string
	InnerKind Kind
}

func (s FieldSpec) indexField() string {
	if s.IndexField != "" {
		return s.IndexField
	}
	return s.Name
}

func (s FieldSpec) role() Role {
	if s.Role != "" {
		return s.Role
	}
	return s.Kind.DefaultRole()
}

// ClauseBuilder 按字段规格把条件编译成子句，并给出最终角色
type ClauseBuilder func(spec FieldSpec, cond Condition) (Clause, Role, error)

func builderFor(k Kind) (ClauseBuilder, bool) {
	switch k {
	case KindTerm:
		return buildTerm, true
	case KindMatch:
		return buildMatch, true
	case KindRange:
		return buildRange, true
	case KindExists:
		return buildExists, true
	case KindNested:
		return buildNested, true
	}
	return nil, false
}

// Registry 一个实体类型的字段注册表，注册后只读
type Registry struct {
	entity string
	specs  map[string]FieldSpec
}

// NewRegistry 创建注册表；字段重复或规格非法属于编程错误，直接 panic
func NewRegistry(entity string, specs ...FieldSpec) *Registry {
	r := &Registry{entity: entity, specs: make(map[string]FieldSpec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.Name]; dup {
			panic(fmt.Sprintf("query: %s 注册表中字段 %q 重复", entity, s.Name))
		}
		if !s.Kind.valid() {
			panic(fmt.Sprintf("query: 字段 %q 的类型 %q 未知", s.Name, s.Kind))
		}
		if s.Role != "" && !s.Role.valid() {
			panic(fmt.Sprintf("query: 字段 %q 的角色 %q 未知", s.Name, s.Role))
		}
		if s.Kind == KindNested && (s.Path == "" || !s.InnerKind.valid() || s.InnerKind == KindNested) {
			panic(fmt.Sprintf("query: 嵌套字段 %q 需要 path 和非嵌套的内层类型", s.Name))
		}
		r.specs[s.Name] = s
	}
	return r
}

func (r *Registry) Entity() string {
	return r.entity
}

// Resolve 查找字段规格
func (r *Registry) Resolve(field string) (FieldSpec, error) {
	spec, ok := r.specs[field]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s.%s", ErrFieldNotResolvable, r.entity, field)
	}
	return spec, nil
}

// Build 编译单个条件
func (r *Registry) Build(cond Condition) (Clause, Role, error) {
	spec, err := r.Resolve(cond.Field)
	if err != nil {
		return nil, "", err
	}
	build, ok := builderFor(spec.Kind)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s.%s 没有对应的构建器", ErrFieldNotResolvable, r.entity, cond.Field)
	}
	return build(spec, cond)
}

// SortField 排序字段，Field 为逻辑字段名
type SortField struct {
	Field string
	Desc  bool
}

// ResolveSort 把逻辑排序字段换成索引字段
func (r *Registry) ResolveSort(sorts []SortField) ([]SortField, error) {
	out := make([]SortField, 0, len(sorts))
	for _, s := range sorts {
		spec, err := r.Resolve(s.Field)
		if err != nil {
			return nil, err
		}
		if !spec.Sortable {
			return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotSortable, r.entity, s.Field)
		}
		field := spec.indexField()
		if spec.Kind == KindNested {
			field = spec.Path + "." + field
		}
		out = append(out, SortField{Field: field, Desc: s.Desc})
	}
	return out, nil
}

func buildTerm(spec FieldSpec, cond Condition) (Clause, Role, error) {
	if cond.Range != nil || cond.Value == nil {
		return nil, "", fmt.Errorf("%w: %s 需要一个值", ErrInvalidCondition, spec.Name)
	}
	if values, ok := termValues(cond.Value); ok {
		if len(values) == 0 {
			return nil, "", fmt.Errorf("%w: %s 的取值列表为空", ErrInvalidCondition, spec.Name)
		}
		for _, v := range values {
			if !isScalar(v) {
				return nil, "", fmt.Errorf("%w: %s 的取值 %v 不是标量", ErrInvalidCondition, spec.Name, v)
			}
		}
		return TermsClause{Field: spec.indexField(), Values: values}, spec.role(), nil
	}
	if !isScalar(cond.Value) {
		return nil, "", fmt.Errorf("%w: %s 的取值 %v 不是标量", ErrInvalidCondition, spec.Name, cond.Value)
	}
	return TermClause{Field: spec.indexField(), Value: cond.Value}, spec.role(), nil
}

func buildMatch(spec FieldSpec, cond Condition) (Clause, Role, error) {
	text, ok := cond.Value.(string)
	if cond.Range != nil || !ok || !nonBlank(text) {
		return nil, "", fmt.Errorf("%w: %s 需要非空文本", ErrInvalidCondition, spec.Name)
	}
	return MatchClause{Field: spec.indexField(), Text: text}, spec.role(), nil
}

func buildRange(spec FieldSpec, cond Condition) (Clause, Role, error) {
	if cond.Range == nil {
		return nil, "", fmt.Errorf("%w: %s 需要范围条件", ErrMalformedRange, spec.Name)
	}
	gte, lte, err := normalizeBounds(spec.Name, cond.Range)
	if err != nil {
		return nil, "", err
	}
	return RangeClause{Field: spec.indexField(), GTE: gte, LTE: lte}, spec.role(), nil
}

// buildExists 值为 false 时表示“字段不存在”，角色翻转为 MUST_NOT
func buildExists(spec FieldSpec, cond Condition) (Clause, Role, error) {
	want := true
	if cond.Value != nil {
		b, ok := cond.Value.(bool)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s 需要布尔值", ErrInvalidCondition, spec.Name)
		}
		want = b
	}
	role := spec.role()
	if !want {
		role = RoleMustNot
	}
	return ExistsClause{Field: spec.indexField()}, role, nil
}

func buildNested(spec FieldSpec, cond Condition) (Clause, Role, error) {
	inner := spec
	inner.Kind = spec.InnerKind
	inner.IndexField = spec.Path + "." + spec.indexField()
	build, ok := builderFor(inner.Kind)
	if !ok {
		return nil, "", fmt.Errorf("%w: 嵌套字段 %s 没有对应的构建器", ErrFieldNotResolvable, spec.Name)
	}
	clause, role, err := build(inner, cond)
	if err != nil {
		return nil, "", err
	}
	return NestedClause{Path: spec.Path, Inner: clause}, role, nil
}
