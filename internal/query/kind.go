// Package query 把有序的类型化过滤条件编译成一个布尔检索查询。
//
// 每个逻辑字段先经过实体的字段注册表解析出子句类型（TERM / MATCH / RANGE / EXISTS / NESTED）
// 和布尔角色（MUST / SHOULD / FILTER / MUST_NOT），再组合成 BoolQuery。
// 整个包是纯函数：不做 I/O，只对结构非法的输入返回错误。
package query

// Kind 子句类型
type Kind string

const (
	KindTerm   Kind = "TERM"
	KindMatch  Kind = "MATCH"
	KindRange  Kind = "RANGE"
	KindExists Kind = "EXISTS"
	KindNested Kind = "NESTED"
)

// Role 子句在布尔查询中的角色
type Role string

const (
	RoleMust    Role = "MUST"
	RoleShould  Role = "SHOULD"
	RoleFilter  Role = "FILTER"
	RoleMustNot Role = "MUST_NOT"
)

// DefaultRole 类型对应的默认角色
// TERM / RANGE 只过滤不影响打分；MATCH 参与相关性排序
func (k Kind) DefaultRole() Role {
	switch k {
	case KindMatch:
		return RoleShould
	default:
		return RoleFilter
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindTerm, KindMatch, KindRange, KindExists, KindNested:
		return true
	}
	return false
}

func (r Role) valid() bool {
	switch r {
	case RoleMust, RoleShould, RoleFilter, RoleMustNot:
		return true
	}
	return false
}
