package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

var (
	ErrFieldNotResolvable = errors.New("字段无法解析")
	ErrMalformedRange     = errors.New("范围条件非法")
	ErrInvalidCondition   = errors.New("条件值非法")
	ErrInvalidPage        = errors.New("分页区间非法")
	ErrFieldNotSortable   = errors.New("字段不支持排序")
)

// Condition 一个过滤条件：字段 + 值，或字段 + 范围
type Condition struct {
	Field string
	Value interface{}
	Range *Bounds
}

// Bounds 闭区间，nil 表示该侧不限；支持整数、浮点数和 time.Time
type Bounds struct {
	GTE interface{}
	LTE interface{}
}

func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Value: value}
}

func Between(field string, gte, lte interface{}) Condition {
	return Condition{Field: field, Range: &Bounds{GTE: gte, LTE: lte}}
}

func AtLeast(field string, gte interface{}) Condition {
	return Condition{Field: field, Range: &Bounds{GTE: gte}}
}

func AtMost(field string, lte interface{}) Condition {
	return Condition{Field: field, Range: &Bounds{LTE: lte}}
}

// normalizeBounds 校验并归一化范围
func normalizeBounds(field string, b *Bounds) (gte, lte *float64, err error) {
	if b == nil || (b.GTE == nil && b.LTE == nil) {
		return nil, nil, fmt.Errorf("%w: %s 没有任何边界", ErrMalformedRange, field)
	}
	if b.GTE != nil {
		v, ok := toNumber(b.GTE)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s 的下界 %v 不是有效数值", ErrMalformedRange, field, b.GTE)
		}
		gte = &v
	}
	if b.LTE != nil {
		v, ok := toNumber(b.LTE)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s 的上界 %v 不是有效数值", ErrMalformedRange, field, b.LTE)
		}
		lte = &v
	}
	if gte != nil && lte != nil && *gte > *lte {
		return nil, nil, fmt.Errorf("%w: %s 的下界大于上界", ErrMalformedRange, field)
	}
	return gte, lte, nil
}

// toNumber 转成 float64；NaN 和 ±Inf 无法比较大小，视为非数值
func toNumber(v interface{}) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case time.Time:
		if n.IsZero() {
			return 0, false
		}
		return float64(n.Unix()), true
	case *time.Time:
		if n == nil || n.IsZero() {
			return 0, false
		}
		return float64(n.Unix()), true
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
	}
	return 0, false
}

// termValues 把切片值展开为多值；非切片返回 nil
func termValues(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, json.Number, int, int32, int64, uint, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
