package query

import "fmt"

// Page 半开区间 [From, To)
//
// 执行时多取一条（(To-From)+1）来判断是否还有下一页，省掉一次 count 查询。
type Page struct {
	From int
	To   int
}

func NewPage(from, to int) (Page, error) {
	p := Page{From: from, To: to}
	return p, p.Validate()
}

func (p Page) Validate() error {
	if p.From < 0 || p.To <= p.From {
		return fmt.Errorf("%w: from=%d to=%d", ErrInvalidPage, p.From, p.To)
	}
	return nil
}

// Size 页大小
func (p Page) Size() int {
	return p.To - p.From
}

// RequestSize 实际向索引请求的条数
func (p Page) RequestSize() int {
	return p.Size() + 1
}

// Trim 去掉探测用的多余一条，返回是否有下一页
func Trim[T any](items []T, p Page) ([]T, bool) {
	if len(items) > p.Size() {
		return items[:p.Size()], true
	}
	return items, false
}
