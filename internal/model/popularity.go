package model

// 计数列族，只允许通过原子累加修改
const (
	CounterViewCount    = "view_count"
	CounterCommentCount = "comment_count"
	CounterLikeCount    = "like_count"
)

func IsValidCounterColumn(column string) bool {
	switch column {
	case CounterViewCount, CounterCommentCount, CounterLikeCount:
		return true
	}
	return false
}

// Popularity 热度计数，嵌入到各内容表
type Popularity struct {
	ViewCount    int64 `gorm:"not null;default:0" json:"view_count"`
	CommentCount int64 `gorm:"not null;default:0" json:"comment_count"`
	LikeCount    int64 `gorm:"not null;default:0" json:"like_count"`
}
