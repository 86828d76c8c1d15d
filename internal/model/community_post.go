package model

import (
	"time"
)

const (
	PostCategoryQuestion = "QUESTION"
	PostCategoryReview   = "REVIEW"
	PostCategoryFree     = "FREE"
)

// CommunityPost 社区帖子
type CommunityPost struct {
	ID         int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AuthorID   int64      `gorm:"index;not null" json:"author_id"`
	Title      string     `gorm:"type:varchar(256);not null" json:"title"`
	Content    string     `gorm:"type:text" json:"content"`
	Category   string     `gorm:"type:varchar(32);index" json:"category"`
	Tags       string     `gorm:"type:varchar(512)" json:"tags"`
	Deleted    bool       `gorm:"not null;default:false" json:"deleted"`
	Popularity Popularity `gorm:"embedded" json:"popularity"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommunityPost) TableName() string {
	return "community_post"
}
