package model

import (
	"time"
)

// TechBlog 技术博客文章
type TechBlog struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title       string     `gorm:"type:varchar(256);not null" json:"title"`
	Summary     string     `gorm:"type:varchar(1024)" json:"summary"`
	Content     string     `gorm:"type:mediumtext" json:"content"`
	Company     string     `gorm:"type:varchar(128);index" json:"company"`
	URL         string     `gorm:"type:varchar(512);uniqueIndex;not null" json:"url"`
	Tags        string     `gorm:"type:varchar(512)" json:"tags"`
	PublishedAt time.Time  `gorm:"index" json:"published_at"`
	Deleted     bool       `gorm:"not null;default:false" json:"deleted"`
	Popularity  Popularity `gorm:"embedded" json:"popularity"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TechBlog) TableName() string {
	return "tech_blog"
}
