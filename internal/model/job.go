package model

import (
	"time"
)

const (
	EmploymentTypeFullTime = "FULL_TIME"
	EmploymentTypeContract = "CONTRACT"
	EmploymentTypeIntern   = "INTERN"
)

// Job 招聘岗位
type Job struct {
	ID             int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title          string     `gorm:"type:varchar(256);not null" json:"title"`
	Company        string     `gorm:"type:varchar(128);index;not null" json:"company"`
	Description    string     `gorm:"type:text" json:"description"`
	Location       string     `gorm:"type:varchar(128)" json:"location"`
	EmploymentType string     `gorm:"type:varchar(32)" json:"employment_type"`
	CareerLevel    string     `gorm:"type:varchar(32)" json:"career_level"`
	MinYears       int        `gorm:"not null;default:0" json:"min_years"`
	MaxYears       int        `gorm:"not null;default:0" json:"max_years"`
	Tags           string     `gorm:"type:varchar(512)" json:"tags"` // 逗号分隔
	SourceURL      string     `gorm:"type:varchar(512)" json:"source_url"`
	Deadline       *time.Time `json:"deadline"`
	Deleted        bool       `gorm:"not null;default:false" json:"deleted"`
	Popularity     Popularity `gorm:"embedded" json:"popularity"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "job"
}
