package model

import (
	"time"
)

// 变更目标类型
const (
	TargetTypeJob           = "JOB"
	TargetTypeTechBlog      = "TECH_BLOG"
	TargetTypeCommunityPost = "COMMUNITY_POST"
)

// 更新类型只是提示，不携带任何变更值
const (
	UpdateTypeCreated        = "CREATED"
	UpdateTypeUpdated        = "UPDATED"
	UpdateTypePopularityOnly = "POPULARITY_ONLY"
	UpdateTypeDeleted        = "DELETED"
)

const (
	OutboxStatusWait       = "WAIT"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusCompleted  = "COMPLETED"
	OutboxStatusFailed     = "FAILED"
)

var ValidOutboxTransitions = map[string][]string{
	OutboxStatusWait:       {OutboxStatusProcessing},
	OutboxStatusProcessing: {OutboxStatusCompleted, OutboxStatusFailed, OutboxStatusWait},
	OutboxStatusFailed:     {OutboxStatusProcessing, OutboxStatusWait},
}

func CanOutboxTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidOutboxTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

func IsValidTargetType(t string) bool {
	switch t {
	case TargetTypeJob, TargetTypeTechBlog, TargetTypeCommunityPost:
		return true
	}
	return false
}

func IsValidUpdateType(t string) bool {
	switch t {
	case UpdateTypeCreated, UpdateTypeUpdated, UpdateTypePopularityOnly, UpdateTypeDeleted:
		return true
	}
	return false
}

// OutboxEvent 变更账本
// 与业务写操作处于同一事务，只追加；状态原地流转，永不删除（兼做审计）
type OutboxEvent struct {
	ID           int64      `gorm:"primaryKey;autoIncrement;index:idx_outbox_status_id,priority:2" json:"id"`
	TargetType   string     `gorm:"type:varchar(32);not null;index:idx_outbox_target,priority:1" json:"target_type"`
	TargetID     int64      `gorm:"not null;index:idx_outbox_target,priority:2" json:"target_id"`
	UpdateType   string     `gorm:"type:varchar(32);not null" json:"update_type"`
	Status       string     `gorm:"type:varchar(20);not null;default:WAIT;index:idx_outbox_status_id,priority:1" json:"status"`
	RetryCount   int        `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage string     `gorm:"type:varchar(1024)" json:"error_message,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime;index" json:"updated_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

func (OutboxEvent) TableName() string {
	return "outbox_event"
}
