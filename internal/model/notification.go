package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotifySubmissionGraded    = "submission.graded"
	NotifySubmissionReturned  = "submission.returned"
	NotifyAssignmentPublished = "assignment.published"
	NotifyQuizPublished       = "quiz.published"
	NotifyLiveClassStarted    = "liveclass.started"
)

// swagger:model Notification
type Notification struct {
	UUIDBase
	UserID  uint              `gorm:"index;not null" json:"userId"`
	Type    string            `gorm:"size:50;not null" json:"type"`
	Title   string            `gorm:"size:255;not null" json:"title"`
	Message string            `gorm:"type:text" json:"message"`
	Data    datatypes.JSONMap `gorm:"type:json" json:"data,omitempty"`
	Read    bool              `gorm:"column:is_read;default:false;index" json:"read"`
	ReadAt  *time.Time        `json:"readAt,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
