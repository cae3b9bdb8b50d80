package model

import (
	"time"

	"gorm.io/datatypes"
)

type LiveClassStatus string

const (
	LiveClassScheduled LiveClassStatus = "scheduled"
	LiveClassLive      LiveClassStatus = "live"
	LiveClassCompleted LiveClassStatus = "completed"
	LiveClassCancelled LiveClassStatus = "cancelled"
)

// LiveClassSettings holds meeting details and room options.
type LiveClassSettings struct {
	MeetingID        string `json:"meetingId,omitempty"`
	JoinURL          string `json:"joinUrl,omitempty"`
	Password         string `json:"password,omitempty"`
	RecordingEnabled bool   `json:"recordingEnabled"`
	WaitingRoom      bool   `json:"waitingRoom"`
	ChatEnabled      bool   `json:"chatEnabled"`
}

// swagger:model LiveClass
type LiveClass struct {
	BaseModel
	TeacherID       uint                                  `gorm:"index;not null" json:"teacherId"`
	ModuleID        *uint                                 `gorm:"index" json:"moduleId,omitempty"`
	Title           string                                `gorm:"size:255;not null" json:"title"`
	Description     string                                `gorm:"type:text" json:"description"`
	Subject         string                                `gorm:"size:100;index" json:"subject"`
	GradeLevel      string                                `gorm:"size:50" json:"gradeLevel"`
	ScheduledAt     time.Time                             `gorm:"index" json:"scheduledAt"`
	DurationMinutes int                                   `gorm:"default:60" json:"durationMinutes"`
	MaxParticipants int                                   `gorm:"default:0" json:"maxParticipants"`
	Status          LiveClassStatus                       `gorm:"size:20;default:'scheduled';index" json:"status"`
	StartedAt       *time.Time                            `json:"startedAt,omitempty"`
	EndedAt         *time.Time                            `json:"endedAt,omitempty"`
	Settings        datatypes.JSONType[LiveClassSettings] `gorm:"type:json" json:"settings"`
}

func (LiveClass) TableName() string {
	return "live_classes"
}

// EndsAt is the planned end of the class.
func (l LiveClass) EndsAt() time.Time {
	return l.ScheduledAt.Add(time.Duration(l.DurationMinutes) * time.Minute)
}
