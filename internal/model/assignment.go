package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentStatus string

const (
	AssignmentDraft     AssignmentStatus = "draft"
	AssignmentPublished AssignmentStatus = "published"
	AssignmentClosed    AssignmentStatus = "closed"
)

// swagger:model Assignment
type Assignment struct {
	BaseModel
	TeacherID      uint             `gorm:"index;not null" json:"teacherId"`
	ModuleID       *uint            `gorm:"index" json:"moduleId,omitempty"`
	Title          string           `gorm:"size:255;not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	Instructions   string           `gorm:"type:text" json:"instructions"`
	Subject        string           `gorm:"size:100;index" json:"subject"`
	GradeLevel     string           `gorm:"size:50;index" json:"gradeLevel"`
	MaxPoints      decimal.Decimal  `gorm:"type:decimal(7,2);not null" json:"maxPoints"`
	AllowLate      bool             `gorm:"default:false" json:"allowLate"`
	AutoCloseOnDue bool             `gorm:"default:false" json:"autoCloseOnDue"`
	Status         AssignmentStatus `gorm:"size:20;default:'draft';index" json:"status"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	PublishedAt    *time.Time       `json:"publishedAt,omitempty"`
	ClosedAt       *time.Time       `json:"closedAt,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

// swagger:model Submission
type Submission struct {
	BaseModel
	AssignmentID  uint                `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"assignmentId"`
	Assignment    *Assignment         `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	StudentID     uint                `gorm:"uniqueIndex:idx_submission_assignment_student;not null" json:"studentId"`
	Content       string              `gorm:"type:text" json:"content"`
	AttachmentURL string              `gorm:"size:512" json:"attachmentUrl,omitempty"`
	Status        SubmissionStatus    `gorm:"size:20;default:'submitted';index" json:"status"`
	IsLate        bool                `gorm:"default:false" json:"isLate"`
	SubmittedAt   time.Time           `json:"submittedAt"`
	Grade         decimal.NullDecimal `gorm:"type:decimal(7,2)" json:"grade"`
	Feedback      *string             `gorm:"type:text" json:"feedback"`
	GradedAt      *time.Time          `json:"gradedAt,omitempty"`
	GradedBy      *uint               `json:"gradedBy,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}
