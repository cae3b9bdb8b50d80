package model

import "time"

type EnrollmentTarget string

const (
	TargetModule    EnrollmentTarget = "module"
	TargetCourse    EnrollmentTarget = "course"
	TargetLiveClass EnrollmentTarget = "live_class"
)

func (t EnrollmentTarget) Valid() bool {
	switch t {
	case TargetModule, TargetCourse, TargetLiveClass:
		return true
	}
	return false
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID   uint             `gorm:"uniqueIndex:idx_enrollment_student_target;not null" json:"studentId"`
	TargetType  EnrollmentTarget `gorm:"uniqueIndex:idx_enrollment_student_target;size:20;not null" json:"targetType"`
	TargetID    uint             `gorm:"uniqueIndex:idx_enrollment_student_target;not null" json:"targetId"`
	Progress    int              `gorm:"default:0" json:"progress"`
	Status      EnrollmentStatus `gorm:"size:20;default:'active';index" json:"status"`
	EnrolledAt  time.Time        `json:"enrolledAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	DroppedAt   *time.Time       `json:"droppedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
