package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// AnswerSheet maps question index to selected option index.
type AnswerSheet map[int]int

// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	QuizID         uint                            `gorm:"index:idx_attempt_quiz_student;not null" json:"quizId"`
	StudentID      uint                            `gorm:"index:idx_attempt_quiz_student;not null" json:"studentId"`
	Answers        datatypes.JSONType[AnswerSheet] `gorm:"type:json" json:"answers"`
	Score          *int                            `json:"score"`
	TotalQuestions int                             `json:"totalQuestions"`
	CorrectAnswers int                             `json:"correctAnswers"`
	Passed         bool                            `json:"passed"`
	TimeSpent      int                             `json:"timeSpent"` // seconds
	StartedAt      time.Time                       `json:"startedAt"`
	CompletedAt    *time.Time                      `json:"completedAt,omitempty"`
	Status         AttemptStatus                   `gorm:"size:20;default:'in_progress';index" json:"status"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
