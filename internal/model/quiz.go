package model

import (
	"time"

	"gorm.io/datatypes"
)

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizClosed    QuizStatus = "closed"
)

// QuizQuestion is stored inline on the quiz, in order.
type QuizQuestion struct {
	Prompt        string   `json:"prompt" yaml:"prompt" validate:"required"`
	Options       []string `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty" yaml:"correctAnswer" validate:"required"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation"`
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	TeacherID          uint                              `gorm:"index;not null" json:"teacherId"`
	ModuleID           *uint                             `gorm:"index" json:"moduleId,omitempty"`
	Title              string                            `gorm:"size:255;not null" json:"title"`
	Description        string                            `gorm:"type:text" json:"description"`
	Subject            string                            `gorm:"size:100;index" json:"subject"`
	GradeLevel         string                            `gorm:"size:50;index" json:"gradeLevel"`
	Questions          datatypes.JSONSlice[QuizQuestion] `gorm:"type:json" json:"questions"`
	TimeLimit          *int                              `json:"timeLimit,omitempty"` // minutes
	PassingScore       int                               `gorm:"default:60" json:"passingScore"`
	TotalPoints        int                               `json:"totalPoints"`
	AllowRetake        bool                              `gorm:"default:false" json:"allowRetake"`
	ShowCorrectAnswers bool                              `gorm:"default:false" json:"showCorrectAnswers"`
	AutoCloseOnDue     bool                              `gorm:"default:false" json:"autoCloseOnDue"`
	Status             QuizStatus                        `gorm:"size:20;default:'draft';index" json:"status"`
	PublishedAt        *time.Time                        `json:"publishedAt,omitempty"`
	ClosedAt           *time.Time                        `json:"closedAt,omitempty"`
	DueDate            *time.Time                        `json:"dueDate,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Redacted returns a copy whose questions carry neither the answer key nor explanations.
func (q Quiz) Redacted() Quiz {
	out := q
	qs := make([]QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		qs[i] = QuizQuestion{
			Prompt:  question.Prompt,
			Options: append([]string(nil), question.Options...),
		}
	}
	out.Questions = qs
	return out
}
