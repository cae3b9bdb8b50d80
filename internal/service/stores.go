package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"context"
	"time"
)

// The services depend on these instead of the gorm repositories so the
// in-memory tables can stand in for them.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	FindByID(ctx context.Context, id uint) (*model.Quiz, error)
	Update(ctx context.Context, quiz *model.Quiz) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f repository.ContentFilter) ([]model.Quiz, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.QuizStatus, at time.Time) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]model.Quiz, error)
}

type AttemptStore interface {
	Start(ctx context.Context, quizID, studentID uint, decide repository.AttemptDecider) (*model.QuizAttempt, error)
	FindByID(ctx context.Context, id uint) (*model.QuizAttempt, error)
	Complete(ctx context.Context, attempt *model.QuizAttempt) (bool, error)
	Abandon(ctx context.Context, id uint, at time.Time) (bool, error)
	ListByStudent(ctx context.Context, studentID, quizID uint) ([]model.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID uint) ([]model.QuizAttempt, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, assignment *model.Assignment) error
	FindByID(ctx context.Context, id uint) (*model.Assignment, error)
	Update(ctx context.Context, assignment *model.Assignment) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f repository.ContentFilter) ([]model.Assignment, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.AssignmentStatus, at time.Time) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]model.Assignment, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, submission *model.Submission) error
	FindByID(ctx context.Context, id uint) (*model.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (*model.Submission, error)
	Update(ctx context.Context, submission *model.Submission) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]model.Submission, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.Submission, error)
}

type ModuleStore interface {
	Create(ctx context.Context, module *model.LearningModule) error
	FindByID(ctx context.Context, id uint) (*model.LearningModule, error)
	Update(ctx context.Context, module *model.LearningModule) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f repository.ContentFilter) ([]model.LearningModule, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.ModuleStatus, at time.Time) (bool, error)
	AddMaterial(ctx context.Context, material *model.ModuleMaterial) error
}

type LiveClassStore interface {
	Create(ctx context.Context, class *model.LiveClass) error
	FindByID(ctx context.Context, id uint) (*model.LiveClass, error)
	Update(ctx context.Context, class *model.LiveClass) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f repository.ContentFilter) ([]model.LiveClass, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.LiveClassStatus, at time.Time) (bool, error)
	ListByStatus(ctx context.Context, status model.LiveClassStatus) ([]model.LiveClass, error)
}

type EnrollmentStore interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	FindByID(ctx context.Context, id uint) (*model.Enrollment, error)
	FindByStudentTarget(ctx context.Context, studentID uint, kind model.EnrollmentTarget, targetID uint) (*model.Enrollment, error)
	UpdateProgress(ctx context.Context, id uint, progress int) error
	MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error)
	Drop(ctx context.Context, id uint, at time.Time) (bool, error)
	ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error)
	ListByTarget(ctx context.Context, kind model.EnrollmentTarget, targetID uint) ([]model.Enrollment, error)
	StudentIDs(ctx context.Context, kind model.EnrollmentTarget, targetID uint) ([]uint, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id string, userID uint) (*model.Notification, error)
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id string, userID uint, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

// Clock lets tests pin "now".
type Clock func() time.Time
