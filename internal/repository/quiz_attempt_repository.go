package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AttemptDecider inspects a student's existing attempts on a quiz and returns
// the attempt to insert, or an error to abort. It may return an attempt together
// with an error to surface existing data to the caller.
type AttemptDecider func(existing []model.QuizAttempt) (*model.QuizAttempt, error)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// Start runs decide and the insert in one serializable transaction. The partial
// unique index on in-progress attempts catches whatever slips past it.
func (r *QuizAttemptRepository) Start(ctx context.Context, quizID, studentID uint, decide AttemptDecider) (*model.QuizAttempt, error) {
	var out *model.QuizAttempt
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.QuizAttempt
		if err := tx.Where("quiz_id = ? AND student_id = ?", quizID, studentID).Order("id desc").Find(&existing).Error; err != nil {
			return err
		}
		attempt, err := decide(existing)
		out = attempt
		if err != nil {
			return err
		}
		return tx.Create(attempt).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err == nil {
		return out, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isSerializationFailure(err) || errors.Is(duplicateOr(err, "attempt"), util.ErrConflict) {
		var current model.QuizAttempt
		if findErr := r.DB.WithContext(ctx).
			Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, model.AttemptInProgress).
			First(&current).Error; findErr == nil {
			return &current, fmt.Errorf("%w: an attempt is already in progress", util.ErrConflict)
		}
	}
	return out, err
}

func (r *QuizAttemptRepository) FindByID(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	if err := r.DB.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &attempt, nil
}

// Complete stores the graded attempt if it is still in progress.
func (r *QuizAttemptRepository) Complete(ctx context.Context, attempt *model.QuizAttempt) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"answers":         attempt.Answers,
			"score":           attempt.Score,
			"correct_answers": attempt.CorrectAnswers,
			"passed":          attempt.Passed,
			"time_spent":      attempt.TimeSpent,
			"completed_at":    attempt.CompletedAt,
			"status":          attempt.Status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *QuizAttemptRepository) Abandon(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       model.AttemptAbandoned,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByStudent returns a student's attempts, newest first. quizID 0 means all quizzes.
func (r *QuizAttemptRepository) ListByStudent(ctx context.Context, studentID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	q := r.DB.WithContext(ctx).Where("student_id = ?", studentID)
	if quizID != 0 {
		q = q.Where("quiz_id = ?", quizID)
	}
	err := q.Order("id desc").Find(&attempts).Error
	return attempts, err
}

func (r *QuizAttemptRepository) ListByQuiz(ctx context.Context, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).Where("quiz_id = ?", quizID).Order("id desc").Find(&attempts).Error
	return attempts, err
}
