package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &quiz, nil
}

func (r *QuizRepository) Update(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Save(quiz).Error
}

func (r *QuizRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, id).Error
	})
}

func (r *QuizRepository) List(ctx context.Context, f ContentFilter) ([]model.Quiz, int64, error) {
	var total int64
	query := f.apply(r.DB.WithContext(ctx).Model(&model.Quiz{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var quizzes []model.Quiz
	err := paginate(query, f.Page, f.Limit).Order("created_at desc").Find(&quizzes).Error
	return quizzes, total, err
}

func (r *QuizRepository) UpdateStatus(ctx context.Context, id uint, from, to model.QuizStatus, at time.Time) (bool, error) {
	return transition(ctx, r.DB, &model.Quiz{}, id, string(from), string(to), at)
}

// ListDue returns published quizzes flagged for auto-close whose due date has passed.
func (r *QuizRepository) ListDue(ctx context.Context, now time.Time) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Where("status = ? AND auto_close_on_due = ? AND due_date IS NOT NULL AND due_date <= ?", model.QuizPublished, true, now).
		Find(&quizzes).Error
	return quizzes, err
}
