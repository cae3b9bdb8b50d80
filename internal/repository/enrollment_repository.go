package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return duplicateOr(r.DB.WithContext(ctx).Create(enrollment).Error, "enrollment")
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := r.DB.WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) FindByStudentTarget(ctx context.Context, studentID uint, kind model.EnrollmentTarget, targetID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND target_type = ? AND target_id = ?", studentID, kind, targetID).
		First(&enrollment).Error
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id uint, progress int) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).Where("id = ?", id).Update("progress", progress).Error
}

// MarkCompleted stamps completion once; later calls report false.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EnrollmentRepository) Drop(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND status <> ?", id, model.EnrollmentDropped).
		Updates(map[string]interface{}{
			"status":     model.EnrollmentDropped,
			"dropped_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).Order("enrolled_at desc").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByTarget(ctx context.Context, kind model.EnrollmentTarget, targetID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", kind, targetID).
		Order("enrolled_at asc").
		Find(&enrollments).Error
	return enrollments, err
}

// StudentIDs lists students with a non-dropped enrollment on the target.
func (r *EnrollmentRepository) StudentIDs(ctx context.Context, kind model.EnrollmentTarget, targetID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("target_type = ? AND target_id = ? AND status <> ?", kind, targetID, model.EnrollmentDropped).
		Pluck("student_id", &ids).Error
	return ids, err
}
