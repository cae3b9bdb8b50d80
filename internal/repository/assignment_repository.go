package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *model.Assignment) error {
	return r.DB.WithContext(ctx).Create(assignment).Error
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	if err := r.DB.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &assignment, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, assignment *model.Assignment) error {
	return r.DB.WithContext(ctx).Save(assignment).Error
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&model.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assignment{}, id).Error
	})
}

func (r *AssignmentRepository) List(ctx context.Context, f ContentFilter) ([]model.Assignment, int64, error) {
	var total int64
	query := f.apply(r.DB.WithContext(ctx).Model(&model.Assignment{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []model.Assignment
	err := paginate(query, f.Page, f.Limit).Order("created_at desc").Find(&assignments).Error
	return assignments, total, err
}

func (r *AssignmentRepository) UpdateStatus(ctx context.Context, id uint, from, to model.AssignmentStatus, at time.Time) (bool, error) {
	return transition(ctx, r.DB, &model.Assignment{}, id, string(from), string(to), at)
}

func (r *AssignmentRepository) ListDue(ctx context.Context, now time.Time) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.WithContext(ctx).
		Where("status = ? AND auto_close_on_due = ? AND due_date IS NOT NULL AND due_date <= ?", model.AssignmentPublished, true, now).
		Find(&assignments).Error
	return assignments, err
}

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	return duplicateOr(r.DB.WithContext(ctx).Omit(clause.Associations).Create(submission).Error, "submission")
}

// FindByID loads the submission together with its assignment. Assignment is nil
// when the parent row has been removed.
func (r *SubmissionRepository) FindByID(ctx context.Context, id uint) (*model.Submission, error) {
	var submission model.Submission
	if err := r.DB.WithContext(ctx).Preload("Assignment").First(&submission, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &submission, nil
}

func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (*model.Submission, error) {
	var submission model.Submission
	err := r.DB.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &submission, nil
}

func (r *SubmissionRepository) Update(ctx context.Context, submission *model.Submission) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(submission).Error
}

func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.DB.WithContext(ctx).Where("assignment_id = ?", assignmentID).Order("submitted_at desc").Find(&submissions).Error
	return submissions, err
}

func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.DB.WithContext(ctx).Preload("Assignment").
		Where("student_id = ?", studentID).
		Order("submitted_at desc").
		Find(&submissions).Error
	return submissions, err
}
