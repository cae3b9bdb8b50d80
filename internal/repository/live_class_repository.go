package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/gorm"
)

type LiveClassRepository struct {
	DB *gorm.DB
}

func NewLiveClassRepository(db *gorm.DB) *LiveClassRepository {
	return &LiveClassRepository{DB: db}
}

func (r *LiveClassRepository) Create(ctx context.Context, class *model.LiveClass) error {
	return r.DB.WithContext(ctx).Create(class).Error
}

func (r *LiveClassRepository) FindByID(ctx context.Context, id uint) (*model.LiveClass, error) {
	var class model.LiveClass
	if err := r.DB.WithContext(ctx).First(&class, id).Error; err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &class, nil
}

func (r *LiveClassRepository) Update(ctx context.Context, class *model.LiveClass) error {
	return r.DB.WithContext(ctx).Save(class).Error
}

func (r *LiveClassRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.LiveClass{}, id).Error
}

func (r *LiveClassRepository) List(ctx context.Context, f ContentFilter) ([]model.LiveClass, int64, error) {
	var total int64
	query := f.apply(r.DB.WithContext(ctx).Model(&model.LiveClass{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var classes []model.LiveClass
	err := paginate(query, f.Page, f.Limit).Order("scheduled_at asc").Find(&classes).Error
	return classes, total, err
}

func (r *LiveClassRepository) UpdateStatus(ctx context.Context, id uint, from, to model.LiveClassStatus, at time.Time) (bool, error) {
	return transition(ctx, r.DB, &model.LiveClass{}, id, string(from), string(to), at)
}

func (r *LiveClassRepository) ListByStatus(ctx context.Context, status model.LiveClassStatus) ([]model.LiveClass, error) {
	var classes []model.LiveClass
	err := r.DB.WithContext(ctx).Where("status = ?", status).Find(&classes).Error
	return classes, err
}
