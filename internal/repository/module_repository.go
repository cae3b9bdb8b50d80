package repository

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(ctx context.Context, module *model.LearningModule) error {
	return r.DB.WithContext(ctx).Create(module).Error
}

func (r *ModuleRepository) FindByID(ctx context.Context, id uint) (*model.LearningModule, error) {
	var module model.LearningModule
	err := r.DB.WithContext(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, id asc")
		}).
		First(&module, id).Error
	if err != nil {
		return nil, util.NotFoundOr(err)
	}
	return &module, nil
}

func (r *ModuleRepository) Update(ctx context.Context, module *model.LearningModule) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(module).Error
}

func (r *ModuleRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", id).Delete(&model.ModuleMaterial{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.LearningModule{}, id).Error
	})
}

func (r *ModuleRepository) List(ctx context.Context, f ContentFilter) ([]model.LearningModule, int64, error) {
	var total int64
	query := f.apply(r.DB.WithContext(ctx).Model(&model.LearningModule{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var modules []model.LearningModule
	err := paginate(query, f.Page, f.Limit).Order("created_at desc").Find(&modules).Error
	return modules, total, err
}

func (r *ModuleRepository) UpdateStatus(ctx context.Context, id uint, from, to model.ModuleStatus, at time.Time) (bool, error) {
	return transition(ctx, r.DB, &model.LearningModule{}, id, string(from), string(to), at)
}

// AddMaterial appends a material after the module's current last one.
func (r *ModuleRepository) AddMaterial(ctx context.Context, material *model.ModuleMaterial) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ModuleMaterial{}).Where("module_id = ?", material.ModuleID).Count(&count).Error; err != nil {
			return err
		}
		material.Order = int(count)
		return tx.Create(material).Error
	})
}
