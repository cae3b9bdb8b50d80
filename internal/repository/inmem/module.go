package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/util"
	"context"
	"sort"
	"time"
)

type ModuleRepository struct {
	db *DB
}

// load copies the module and attaches its materials in order. Callers hold the read lock.
func (repo *ModuleRepository) load(m *model.LearningModule) model.LearningModule {
	cp := *m
	cp.Materials = nil
	for _, mat := range repo.db.materials {
		if mat.ModuleID == m.ID {
			cp.Materials = append(cp.Materials, *mat)
		}
	}
	sort.Slice(cp.Materials, func(i, j int) bool {
		if cp.Materials[i].Order != cp.Materials[j].Order {
			return cp.Materials[i].Order < cp.Materials[j].Order
		}
		return cp.Materials[i].ID < cp.Materials[j].ID
	})
	return cp
}

func (repo *ModuleRepository) Create(_ context.Context, module *model.LearningModule) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	module.ID = 0
	repo.db.stamp(&module.BaseModel)
	for i := range module.Materials {
		mat := &module.Materials[i]
		mat.ID = 0
		mat.ModuleID = module.ID
		repo.db.stamp(&mat.BaseModel)
		mc := *mat
		repo.db.materials[mat.ID] = &mc
	}
	cp := *module
	cp.Materials = nil
	repo.db.modules[module.ID] = &cp
	return nil
}

func (repo *ModuleRepository) FindByID(_ context.Context, id uint) (*model.LearningModule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.modules[id]; ok {
		cp := repo.load(m)
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *ModuleRepository) Update(_ context.Context, module *model.LearningModule) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[module.ID]; !ok {
		return util.ErrNotFound
	}
	repo.db.stamp(&module.BaseModel)
	cp := *module
	cp.Materials = nil
	repo.db.modules[module.ID] = &cp
	return nil
}

func (repo *ModuleRepository) Delete(_ context.Context, id uint) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for mid, mat := range repo.db.materials {
		if mat.ModuleID == id {
			delete(repo.db.materials, mid)
		}
	}
	delete(repo.db.modules, id)
	return nil
}

func (repo *ModuleRepository) List(_ context.Context, f repository.ContentFilter) ([]model.LearningModule, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.LearningModule
	for _, m := range repo.db.modules {
		c := content{teacherID: m.TeacherID, status: string(m.Status), subject: m.Subject, gradeLevel: m.GradeLevel}
		if c.matches(f) {
			cp := *m
			out = append(out, cp)
		}
	}
	newestFirst(out, func(m model.LearningModule) (time.Time, uint) { return m.CreatedAt, m.ID })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (repo *ModuleRepository) UpdateStatus(_ context.Context, id uint, from, to model.ModuleStatus, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m, ok := repo.db.modules[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	switch to {
	case model.ModulePublished:
		m.PublishedAt = timePtr(at)
	case model.ModuleArchived:
		m.ArchivedAt = timePtr(at)
	}
	m.UpdatedAt = at
	return true, nil
}

func (repo *ModuleRepository) AddMaterial(_ context.Context, material *model.ModuleMaterial) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[material.ModuleID]; !ok {
		return util.ErrNotFound
	}
	count := 0
	for _, mat := range repo.db.materials {
		if mat.ModuleID == material.ModuleID {
			count++
		}
	}
	material.ID = 0
	material.Order = count
	repo.db.stamp(&material.BaseModel)
	cp := *material
	repo.db.materials[material.ID] = &cp
	return nil
}
