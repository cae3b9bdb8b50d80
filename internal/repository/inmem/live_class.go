package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/util"
	"context"
	"sort"
	"time"
)

type LiveClassRepository struct {
	db *DB
}

func (repo *LiveClassRepository) Create(_ context.Context, class *model.LiveClass) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	class.ID = 0
	repo.db.stamp(&class.BaseModel)
	cp := *class
	repo.db.liveClasses[class.ID] = &cp
	return nil
}

func (repo *LiveClassRepository) FindByID(_ context.Context, id uint) (*model.LiveClass, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if l, ok := repo.db.liveClasses[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *LiveClassRepository) Update(_ context.Context, class *model.LiveClass) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.liveClasses[class.ID]; !ok {
		return util.ErrNotFound
	}
	repo.db.stamp(&class.BaseModel)
	cp := *class
	repo.db.liveClasses[class.ID] = &cp
	return nil
}

func (repo *LiveClassRepository) Delete(_ context.Context, id uint) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.liveClasses, id)
	return nil
}

func (repo *LiveClassRepository) List(_ context.Context, f repository.ContentFilter) ([]model.LiveClass, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.LiveClass{}
	for _, l := range repo.db.liveClasses {
		c := content{l.TeacherID, l.ModuleID, string(l.Status), l.Subject, l.GradeLevel}
		if c.matches(f) {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (repo *LiveClassRepository) UpdateStatus(_ context.Context, id uint, from, to model.LiveClassStatus, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l, ok := repo.db.liveClasses[id]
	if !ok || l.Status != from {
		return false, nil
	}
	l.Status = to
	switch to {
	case model.LiveClassLive:
		l.StartedAt = timePtr(at)
	case model.LiveClassCompleted, model.LiveClassCancelled:
		l.EndedAt = timePtr(at)
	}
	l.UpdatedAt = at
	return true, nil
}

func (repo *LiveClassRepository) ListByStatus(_ context.Context, status model.LiveClassStatus) ([]model.LiveClass, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.LiveClass
	for _, l := range repo.db.liveClasses {
		if l.Status == status {
			out = append(out, *l)
		}
	}
	return out, nil
}
