package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"fmt"
	"sort"
	"time"
)

type EnrollmentRepository struct {
	db *DB
}

func (repo *EnrollmentRepository) Create(_ context.Context, enrollment *model.Enrollment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == enrollment.StudentID && e.TargetType == enrollment.TargetType && e.TargetID == enrollment.TargetID {
			return fmt.Errorf("%w: enrollment already exists", util.ErrConflict)
		}
	}
	enrollment.ID = 0
	repo.db.stamp(&enrollment.BaseModel)
	cp := *enrollment
	repo.db.enrollments[enrollment.ID] = &cp
	return nil
}

func (repo *EnrollmentRepository) FindByID(_ context.Context, id uint) (*model.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *EnrollmentRepository) FindByStudentTarget(_ context.Context, studentID uint, kind model.EnrollmentTarget, targetID uint) (*model.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.TargetType == kind && e.TargetID == targetID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}

func (repo *EnrollmentRepository) UpdateProgress(_ context.Context, id uint, progress int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.enrollments[id]
	if !ok {
		return util.ErrNotFound
	}
	e.Progress = progress
	e.UpdatedAt = repo.db.now()
	return nil
}

func (repo *EnrollmentRepository) MarkCompleted(_ context.Context, id uint, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.enrollments[id]
	if !ok || e.CompletedAt != nil {
		return false, nil
	}
	e.Status = model.EnrollmentCompleted
	e.CompletedAt = timePtr(at)
	e.UpdatedAt = at
	return true, nil
}

func (repo *EnrollmentRepository) Drop(_ context.Context, id uint, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e, ok := repo.db.enrollments[id]
	if !ok || e.Status == model.EnrollmentDropped {
		return false, nil
	}
	e.Status = model.EnrollmentDropped
	e.DroppedAt = timePtr(at)
	e.UpdatedAt = at
	return true, nil
}

func (repo *EnrollmentRepository) ListByStudent(_ context.Context, studentID uint) ([]model.Enrollment, error) {
	return repo.list(func(e *model.Enrollment) bool { return e.StudentID == studentID }, false), nil
}

func (repo *EnrollmentRepository) ListByTarget(_ context.Context, kind model.EnrollmentTarget, targetID uint) ([]model.Enrollment, error) {
	return repo.list(func(e *model.Enrollment) bool { return e.TargetType == kind && e.TargetID == targetID }, true), nil
}

func (repo *EnrollmentRepository) StudentIDs(_ context.Context, kind model.EnrollmentTarget, targetID uint) ([]uint, error) {
	var ids []uint
	for _, e := range repo.list(func(e *model.Enrollment) bool {
		return e.TargetType == kind && e.TargetID == targetID && e.Status != model.EnrollmentDropped
	}, true) {
		ids = append(ids, e.StudentID)
	}
	return ids, nil
}

func (repo *EnrollmentRepository) list(keep func(*model.Enrollment) bool, oldestFirst bool) []model.Enrollment {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.Enrollment{}
	for _, e := range repo.db.enrollments {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}
