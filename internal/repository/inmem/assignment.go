package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/util"
	"context"
	"fmt"
	"time"
)

type AssignmentRepository struct {
	db *DB
}

func (repo *AssignmentRepository) Create(_ context.Context, assignment *model.Assignment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	assignment.ID = 0
	repo.db.stamp(&assignment.BaseModel)
	cp := *assignment
	repo.db.assignments[assignment.ID] = &cp
	return nil
}

func (repo *AssignmentRepository) FindByID(_ context.Context, id uint) (*model.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *AssignmentRepository) Update(_ context.Context, assignment *model.Assignment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[assignment.ID]; !ok {
		return util.ErrNotFound
	}
	repo.db.stamp(&assignment.BaseModel)
	cp := *assignment
	repo.db.assignments[assignment.ID] = &cp
	return nil
}

func (repo *AssignmentRepository) Delete(_ context.Context, id uint) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for sid, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sid)
		}
	}
	delete(repo.db.assignments, id)
	return nil
}

func (repo *AssignmentRepository) List(_ context.Context, f repository.ContentFilter) ([]model.Assignment, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.Assignment
	for _, a := range repo.db.assignments {
		c := content{a.TeacherID, a.ModuleID, string(a.Status), a.Subject, a.GradeLevel}
		if c.matches(f) {
			out = append(out, *a)
		}
	}
	newestFirst(out, func(a model.Assignment) (time.Time, uint) { return a.CreatedAt, a.ID })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (repo *AssignmentRepository) UpdateStatus(_ context.Context, id uint, from, to model.AssignmentStatus, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	switch to {
	case model.AssignmentPublished:
		a.PublishedAt = timePtr(at)
	case model.AssignmentClosed:
		a.ClosedAt = timePtr(at)
	}
	a.UpdatedAt = at
	return true, nil
}

func (repo *AssignmentRepository) ListDue(_ context.Context, now time.Time) ([]model.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.Assignment
	for _, a := range repo.db.assignments {
		if a.Status == model.AssignmentPublished && a.AutoCloseOnDue && a.DueDate != nil && !a.DueDate.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

type SubmissionRepository struct {
	db *DB
}

// withAssignment copies s and attaches a copy of its assignment when it still exists.
// Callers hold the read lock.
func (repo *SubmissionRepository) withAssignment(s *model.Submission) model.Submission {
	cp := *s
	cp.Assignment = nil
	if a, ok := repo.db.assignments[s.AssignmentID]; ok {
		ac := *a
		cp.Assignment = &ac
	}
	return cp
}

func (repo *SubmissionRepository) Create(_ context.Context, submission *model.Submission) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == submission.AssignmentID && s.StudentID == submission.StudentID {
			return fmt.Errorf("%w: submission already exists", util.ErrConflict)
		}
	}
	submission.ID = 0
	repo.db.stamp(&submission.BaseModel)
	cp := *submission
	cp.Assignment = nil
	repo.db.submissions[submission.ID] = &cp
	return nil
}

func (repo *SubmissionRepository) FindByID(_ context.Context, id uint) (*model.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		cp := repo.withAssignment(s)
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *SubmissionRepository) FindByAssignmentAndStudent(_ context.Context, assignmentID, studentID uint) (*model.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}

func (repo *SubmissionRepository) Update(_ context.Context, submission *model.Submission) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.submissions[submission.ID]; !ok {
		return util.ErrNotFound
	}
	repo.db.stamp(&submission.BaseModel)
	cp := *submission
	cp.Assignment = nil
	repo.db.submissions[submission.ID] = &cp
	return nil
}

func (repo *SubmissionRepository) ListByAssignment(_ context.Context, assignmentID uint) ([]model.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.Submission{}
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	newestFirst(out, func(s model.Submission) (time.Time, uint) { return s.SubmittedAt, s.ID })
	return out, nil
}

func (repo *SubmissionRepository) ListByStudent(_ context.Context, studentID uint) ([]model.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.Submission{}
	for _, s := range repo.db.submissions {
		if s.StudentID == studentID {
			out = append(out, repo.withAssignment(s))
		}
	}
	newestFirst(out, func(s model.Submission) (time.Time, uint) { return s.SubmittedAt, s.ID })
	return out, nil
}
