package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"fmt"
	"time"
)

type EnrollmentService struct {
	Enrollments EnrollmentStore
	Modules     ModuleStore
	Classes     LiveClassStore
	Now         Clock
}

func NewEnrollmentService(enrollments EnrollmentStore, modules ModuleStore, classes LiveClassStore) *EnrollmentService {
	return &EnrollmentService{
		Enrollments: enrollments,
		Modules:     modules,
		Classes:     classes,
		Now:         time.Now,
	}
}

func (s *EnrollmentService) Enroll(ctx context.Context, p model.Principal, kind model.EnrollmentTarget, targetID uint) (*model.Enrollment, error) {
	if err := requireStudent(p); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, util.Validationf("unknown enrollment target %q", kind)
	}
	if targetID == 0 {
		return nil, util.Validationf("targetId is required")
	}
	if err := s.ensureOpen(ctx, kind, targetID); err != nil {
		return nil, err
	}

	e := &model.Enrollment{
		StudentID:  p.UserID,
		TargetType: kind,
		TargetID:   targetID,
		Progress:   0,
		Status:     model.EnrollmentActive,
		EnrolledAt: s.Now(),
	}
	if err := s.Enrollments.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ensureOpen checks the target accepts enrollments. Courses live outside this
// service and are always open.
func (s *EnrollmentService) ensureOpen(ctx context.Context, kind model.EnrollmentTarget, id uint) error {
	switch kind {
	case model.TargetModule:
		m, err := s.Modules.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if m.Status != model.ModulePublished {
			return fmt.Errorf("%w: module is not open for enrollment", util.ErrInvalidState)
		}
	case model.TargetLiveClass:
		class, err := s.Classes.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if class.Status != model.LiveClassScheduled && class.Status != model.LiveClassLive {
			return fmt.Errorf("%w: live class is not open for enrollment", util.ErrInvalidState)
		}
	}
	return nil
}

// UpdateProgress clamps progress to 0..100. Reaching 100 completes the
// enrollment; completedAt is only ever set once.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, p model.Principal, id uint, progress int) (*model.Enrollment, error) {
	e, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if e.Status == model.EnrollmentDropped {
		return nil, fmt.Errorf("%w: enrollment was dropped", util.ErrInvalidState)
	}

	progress = clamp(progress, 0, 100)
	if err := s.Enrollments.UpdateProgress(ctx, e.ID, progress); err != nil {
		return nil, err
	}
	if progress == 100 {
		if _, err := s.Enrollments.MarkCompleted(ctx, e.ID, s.Now()); err != nil {
			return nil, err
		}
	}
	return s.Enrollments.FindByID(ctx, e.ID)
}

func (s *EnrollmentService) Drop(ctx context.Context, p model.Principal, id uint) (*model.Enrollment, error) {
	e, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.Enrollments.Drop(ctx, e.ID, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: enrollment already dropped", util.ErrInvalidState)
	}
	return s.Enrollments.FindByID(ctx, e.ID)
}

func (s *EnrollmentService) MyEnrollments(ctx context.Context, p model.Principal) ([]model.Enrollment, error) {
	return s.Enrollments.ListByStudent(ctx, p.UserID)
}

// TargetEnrollments lists who is enrolled in a module or live class the caller owns.
func (s *EnrollmentService) TargetEnrollments(ctx context.Context, p model.Principal, kind model.EnrollmentTarget, id uint) ([]model.Enrollment, error) {
	if !kind.Valid() {
		return nil, util.Validationf("unknown enrollment target %q", kind)
	}
	switch kind {
	case model.TargetModule:
		m, err := s.Modules.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(p, m.TeacherID, "module"); err != nil {
			return nil, err
		}
	case model.TargetLiveClass:
		class, err := s.Classes.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOwner(p, class.TeacherID, "live class"); err != nil {
			return nil, err
		}
	default:
		if err := requireAuthor(p); err != nil {
			return nil, err
		}
	}
	return s.Enrollments.ListByTarget(ctx, kind, id)
}

func (s *EnrollmentService) owned(ctx context.Context, p model.Principal, id uint) (*model.Enrollment, error) {
	e, err := s.Enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.StudentID != p.UserID {
		return nil, fmt.Errorf("%w: not your enrollment", util.ErrForbidden)
	}
	return e, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
