package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/util"
	"fmt"
)

// ContentQuery is what callers may ask of a content listing.
type ContentQuery struct {
	Subject    string
	GradeLevel string
	Status     string
	ModuleID   uint
	Mine       bool
	Page       int
	Limit      int
}

// filter applies role visibility: learners only ever see the given statuses,
// whatever they ask for.
func (q ContentQuery) filter(p model.Principal, learnerStatuses ...string) repository.ContentFilter {
	f := repository.ContentFilter{
		ModuleID:   q.ModuleID,
		Subject:    q.Subject,
		GradeLevel: q.GradeLevel,
		Page:       q.Page,
		Limit:      q.Limit,
	}
	if p.Learner() {
		f.Statuses = learnerStatuses
		return f
	}
	if q.Status != "" {
		f.Statuses = []string{q.Status}
	}
	if q.Mine {
		f.TeacherID = p.UserID
	}
	return f
}

func requireAuthor(p model.Principal) error {
	if p.Role != model.Teacher && !p.IsAdmin() {
		return fmt.Errorf("%w: only teachers can manage content", util.ErrForbidden)
	}
	return nil
}

func requireStudent(p model.Principal) error {
	if p.Role != model.Student {
		return fmt.Errorf("%w: only students can do this", util.ErrForbidden)
	}
	return nil
}

func requireOwner(p model.Principal, ownerID uint, what string) error {
	if !p.Owns(ownerID) {
		return fmt.Errorf("%w: you do not own this %s", util.ErrForbidden, what)
	}
	return nil
}

func invalidTransition(what, current, action string) error {
	return fmt.Errorf("%w: cannot %s a %s %s", util.ErrInvalidState, action, current, what)
}

// lostRace is returned when a conditional update matched no row because another
// request moved the entity first.
func lostRace(what string) error {
	return fmt.Errorf("%w: %s was modified concurrently", util.ErrInvalidState, what)
}
