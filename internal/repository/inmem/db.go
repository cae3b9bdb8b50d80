// Package inmemdb keeps every table in process memory. It backs the "memory"
// database driver and the service tests.
package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"sort"
	"sync"
	"time"
)

type DB struct {
	mutex sync.RWMutex
	pk    uint

	users         map[uint]*model.User
	quizzes       map[uint]*model.Quiz
	attempts      map[uint]*model.QuizAttempt
	assignments   map[uint]*model.Assignment
	submissions   map[uint]*model.Submission
	modules       map[uint]*model.LearningModule
	materials     map[uint]*model.ModuleMaterial
	liveClasses   map[uint]*model.LiveClass
	enrollments   map[uint]*model.Enrollment
	notifications map[string]*model.Notification

	now func() time.Time
}

func NewDB() *DB {
	return &DB{
		users:         make(map[uint]*model.User),
		quizzes:       make(map[uint]*model.Quiz),
		attempts:      make(map[uint]*model.QuizAttempt),
		assignments:   make(map[uint]*model.Assignment),
		submissions:   make(map[uint]*model.Submission),
		modules:       make(map[uint]*model.LearningModule),
		materials:     make(map[uint]*model.ModuleMaterial),
		liveClasses:   make(map[uint]*model.LiveClass),
		enrollments:   make(map[uint]*model.Enrollment),
		notifications: make(map[string]*model.Notification),
		now:           time.Now,
	}
}

// Stores bundles one repository per table over a shared DB.
type Stores struct {
	Users         *UserRepository
	Quizzes       *QuizRepository
	Attempts      *QuizAttemptRepository
	Assignments   *AssignmentRepository
	Submissions   *SubmissionRepository
	Modules       *ModuleRepository
	LiveClasses   *LiveClassRepository
	Enrollments   *EnrollmentRepository
	Notifications *NotificationRepository
}

func NewStores(db *DB) *Stores {
	return &Stores{
		Users:         &UserRepository{db: db},
		Quizzes:       &QuizRepository{db: db},
		Attempts:      &QuizAttemptRepository{db: db},
		Assignments:   &AssignmentRepository{db: db},
		Submissions:   &SubmissionRepository{db: db},
		Modules:       &ModuleRepository{db: db},
		LiveClasses:   &LiveClassRepository{db: db},
		Enrollments:   &EnrollmentRepository{db: db},
		Notifications: &NotificationRepository{db: db},
	}
}

// stamp assigns the next primary key when id is zero and sets timestamps.
// Callers hold the write lock.
func (db *DB) stamp(b *model.BaseModel) {
	now := db.now()
	if b.ID == 0 {
		db.pk++
		b.ID = db.pk
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

type content struct {
	teacherID  uint
	moduleID   *uint
	status     string
	subject    string
	gradeLevel string
}

func (c content) matches(f repository.ContentFilter) bool {
	if f.TeacherID != 0 && c.teacherID != f.TeacherID {
		return false
	}
	if f.ModuleID != 0 && (c.moduleID == nil || *c.moduleID != f.ModuleID) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, c.status) {
		return false
	}
	if f.Subject != "" && c.subject != f.Subject {
		return false
	}
	if f.GradeLevel != "" && c.gradeLevel != f.GradeLevel {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// page slices an already ordered result the way LIMIT/OFFSET would.
func page[T any](items []T, p, limit int) []T {
	if limit <= 0 {
		return items
	}
	if p < 1 {
		p = 1
	}
	start := (p - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func newestFirst[T any](items []T, key func(T) (time.Time, uint)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ii > ij
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
