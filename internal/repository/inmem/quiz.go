package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/repository"
	"classhub_backend/internal/util"
	"context"
	"time"

	"gorm.io/datatypes"
)

type QuizRepository struct {
	db *DB
}

func copyQuiz(q *model.Quiz) model.Quiz {
	cp := *q
	cp.Questions = append(cp.Questions[:0:0], q.Questions...)
	return cp
}

func (repo *QuizRepository) Create(_ context.Context, quiz *model.Quiz) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	quiz.ID = 0
	repo.db.stamp(&quiz.BaseModel)
	cp := copyQuiz(quiz)
	repo.db.quizzes[quiz.ID] = &cp
	return nil
}

func (repo *QuizRepository) FindByID(_ context.Context, id uint) (*model.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.quizzes[id]; ok {
		cp := copyQuiz(q)
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *QuizRepository) Update(_ context.Context, quiz *model.Quiz) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.quizzes[quiz.ID]; !ok {
		return util.ErrNotFound
	}
	repo.db.stamp(&quiz.BaseModel)
	cp := copyQuiz(quiz)
	repo.db.quizzes[quiz.ID] = &cp
	return nil
}

func (repo *QuizRepository) Delete(_ context.Context, id uint) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for aid, a := range repo.db.attempts {
		if a.QuizID == id {
			delete(repo.db.attempts, aid)
		}
	}
	delete(repo.db.quizzes, id)
	return nil
}

func (repo *QuizRepository) List(_ context.Context, f repository.ContentFilter) ([]model.Quiz, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.Quiz
	for _, q := range repo.db.quizzes {
		c := content{q.TeacherID, q.ModuleID, string(q.Status), q.Subject, q.GradeLevel}
		if c.matches(f) {
			out = append(out, copyQuiz(q))
		}
	}
	newestFirst(out, func(q model.Quiz) (time.Time, uint) { return q.CreatedAt, q.ID })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (repo *QuizRepository) UpdateStatus(_ context.Context, id uint, from, to model.QuizStatus, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q, ok := repo.db.quizzes[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	switch to {
	case model.QuizPublished:
		q.PublishedAt = timePtr(at)
	case model.QuizClosed:
		q.ClosedAt = timePtr(at)
	}
	q.UpdatedAt = at
	return true, nil
}

func (repo *QuizRepository) ListDue(_ context.Context, now time.Time) ([]model.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var out []model.Quiz
	for _, q := range repo.db.quizzes {
		if q.Status == model.QuizPublished && q.AutoCloseOnDue && q.DueDate != nil && !q.DueDate.After(now) {
			out = append(out, copyQuiz(q))
		}
	}
	return out, nil
}

type QuizAttemptRepository struct {
	db *DB
}

func copyAttempt(a *model.QuizAttempt) model.QuizAttempt {
	cp := *a
	sheet := make(model.AnswerSheet, len(a.Answers.Data()))
	for k, v := range a.Answers.Data() {
		sheet[k] = v
	}
	cp.Answers = datatypes.NewJSONType(sheet)
	return cp
}

// Start holds the write lock across decide and insert, which serializes
// concurrent starts for the same student.
func (repo *QuizAttemptRepository) Start(_ context.Context, quizID, studentID uint, decide repository.AttemptDecider) (*model.QuizAttempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var existing []model.QuizAttempt
	for _, a := range repo.db.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			existing = append(existing, copyAttempt(a))
		}
	}
	newestFirst(existing, func(a model.QuizAttempt) (time.Time, uint) { return time.Time{}, a.ID })

	attempt, err := decide(existing)
	if err != nil {
		return attempt, err
	}
	attempt.ID = 0
	repo.db.stamp(&attempt.BaseModel)
	cp := copyAttempt(attempt)
	repo.db.attempts[attempt.ID] = &cp
	return attempt, nil
}

func (repo *QuizAttemptRepository) FindByID(_ context.Context, id uint) (*model.QuizAttempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.attempts[id]; ok {
		cp := copyAttempt(a)
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *QuizAttemptRepository) Complete(_ context.Context, attempt *model.QuizAttempt) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	current, ok := repo.db.attempts[attempt.ID]
	if !ok || current.Status != model.AttemptInProgress {
		return false, nil
	}
	repo.db.stamp(&attempt.BaseModel)
	cp := copyAttempt(attempt)
	repo.db.attempts[attempt.ID] = &cp
	return true, nil
}

func (repo *QuizAttemptRepository) Abandon(_ context.Context, id uint, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.attempts[id]
	if !ok || a.Status != model.AttemptInProgress {
		return false, nil
	}
	a.Status = model.AttemptAbandoned
	a.CompletedAt = timePtr(at)
	a.UpdatedAt = at
	return true, nil
}

func (repo *QuizAttemptRepository) ListByStudent(_ context.Context, studentID, quizID uint) ([]model.QuizAttempt, error) {
	return repo.list(func(a *model.QuizAttempt) bool {
		return a.StudentID == studentID && (quizID == 0 || a.QuizID == quizID)
	}), nil
}

func (repo *QuizAttemptRepository) ListByQuiz(_ context.Context, quizID uint) ([]model.QuizAttempt, error) {
	return repo.list(func(a *model.QuizAttempt) bool { return a.QuizID == quizID }), nil
}

func (repo *QuizAttemptRepository) list(keep func(*model.QuizAttempt) bool) []model.QuizAttempt {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.QuizAttempt{}
	for _, a := range repo.db.attempts {
		if keep(a) {
			out = append(out, copyAttempt(a))
		}
	}
	newestFirst(out, func(a model.QuizAttempt) (time.Time, uint) { return time.Time{}, a.ID })
	return out
}
