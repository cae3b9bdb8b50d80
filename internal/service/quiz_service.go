package service

import (
	"bytes"
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// QuizSpec is the author-supplied content of a quiz, used for create, update and import.
type QuizSpec struct {
	Title              string               `json:"title" yaml:"title" validate:"required,notblank,max=255"`
	Description        string               `json:"description" yaml:"description"`
	Subject            string               `json:"subject" yaml:"subject" validate:"required,notblank,max=100"`
	GradeLevel         string               `json:"gradeLevel" yaml:"gradeLevel" validate:"max=50"`
	ModuleID           *uint                `json:"moduleId" yaml:"moduleId"`
	Questions          []model.QuizQuestion `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
	TimeLimit          *int                 `json:"timeLimit" yaml:"timeLimit" validate:"omitempty,min=1"`
	PassingScore       *int                 `json:"passingScore" yaml:"passingScore" validate:"omitempty,min=0,max=100"`
	TotalPoints        *int                 `json:"totalPoints" yaml:"totalPoints" validate:"omitempty,min=0"`
	AllowRetake        bool                 `json:"allowRetake" yaml:"allowRetake"`
	ShowCorrectAnswers bool                 `json:"showCorrectAnswers" yaml:"showCorrectAnswers"`
	AutoCloseOnDue     bool                 `json:"autoCloseOnDue" yaml:"autoCloseOnDue"`
	DueDate            *time.Time           `json:"dueDate" yaml:"dueDate"`
}

func (s QuizSpec) validate() error {
	if err := util.Validate(s); err != nil {
		return err
	}
	for i, q := range s.Questions {
		if q.CorrectAnswer == nil {
			return util.Validationf("question %d: correctAnswer is required", i)
		}
		if *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
			return util.Validationf("question %d: correctAnswer %d is out of range", i, *q.CorrectAnswer)
		}
	}
	return nil
}

func (s QuizSpec) apply(quiz *model.Quiz) {
	quiz.Title = strings.TrimSpace(s.Title)
	quiz.Description = s.Description
	quiz.Subject = strings.TrimSpace(s.Subject)
	quiz.GradeLevel = s.GradeLevel
	quiz.ModuleID = s.ModuleID
	quiz.Questions = append([]model.QuizQuestion(nil), s.Questions...)
	quiz.TimeLimit = s.TimeLimit
	quiz.PassingScore = 60
	if s.PassingScore != nil {
		quiz.PassingScore = *s.PassingScore
	}
	quiz.TotalPoints = len(s.Questions)
	if s.TotalPoints != nil {
		quiz.TotalPoints = *s.TotalPoints
	}
	quiz.AllowRetake = s.AllowRetake
	quiz.ShowCorrectAnswers = s.ShowCorrectAnswers
	quiz.AutoCloseOnDue = s.AutoCloseOnDue
	quiz.DueDate = s.DueDate
}

type QuizService struct {
	Quizzes     QuizStore
	Enrollments EnrollmentStore
	Events      EventSink
	Now         Clock
}

func NewQuizService(quizzes QuizStore, enrollments EnrollmentStore, events EventSink) *QuizService {
	return &QuizService{
		Quizzes:     quizzes,
		Enrollments: enrollments,
		Events:      events,
		Now:         time.Now,
	}
}

func (s *QuizService) Create(ctx context.Context, p model.Principal, spec QuizSpec) (*model.Quiz, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{TeacherID: p.UserID, Status: model.QuizDraft}
	spec.apply(quiz)
	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Import decodes a YAML quiz document and creates it as a draft.
func (s *QuizService) Import(ctx context.Context, p model.Principal, r io.Reader) (*model.Quiz, error) {
	spec, err := DecodeQuizYAML(r)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, p, *spec)
}

// DecodeQuizYAML reads one quiz document. Unknown keys are rejected.
func DecodeQuizYAML(r io.Reader) (*QuizSpec, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var spec QuizSpec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, util.Validationf("empty quiz document")
		}
		return nil, util.Validationf("invalid quiz document: %v", err)
	}
	return &spec, nil
}

func (s *QuizService) Update(ctx context.Context, p model.Principal, id uint, spec QuizSpec) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, quiz.TeacherID, "quiz"); err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizDraft {
		return nil, invalidTransition("quiz", string(quiz.Status), "edit")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	spec.apply(quiz)
	if err := s.Quizzes.Update(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) Publish(ctx context.Context, p model.Principal, id uint) (*model.Quiz, error) {
	quiz, err := s.transition(ctx, p, id, model.QuizDraft, model.QuizPublished, "publish")
	if err != nil {
		return nil, err
	}

	if quiz.ModuleID != nil {
		students, err := s.Enrollments.StudentIDs(ctx, model.TargetModule, *quiz.ModuleID)
		if err != nil {
			logger.Log.Warn("load quiz audience failed", zap.Uint("quizId", quiz.ID), zap.Error(err))
		}
		s.Events.Emit(ctx, Event{
			Type:       model.NotifyQuizPublished,
			Recipients: students,
			Title:      "New quiz available",
			Message:    fmt.Sprintf("%q is now open.", quiz.Title),
			Data:       map[string]interface{}{"quizId": quiz.ID},
		})
	}
	return quiz, nil
}

// Close stops new attempts. Attempts already in progress may still be submitted.
func (s *QuizService) Close(ctx context.Context, p model.Principal, id uint) (*model.Quiz, error) {
	return s.transition(ctx, p, id, model.QuizPublished, model.QuizClosed, "close")
}

func (s *QuizService) transition(ctx context.Context, p model.Principal, id uint, from, to model.QuizStatus, action string) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, quiz.TeacherID, "quiz"); err != nil {
		return nil, err
	}
	if quiz.Status != from {
		return nil, invalidTransition("quiz", string(quiz.Status), action)
	}

	ok, err := s.Quizzes.UpdateStatus(ctx, id, from, to, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace("quiz")
	}
	return s.Quizzes.FindByID(ctx, id)
}

func (s *QuizService) Delete(ctx context.Context, p model.Principal, id uint) error {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(p, quiz.TeacherID, "quiz"); err != nil {
		return err
	}
	return s.Quizzes.Delete(ctx, id)
}

// Get hides drafts from learners and strips the answer key when the quiz does not reveal it.
func (s *QuizService) Get(ctx context.Context, p model.Principal, id uint) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Learner() && quiz.Status == model.QuizDraft {
		return nil, util.ErrNotFound
	}
	view := s.view(p, *quiz)
	return &view, nil
}

func (s *QuizService) List(ctx context.Context, p model.Principal, q ContentQuery) ([]model.Quiz, int64, error) {
	quizzes, total, err := s.Quizzes.List(ctx, q.filter(p, string(model.QuizPublished)))
	if err != nil {
		return nil, 0, err
	}
	for i := range quizzes {
		quizzes[i] = s.view(p, quizzes[i])
	}
	return quizzes, total, nil
}

func (s *QuizService) view(p model.Principal, quiz model.Quiz) model.Quiz {
	if p.Learner() && !quiz.ShowCorrectAnswers {
		return quiz.Redacted()
	}
	return quiz
}

// CloseDue closes published quizzes whose due date passed and that opted into auto-close.
func (s *QuizService) CloseDue(ctx context.Context) (int, error) {
	now := s.Now()
	due, err := s.Quizzes.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, quiz := range due {
		ok, err := s.Quizzes.UpdateStatus(ctx, quiz.ID, model.QuizPublished, model.QuizClosed, now)
		if err != nil {
			logger.Log.Error("auto-close quiz failed", zap.Uint("quizId", quiz.ID), zap.Error(err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}
