package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type QuizAttemptService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Now      Clock
}

func NewQuizAttemptService(quizzes QuizStore, attempts AttemptStore) *QuizAttemptService {
	return &QuizAttemptService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Now:      time.Now,
	}
}

// AttemptResult is the graded attempt plus, when the quiz reveals answers,
// per-question correctness.
type AttemptResult struct {
	Attempt *model.QuizAttempt `json:"attempt"`
	Results []QuestionResult   `json:"results,omitempty"`
}

// StartAttempt opens an attempt. When one is already in progress it is returned
// together with ErrConflict and nothing new is created.
func (s *QuizAttemptService) StartAttempt(ctx context.Context, p model.Principal, quizID uint) (*model.QuizAttempt, error) {
	if err := requireStudent(p); err != nil {
		return nil, err
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizPublished {
		return nil, fmt.Errorf("%w: quiz is not open for attempts", util.ErrInvalidState)
	}

	now := s.Now()
	attempt, err := s.Attempts.Start(ctx, quiz.ID, p.UserID, func(existing []model.QuizAttempt) (*model.QuizAttempt, error) {
		for i := range existing {
			if existing[i].Status == model.AttemptInProgress {
				current := existing[i]
				return &current, fmt.Errorf("%w: an attempt is already in progress", util.ErrConflict)
			}
		}
		if !quiz.AllowRetake {
			for _, a := range existing {
				if a.Status == model.AttemptCompleted {
					return nil, fmt.Errorf("%w: retake not allowed", util.ErrInvalidState)
				}
			}
		}
		return &model.QuizAttempt{
			QuizID:         quiz.ID,
			StudentID:      p.UserID,
			Answers:        datatypes.NewJSONType(model.AnswerSheet{}),
			TotalQuestions: len(quiz.Questions),
			StartedAt:      now,
			Status:         model.AttemptInProgress,
		}, nil
	})
	if err != nil {
		return attempt, err
	}

	monitoring.QuizAttempts.WithLabelValues(string(model.AttemptInProgress)).Inc()
	logger.Log.Info("quiz attempt started",
		zap.Uint("quizId", quiz.ID),
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("studentId", p.UserID))
	return attempt, nil
}

func (s *QuizAttemptService) SubmitAttempt(ctx context.Context, p model.Principal, attemptID uint, answers model.AnswerSheet) (*AttemptResult, error) {
	attempt, err := s.ownAttempt(ctx, p, attemptID)
	if err != nil {
		return nil, err
	}
	if err := attemptOpen(attempt); err != nil {
		return nil, err
	}

	quiz, err := s.Quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	score, err := ScoreAnswers(quiz.Questions, answers, quiz.PassingScore)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	spent := int(now.Sub(attempt.StartedAt) / time.Second)
	if spent < 0 {
		spent = 0
	}
	if answers == nil {
		answers = model.AnswerSheet{}
	}
	points := score.Score

	attempt.Answers = datatypes.NewJSONType(answers)
	attempt.TotalQuestions = score.Total
	attempt.CorrectAnswers = score.Correct
	attempt.Score = &points
	attempt.Passed = score.Passed
	attempt.TimeSpent = spent
	attempt.CompletedAt = &now
	attempt.Status = model.AttemptCompleted

	ok, err := s.Attempts.Complete(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: attempt already submitted", util.ErrInvalidState)
	}

	monitoring.QuizAttempts.WithLabelValues(string(model.AttemptCompleted)).Inc()
	logger.Log.Info("quiz attempt submitted",
		zap.Uint("quizId", quiz.ID),
		zap.Uint("attemptId", attempt.ID),
		zap.Int("score", points))

	result := &AttemptResult{Attempt: attempt}
	if quiz.ShowCorrectAnswers {
		result.Results = score.Results
	}
	return result, nil
}

// AbandonAttempt ends an in-progress attempt without grading it.
func (s *QuizAttemptService) AbandonAttempt(ctx context.Context, p model.Principal, attemptID uint) (*model.QuizAttempt, error) {
	attempt, err := s.ownAttempt(ctx, p, attemptID)
	if err != nil {
		return nil, err
	}
	if err := attemptOpen(attempt); err != nil {
		return nil, err
	}

	ok, err := s.Attempts.Abandon(ctx, attempt.ID, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace("attempt")
	}
	monitoring.QuizAttempts.WithLabelValues(string(model.AttemptAbandoned)).Inc()
	return s.Attempts.FindByID(ctx, attempt.ID)
}

func (s *QuizAttemptService) MyAttempts(ctx context.Context, p model.Principal, quizID uint) ([]model.QuizAttempt, error) {
	return s.Attempts.ListByStudent(ctx, p.UserID, quizID)
}

func (s *QuizAttemptService) QuizAttempts(ctx context.Context, p model.Principal, quizID uint) ([]model.QuizAttempt, error) {
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, quiz.TeacherID, "quiz"); err != nil {
		return nil, err
	}
	return s.Attempts.ListByQuiz(ctx, quizID)
}

func (s *QuizAttemptService) ownAttempt(ctx context.Context, p model.Principal, id uint) (*model.QuizAttempt, error) {
	attempt, err := s.Attempts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != p.UserID {
		return nil, fmt.Errorf("%w: not your attempt", util.ErrForbidden)
	}
	return attempt, nil
}

func attemptOpen(a *model.QuizAttempt) error {
	switch a.Status {
	case model.AttemptInProgress:
		return nil
	case model.AttemptAbandoned:
		return fmt.Errorf("%w: attempt was abandoned", util.ErrInvalidState)
	default:
		return fmt.Errorf("%w: attempt already submitted", util.ErrInvalidState)
	}
}
