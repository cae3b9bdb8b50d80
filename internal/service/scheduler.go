package service

import (
	"classhub_backend/pkg/logger"
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler periodically closes overdue content and finishes live classes
// that were never ended.
type Scheduler struct {
	Quizzes     *QuizService
	Assignments *AssignmentService
	Classes     *LiveClassService
	Interval    time.Duration
}

func NewScheduler(quizzes *QuizService, assignments *AssignmentService, classes *LiveClassService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{Quizzes: quizzes, Assignments: assignments, Classes: classes, Interval: interval}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one pass. Each job is independent; a failure is logged and the rest still run.
func (s *Scheduler) Tick(ctx context.Context) {
	jobs := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"close due quizzes", s.Quizzes.CloseDue},
		{"close due assignments", s.Assignments.CloseDue},
		{"complete overrun live classes", s.Classes.CompleteOverrun},
	}
	for _, job := range jobs {
		n, err := job.run(ctx)
		if err != nil {
			logger.Log.Error("scheduled job failed", zap.String("job", job.name), zap.Error(err))
			continue
		}
		if n > 0 {
			logger.Log.Info("scheduled job done", zap.String("job", job.name), zap.Int("affected", n))
		}
	}
}
