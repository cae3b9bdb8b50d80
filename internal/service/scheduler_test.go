package service

import (
	"classhub_backend/internal/model"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Tick(t *testing.T) {
	ctx := context.Background()
	st := newStores()
	c := newClock()
	sink := &recordingSink{}

	quizzes := NewQuizService(st.Quizzes, st.Enrollments, sink)
	quizzes.Now = c.Now
	assignments := NewAssignmentService(st.Assignments, st.Submissions, st.Enrollments, newMemObjectStore(), sink)
	assignments.Now = c.Now
	classes := NewLiveClassService(st.LiveClasses, st.Enrollments, nil, sink, 10*time.Minute)
	classes.Now = c.Now

	due := baseTime.Add(30 * time.Minute)

	qs := sampleQuizSpec()
	qs.DueDate, qs.AutoCloseOnDue = &due, true
	quiz, err := quizzes.Create(ctx, teacher, qs)
	require.NoError(t, err)
	_, err = quizzes.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	as := AssignmentSpec{Title: "Lab report", Subject: "chemistry", MaxPoints: decimal.NewFromInt(10), DueDate: &due, AutoCloseOnDue: true}
	assignment, err := assignments.Create(ctx, teacher, as)
	require.NoError(t, err)
	_, err = assignments.Publish(ctx, teacher, assignment.ID)
	require.NoError(t, err)

	class, err := classes.Schedule(ctx, teacher, LiveClassSpec{Title: "Lab", ScheduledAt: baseTime, DurationMinutes: 30})
	require.NoError(t, err)
	_, err = classes.Start(ctx, teacher, class.ID)
	require.NoError(t, err)

	sched := NewScheduler(quizzes, assignments, classes, 0)
	assert.Equal(t, time.Minute, sched.Interval)

	sched.Tick(ctx)
	q, _ := st.Quizzes.FindByID(ctx, quiz.ID)
	assert.Equal(t, model.QuizPublished, q.Status, "not due yet")

	c.Advance(45 * time.Minute)
	sched.Tick(ctx)

	q, _ = st.Quizzes.FindByID(ctx, quiz.ID)
	assert.Equal(t, model.QuizClosed, q.Status)
	a, _ := st.Assignments.FindByID(ctx, assignment.ID)
	assert.Equal(t, model.AssignmentClosed, a.Status)
	l, _ := st.LiveClasses.FindByID(ctx, class.ID)
	assert.Equal(t, model.LiveClassCompleted, l.Status)
}

func TestScheduler_RunStopsWithContext(t *testing.T) {
	st := newStores()
	sched := NewScheduler(
		NewQuizService(st.Quizzes, st.Enrollments, &recordingSink{}),
		NewAssignmentService(st.Assignments, st.Submissions, st.Enrollments, newMemObjectStore(), &recordingSink{}),
		NewLiveClassService(st.LiveClasses, st.Enrollments, nil, &recordingSink{}, 0),
		time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
