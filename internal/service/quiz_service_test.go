package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quizFixture struct {
	svc    *QuizService
	stores *quizStores
	sink   *recordingSink
	clock  *clock
}

type quizStores struct {
	quizzes     QuizStore
	enrollments EnrollmentStore
}

func newQuizFixture() *quizFixture {
	st := newStores()
	sink := &recordingSink{}
	c := newClock()
	svc := NewQuizService(st.Quizzes, st.Enrollments, sink)
	svc.Now = c.Now
	return &quizFixture{
		svc:    svc,
		stores: &quizStores{quizzes: st.Quizzes, enrollments: st.Enrollments},
		sink:   sink,
		clock:  c,
	}
}

func TestQuizService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuizSpec)
	}{
		{"blank title", func(s *QuizSpec) { s.Title = "   " }},
		{"missing subject", func(s *QuizSpec) { s.Subject = "" }},
		{"no questions", func(s *QuizSpec) { s.Questions = nil }},
		{"single option", func(s *QuizSpec) { s.Questions[0].Options = []string{"only"} }},
		{"missing answer key", func(s *QuizSpec) { s.Questions[1].CorrectAnswer = nil }},
		{"answer key out of range", func(s *QuizSpec) { s.Questions[2].CorrectAnswer = intPtr(3) }},
		{"negative answer key", func(s *QuizSpec) { s.Questions[0].CorrectAnswer = intPtr(-1) }},
		{"passing score over 100", func(s *QuizSpec) { s.PassingScore = intPtr(101) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuizFixture()
			spec := sampleQuizSpec()
			tt.mutate(&spec)

			_, err := f.svc.Create(context.Background(), teacher, spec)
			assert.ErrorIs(t, err, util.ErrValidation)
		})
	}
}

func TestQuizService_CreateDefaults(t *testing.T) {
	f := newQuizFixture()
	spec := sampleQuizSpec()
	spec.Title = "  Fractions  "

	quiz, err := f.svc.Create(context.Background(), teacher, spec)
	require.NoError(t, err)

	assert.NotZero(t, quiz.ID)
	assert.Equal(t, "Fractions", quiz.Title)
	assert.Equal(t, model.QuizDraft, quiz.Status)
	assert.Equal(t, teacher.UserID, quiz.TeacherID)
	assert.Equal(t, 60, quiz.PassingScore)
	assert.Equal(t, 3, quiz.TotalPoints)
	assert.Len(t, quiz.Questions, 3)
}

func TestQuizService_CreateRequiresAuthor(t *testing.T) {
	f := newQuizFixture()
	for _, p := range []model.Principal{student, parent} {
		_, err := f.svc.Create(context.Background(), p, sampleQuizSpec())
		assert.ErrorIs(t, err, util.ErrForbidden)
	}
	_, err := f.svc.Create(context.Background(), admin, sampleQuizSpec())
	assert.NoError(t, err)
}

func TestQuizService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	quiz, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, teacher, quiz.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState, "a draft cannot be closed")

	_, err = f.svc.Publish(ctx, otherTeacher, quiz.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	published, err := f.svc.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.True(t, published.PublishedAt.Equal(baseTime))

	_, err = f.svc.Publish(ctx, teacher, quiz.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState, "publishing twice")

	_, err = f.svc.Update(ctx, teacher, quiz.ID, sampleQuizSpec())
	assert.ErrorIs(t, err, util.ErrInvalidState, "published quizzes are frozen")

	closed, err := f.svc.Close(ctx, admin, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuizClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)
}

func TestQuizService_PublishNotifiesModuleStudents(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	for _, id := range []uint{student.UserID, otherStudent.UserID} {
		require.NoError(t, f.stores.enrollments.Create(ctx, &model.Enrollment{
			StudentID: id, TargetType: model.TargetModule, TargetID: 7, Status: model.EnrollmentActive,
		}))
	}

	spec := sampleQuizSpec()
	spec.ModuleID = uintPtr(7)
	quiz, err := f.svc.Create(ctx, teacher, spec)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.NotifyQuizPublished, events[0].Type)
	assert.ElementsMatch(t, []uint{student.UserID, otherStudent.UserID}, events[0].Recipients)
	assert.Equal(t, quiz.ID, events[0].Data["quizId"])
}

func TestQuizService_PublishWithoutModuleIsSilent(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	quiz, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	assert.Empty(t, f.sink.Events())
}

func TestQuizService_LearnerView(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	quiz, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, student, quiz.ID)
	assert.ErrorIs(t, err, util.ErrNotFound, "drafts are invisible to learners")

	_, err = f.svc.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	view, err := f.svc.Get(ctx, student, quiz.ID)
	require.NoError(t, err)
	for _, q := range view.Questions {
		assert.Nil(t, q.CorrectAnswer)
		assert.NotEmpty(t, q.Options)
	}

	own, err := f.svc.Get(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	assert.NotNil(t, own.Questions[0].CorrectAnswer, "owners keep the answer key")

	stored, err := f.stores.quizzes.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Questions[0].CorrectAnswer, "redaction must not touch the stored quiz")
}

func TestQuizService_ListFiltersForLearners(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	_, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)
	live, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, teacher, live.ID)
	require.NoError(t, err)

	list, total, err := f.svc.List(ctx, student, ContentQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, live.ID, list[0].ID)

	_, total, err = f.svc.List(ctx, teacher, ContentQuery{Page: 1, Limit: 10, Status: string(model.QuizDraft)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestQuizService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	quiz, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, otherTeacher, quiz.ID), util.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, teacher, quiz.ID))

	_, err = f.svc.Get(ctx, teacher, quiz.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestQuizService_CloseDue(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	due := baseTime.Add(time.Hour)
	mk := func(autoClose bool) uint {
		spec := sampleQuizSpec()
		spec.DueDate = &due
		spec.AutoCloseOnDue = autoClose
		quiz, err := f.svc.Create(ctx, teacher, spec)
		require.NoError(t, err)
		_, err = f.svc.Publish(ctx, teacher, quiz.ID)
		require.NoError(t, err)
		return quiz.ID
	}
	auto := mk(true)
	manual := mk(false)

	n, err := f.svc.CloseDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is due yet")

	f.clock.Advance(2 * time.Hour)
	n, err = f.svc.CloseDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, _ := f.stores.quizzes.FindByID(ctx, auto)
	assert.Equal(t, model.QuizClosed, q.Status)
	q, _ = f.stores.quizzes.FindByID(ctx, manual)
	assert.Equal(t, model.QuizPublished, q.Status)
}

const quizYAML = `
title: Fractions
subject: math
questions:
  - prompt: 1/2 + 1/4
    options: ["1/6", "3/4", "2/6"]
    correctAnswer: 1
  - prompt: 2/4 simplified
    options: ["1/2", "2/2"]
    correctAnswer: 0
  - prompt: 3/3
    options: ["0", "1/3", "1"]
    correctAnswer: 2
`

func TestQuizService_ImportMatchesCreate(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture()

	imported, err := f.svc.Import(ctx, teacher, strings.NewReader(quizYAML))
	require.NoError(t, err)
	created, err := f.svc.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)

	assert.Equal(t, created.Title, imported.Title)
	assert.Equal(t, created.Subject, imported.Subject)
	assert.Equal(t, created.PassingScore, imported.PassingScore)
	assert.Equal(t, created.TotalPoints, imported.TotalPoints)
	assert.Equal(t, created.Questions, imported.Questions)
	assert.Equal(t, model.QuizDraft, imported.Status)
}

func TestDecodeQuizYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"unknown key", quizYAML + "shuffle: true\n"},
		{"not a mapping", "- just\n- a list\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeQuizYAML(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, util.ErrValidation)
		})
	}
}

func TestQuizService_ImportValidates(t *testing.T) {
	f := newQuizFixture()
	doc := strings.Replace(quizYAML, "correctAnswer: 2", "correctAnswer: 9", 1)

	_, err := f.svc.Import(context.Background(), teacher, strings.NewReader(doc))
	assert.ErrorIs(t, err, util.ErrValidation)
}
