package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptFixture struct {
	quizzes  *QuizService
	attempts *QuizAttemptService
	clock    *clock
}

func newAttemptFixture() *attemptFixture {
	st := newStores()
	c := newClock()
	quizzes := NewQuizService(st.Quizzes, st.Enrollments, &recordingSink{})
	quizzes.Now = c.Now
	attempts := NewQuizAttemptService(st.Quizzes, st.Attempts)
	attempts.Now = c.Now
	return &attemptFixture{quizzes: quizzes, attempts: attempts, clock: c}
}

func (f *attemptFixture) publishedQuiz(t *testing.T, mutate func(*QuizSpec)) *model.Quiz {
	t.Helper()
	spec := sampleQuizSpec()
	if mutate != nil {
		mutate(&spec)
	}
	quiz, err := f.quizzes.Create(context.Background(), teacher, spec)
	require.NoError(t, err)
	quiz, err = f.quizzes.Publish(context.Background(), teacher, quiz.ID)
	require.NoError(t, err)
	return quiz
}

func TestStartAttempt_RequiresPublishedQuiz(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()

	quiz, err := f.quizzes.Create(ctx, teacher, sampleQuizSpec())
	require.NoError(t, err)

	_, err = f.attempts.StartAttempt(ctx, student, quiz.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = f.quizzes.Publish(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	_, err = f.quizzes.Close(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	_, err = f.attempts.StartAttempt(ctx, student, quiz.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = f.attempts.StartAttempt(ctx, student, 999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestStartAttempt_OnlyStudents(t *testing.T) {
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	for _, p := range []model.Principal{teacher, parent, admin} {
		_, err := f.attempts.StartAttempt(context.Background(), p, quiz.ID)
		assert.ErrorIs(t, err, util.ErrForbidden, string(p.Role))
	}
}

func TestStartAttempt_ReturnsAttemptInProgress(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	first, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, first.Status)
	assert.Equal(t, 3, first.TotalQuestions)
	assert.True(t, first.StartedAt.Equal(baseTime))

	again, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	assert.ErrorIs(t, err, util.ErrConflict)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)

	mine, err := f.attempts.MyAttempts(ctx, student, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestStartAttempt_ConcurrentStartsCreateOne(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	var wg sync.WaitGroup
	ids := make(chan uint, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, _ := f.attempts.StartAttempt(ctx, student, quiz.ID)
			if a != nil {
				ids <- a.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func TestSubmitAttempt_Scores(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	attempt, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)

	f.clock.Advance(90 * time.Second)
	res, err := f.attempts.SubmitAttempt(ctx, student, attempt.ID, model.AnswerSheet{0: 1, 1: 0, 2: 0})
	require.NoError(t, err)

	got := res.Attempt
	assert.Equal(t, model.AttemptCompleted, got.Status)
	require.NotNil(t, got.Score)
	assert.Equal(t, 67, *got.Score)
	assert.Equal(t, 2, got.CorrectAnswers)
	assert.True(t, got.Passed)
	assert.Equal(t, 90, got.TimeSpent)
	require.NotNil(t, got.CompletedAt)
	assert.Nil(t, res.Results, "answers stay hidden unless the quiz reveals them")

	_, err = f.attempts.SubmitAttempt(ctx, student, attempt.ID, model.AnswerSheet{0: 1, 1: 0, 2: 2})
	assert.ErrorIs(t, err, util.ErrInvalidState, "second submit")

	all, err := f.attempts.QuizAttempts(ctx, teacher, quiz.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 67, *all[0].Score)
}

func TestSubmitAttempt_RevealsResultsWhenAllowed(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, func(s *QuizSpec) { s.ShowCorrectAnswers = true })

	attempt, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)
	res, err := f.attempts.SubmitAttempt(ctx, student, attempt.ID, model.AnswerSheet{0: 1})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Correct)
	assert.Nil(t, res.Results[1].Selected)
}

func TestSubmitAttempt_AfterQuizClosed(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	attempt, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)
	_, err = f.quizzes.Close(ctx, teacher, quiz.ID)
	require.NoError(t, err)

	res, err := f.attempts.SubmitAttempt(ctx, student, attempt.ID, model.AnswerSheet{0: 1, 1: 0, 2: 2})
	require.NoError(t, err)
	assert.Equal(t, 100, *res.Attempt.Score)
}

func TestSubmitAttempt_OwnAttemptOnly(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	attempt, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)

	_, err = f.attempts.SubmitAttempt(ctx, otherStudent, attempt.ID, model.AnswerSheet{})
	assert.ErrorIs(t, err, util.ErrForbidden)
	_, err = f.attempts.AbandonAttempt(ctx, otherStudent, attempt.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)
	_, err = f.attempts.QuizAttempts(ctx, otherTeacher, quiz.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)
}

func TestRetake(t *testing.T) {
	tests := []struct {
		name        string
		allowRetake bool
		wantErr     error
	}{
		{"retake refused", false, util.ErrInvalidState},
		{"retake allowed", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newAttemptFixture()
			quiz := f.publishedQuiz(t, func(s *QuizSpec) { s.AllowRetake = tt.allowRetake })

			first, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
			require.NoError(t, err)
			_, err = f.attempts.SubmitAttempt(ctx, student, first.ID, model.AnswerSheet{0: 1})
			require.NoError(t, err)

			second, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, first.ID, second.ID)
		})
	}
}

func TestAbandonAttempt(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture()
	quiz := f.publishedQuiz(t, nil)

	attempt, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)

	abandoned, err := f.attempts.AbandonAttempt(ctx, student, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAbandoned, abandoned.Status)
	assert.Nil(t, abandoned.Score)

	_, err = f.attempts.SubmitAttempt(ctx, student, attempt.ID, model.AnswerSheet{0: 1})
	assert.ErrorIs(t, err, util.ErrInvalidState)

	// an abandoned attempt does not count as taken
	next, err := f.attempts.StartAttempt(ctx, student, quiz.ID)
	require.NoError(t, err)
	assert.NotEqual(t, attempt.ID, next.ID)
}
