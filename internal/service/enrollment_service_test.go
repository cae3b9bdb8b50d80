package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollmentFixture struct {
	svc   *EnrollmentService
	clock *clock
	// published module and scheduled class ready for enrollment
	moduleID uint
	classID  uint
	draftID  uint
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	ctx := context.Background()
	st := newStores()
	c := newClock()

	modules := NewModuleService(st.Modules, newMemObjectStore())
	modules.Now = c.Now
	published, err := modules.Create(ctx, teacher, ModuleSpec{Title: "Algebra", Subject: "math"})
	require.NoError(t, err)
	_, err = modules.Publish(ctx, teacher, published.ID)
	require.NoError(t, err)
	draft, err := modules.Create(ctx, teacher, ModuleSpec{Title: "Geometry", Subject: "math"})
	require.NoError(t, err)

	classes := NewLiveClassService(st.LiveClasses, st.Enrollments, nil, &recordingSink{}, 0)
	classes.Now = c.Now
	class, err := classes.Schedule(ctx, teacher, LiveClassSpec{
		Title: "Office hours", ScheduledAt: baseTime.Add(time.Hour), DurationMinutes: 45,
	})
	require.NoError(t, err)

	svc := NewEnrollmentService(st.Enrollments, st.Modules, st.LiveClasses)
	svc.Now = c.Now
	return &enrollmentFixture{svc: svc, clock: c, moduleID: published.ID, classID: class.ID, draftID: draft.ID}
}

func TestEnroll(t *testing.T) {
	f := newEnrollmentFixture(t)

	tests := []struct {
		name     string
		p        model.Principal
		kind     model.EnrollmentTarget
		targetID uint
		wantErr  error
	}{
		{"published module", student, model.TargetModule, f.moduleID, nil},
		{"scheduled live class", student, model.TargetLiveClass, f.classID, nil},
		{"course is always open", student, model.TargetCourse, 42, nil},
		{"draft module", student, model.TargetModule, f.draftID, util.ErrInvalidState},
		{"missing module", student, model.TargetModule, 999, util.ErrNotFound},
		{"unknown target type", student, model.EnrollmentTarget("club"), 1, util.ErrValidation},
		{"zero target", student, model.TargetCourse, 0, util.ErrValidation},
		{"teachers cannot enroll", teacher, model.TargetModule, f.moduleID, util.ErrForbidden},
		{"duplicate", student, model.TargetModule, f.moduleID, util.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := f.svc.Enroll(context.Background(), tt.p, tt.kind, tt.targetID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.EnrollmentActive, e.Status)
			assert.Zero(t, e.Progress)
			assert.True(t, e.EnrolledAt.Equal(baseTime))
		})
	}
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	e, err := f.svc.Enroll(ctx, student, model.TargetModule, f.moduleID)
	require.NoError(t, err)

	_, err = f.svc.UpdateProgress(ctx, otherStudent, e.ID, 50)
	assert.ErrorIs(t, err, util.ErrForbidden)

	got, err := f.svc.UpdateProgress(ctx, student, e.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)

	got, err = f.svc.UpdateProgress(ctx, student, e.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, model.EnrollmentActive, got.Status)

	got, err = f.svc.UpdateProgress(ctx, student, e.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, model.EnrollmentCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	completedAt := *got.CompletedAt

	f.clock.Advance(time.Hour)
	got, err = f.svc.UpdateProgress(ctx, student, e.ID, 100)
	require.NoError(t, err)
	assert.True(t, got.CompletedAt.Equal(completedAt), "completion time is set once")
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	e, err := f.svc.Enroll(ctx, student, model.TargetLiveClass, f.classID)
	require.NoError(t, err)

	dropped, err := f.svc.Drop(ctx, student, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentDropped, dropped.Status)
	assert.NotNil(t, dropped.DroppedAt)

	_, err = f.svc.Drop(ctx, student, e.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = f.svc.UpdateProgress(ctx, student, e.ID, 10)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestTargetEnrollments(t *testing.T) {
	ctx := context.Background()
	f := newEnrollmentFixture(t)
	for _, p := range []model.Principal{student, otherStudent} {
		_, err := f.svc.Enroll(ctx, p, model.TargetModule, f.moduleID)
		require.NoError(t, err)
	}

	list, err := f.svc.TargetEnrollments(ctx, teacher, model.TargetModule, f.moduleID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.svc.TargetEnrollments(ctx, otherTeacher, model.TargetModule, f.moduleID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = f.svc.TargetEnrollments(ctx, student, model.TargetCourse, 1)
	assert.ErrorIs(t, err, util.ErrForbidden)

	mine, err := f.svc.MyEnrollments(ctx, student)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
