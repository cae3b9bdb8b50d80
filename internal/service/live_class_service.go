package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type LiveClassSpec struct {
	Title            string    `json:"title" validate:"required,notblank,max=255"`
	Description      string    `json:"description"`
	Subject          string    `json:"subject" validate:"max=100"`
	GradeLevel       string    `json:"gradeLevel" validate:"max=50"`
	ModuleID         *uint     `json:"moduleId"`
	ScheduledAt      time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes  int       `json:"durationMinutes" validate:"required,min=1,max=600"`
	MaxParticipants  int       `json:"maxParticipants" validate:"min=0"`
	CreateMeeting    bool      `json:"createMeeting"`
	RecordingEnabled bool      `json:"recordingEnabled"`
	WaitingRoom      bool      `json:"waitingRoom"`
	ChatEnabled      bool      `json:"chatEnabled"`
	Password         string    `json:"password" validate:"max=10"`
}

func (s LiveClassSpec) apply(l *model.LiveClass) {
	l.Title = strings.TrimSpace(s.Title)
	l.Description = s.Description
	l.Subject = s.Subject
	l.GradeLevel = s.GradeLevel
	l.ModuleID = s.ModuleID
	l.ScheduledAt = s.ScheduledAt
	l.DurationMinutes = s.DurationMinutes
	l.MaxParticipants = s.MaxParticipants

	settings := l.Settings.Data()
	settings.RecordingEnabled = s.RecordingEnabled
	settings.WaitingRoom = s.WaitingRoom
	settings.ChatEnabled = s.ChatEnabled
	l.Settings = datatypes.NewJSONType(settings)
}

type LiveClassService struct {
	Classes     LiveClassStore
	Enrollments EnrollmentStore
	Meetings    MeetingProvider
	Events      EventSink
	Grace       time.Duration
	Now         Clock
}

func NewLiveClassService(classes LiveClassStore, enrollments EnrollmentStore, meetings MeetingProvider, events EventSink, grace time.Duration) *LiveClassService {
	return &LiveClassService{
		Classes:     classes,
		Enrollments: enrollments,
		Meetings:    meetings,
		Events:      events,
		Grace:       grace,
		Now:         time.Now,
	}
}

// Schedule creates the class. A meeting is requested from the provider when
// asked for; if that fails the class is created without a link.
func (s *LiveClassService) Schedule(ctx context.Context, p model.Principal, spec LiveClassSpec) (*model.LiveClass, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := util.Validate(spec); err != nil {
		return nil, err
	}

	class := &model.LiveClass{TeacherID: p.UserID, Status: model.LiveClassScheduled}
	spec.apply(class)

	if spec.CreateMeeting {
		if meeting := s.createMeeting(ctx, spec); meeting != nil {
			settings := class.Settings.Data()
			settings.MeetingID = meeting.ID
			settings.JoinURL = meeting.JoinURL
			settings.Password = meeting.Password
			class.Settings = datatypes.NewJSONType(settings)
		}
	}

	if err := s.Classes.Create(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *LiveClassService) createMeeting(ctx context.Context, spec LiveClassSpec) *Meeting {
	if s.Meetings == nil {
		logger.Log.Warn("meeting requested but no provider is configured", zap.String("title", spec.Title))
		return nil
	}
	meeting, err := s.Meetings.CreateMeeting(ctx, MeetingRequest{
		Title:           spec.Title,
		Description:     spec.Description,
		StartTime:       spec.ScheduledAt,
		DurationMinutes: spec.DurationMinutes,
		Record:          spec.RecordingEnabled,
		WaitingRoom:     spec.WaitingRoom,
		Password:        spec.Password,
	})
	if err != nil {
		logger.Log.Warn("create meeting failed, scheduling without a link", zap.String("title", spec.Title), zap.Error(err))
		return nil
	}
	return meeting
}

func (s *LiveClassService) Update(ctx context.Context, p model.Principal, id uint, spec LiveClassSpec) (*model.LiveClass, error) {
	class, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if class.Status != model.LiveClassScheduled {
		return nil, invalidTransition("live class", string(class.Status), "edit")
	}
	if err := util.Validate(spec); err != nil {
		return nil, err
	}

	spec.apply(class)
	if err := s.Classes.Update(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *LiveClassService) Start(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	class, err := s.transition(ctx, p, id, model.LiveClassScheduled, model.LiveClassLive, "start")
	if err != nil {
		return nil, err
	}

	students, err := s.Enrollments.StudentIDs(ctx, model.TargetLiveClass, class.ID)
	if err != nil {
		logger.Log.Warn("load live class audience failed", zap.Uint("liveClassId", class.ID), zap.Error(err))
	}
	data := map[string]interface{}{"liveClassId": class.ID}
	if url := class.Settings.Data().JoinURL; url != "" {
		data["joinUrl"] = url
	}
	s.Events.Emit(ctx, Event{
		Type:       model.NotifyLiveClassStarted,
		Recipients: students,
		Title:      "Live class started",
		Message:    fmt.Sprintf("%q is live now.", class.Title),
		Data:       data,
	})
	return class, nil
}

func (s *LiveClassService) End(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	return s.transition(ctx, p, id, model.LiveClassLive, model.LiveClassCompleted, "end")
}

func (s *LiveClassService) Cancel(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	return s.transition(ctx, p, id, model.LiveClassScheduled, model.LiveClassCancelled, "cancel")
}

func (s *LiveClassService) transition(ctx context.Context, p model.Principal, id uint, from, to model.LiveClassStatus, action string) (*model.LiveClass, error) {
	class, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if class.Status != from {
		return nil, invalidTransition("live class", string(class.Status), action)
	}

	ok, err := s.Classes.UpdateStatus(ctx, id, from, to, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace("live class")
	}
	return s.Classes.FindByID(ctx, id)
}

func (s *LiveClassService) Delete(ctx context.Context, p model.Principal, id uint) error {
	class, err := s.owned(ctx, p, id)
	if err != nil {
		return err
	}
	if class.Status == model.LiveClassLive {
		return invalidTransition("live class", string(class.Status), "delete")
	}
	return s.Classes.Delete(ctx, id)
}

// Get hides the meeting credentials from learners who are not enrolled.
func (s *LiveClassService) Get(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	class, err := s.Classes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canJoin(ctx, p, class)
	if err != nil {
		return nil, err
	}
	if !allowed {
		settings := class.Settings.Data()
		settings.JoinURL = ""
		settings.Password = ""
		class.Settings = datatypes.NewJSONType(settings)
	}
	return class, nil
}

func (s *LiveClassService) List(ctx context.Context, p model.Principal, q ContentQuery) ([]model.LiveClass, int64, error) {
	classes, total, err := s.Classes.List(ctx, q.filter(p, string(model.LiveClassScheduled), string(model.LiveClassLive)))
	if err != nil {
		return nil, 0, err
	}
	if p.Learner() {
		for i := range classes {
			settings := classes[i].Settings.Data()
			settings.JoinURL = ""
			settings.Password = ""
			classes[i].Settings = datatypes.NewJSONType(settings)
		}
	}
	return classes, total, nil
}

func (s *LiveClassService) Participants(ctx context.Context, p model.Principal, id uint) ([]MeetingParticipant, error) {
	meetingID, err := s.meetingOf(ctx, p, id)
	if err != nil {
		return nil, err
	}
	list, err := s.Meetings.Participants(ctx, meetingID)
	if err != nil {
		return nil, asUpstream(err)
	}
	return list, nil
}

func (s *LiveClassService) Recordings(ctx context.Context, p model.Principal, id uint) ([]MeetingRecording, error) {
	meetingID, err := s.meetingOf(ctx, p, id)
	if err != nil {
		return nil, err
	}
	list, err := s.Meetings.Recordings(ctx, meetingID)
	if err != nil {
		return nil, asUpstream(err)
	}
	return list, nil
}

func (s *LiveClassService) meetingOf(ctx context.Context, p model.Principal, id uint) (string, error) {
	class, err := s.owned(ctx, p, id)
	if err != nil {
		return "", err
	}
	meetingID := class.Settings.Data().MeetingID
	if meetingID == "" {
		return "", fmt.Errorf("%w: live class has no meeting", util.ErrInvalidState)
	}
	if s.Meetings == nil {
		return "", fmt.Errorf("%w: meeting provider is not configured", util.ErrUpstreamUnavailable)
	}
	return meetingID, nil
}

// AuthorizeJoin admits the owner, admins and enrolled students to a class that is live.
func (s *LiveClassService) AuthorizeJoin(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	class, err := s.Classes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canJoin(ctx, p, class)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: not enrolled in this class", util.ErrForbidden)
	}
	if class.Status != model.LiveClassLive {
		return nil, fmt.Errorf("%w: live class is not in session", util.ErrInvalidState)
	}
	return class, nil
}

func (s *LiveClassService) canJoin(ctx context.Context, p model.Principal, class *model.LiveClass) (bool, error) {
	if p.Owns(class.TeacherID) {
		return true, nil
	}
	if p.Role != model.Student {
		return false, nil
	}
	e, err := s.Enrollments.FindByStudentTarget(ctx, p.UserID, model.TargetLiveClass, class.ID)
	if errors.Is(err, util.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Status != model.EnrollmentDropped, nil
}

func (s *LiveClassService) owned(ctx context.Context, p model.Principal, id uint) (*model.LiveClass, error) {
	class, err := s.Classes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, class.TeacherID, "live class"); err != nil {
		return nil, err
	}
	return class, nil
}

// CompleteOverrun ends classes still live past their planned end plus the grace period.
func (s *LiveClassService) CompleteOverrun(ctx context.Context) (int, error) {
	live, err := s.Classes.ListByStatus(ctx, model.LiveClassLive)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	done := 0
	for _, class := range live {
		if now.Before(class.EndsAt().Add(s.Grace)) {
			continue
		}
		ok, err := s.Classes.UpdateStatus(ctx, class.ID, model.LiveClassLive, model.LiveClassCompleted, now)
		if err != nil {
			logger.Log.Error("auto-complete live class failed", zap.Uint("liveClassId", class.ID), zap.Error(err))
			continue
		}
		if ok {
			done++
		}
	}
	return done, nil
}

func asUpstream(err error) error {
	if errors.Is(err, util.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", util.ErrUpstreamUnavailable, err)
}
