package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AssignmentSpec struct {
	Title          string          `json:"title" validate:"required,notblank,max=255"`
	Description    string          `json:"description"`
	Instructions   string          `json:"instructions"`
	Subject        string          `json:"subject" validate:"required,notblank,max=100"`
	GradeLevel     string          `json:"gradeLevel" validate:"max=50"`
	ModuleID       *uint           `json:"moduleId"`
	MaxPoints      decimal.Decimal `json:"maxPoints"`
	AllowLate      bool            `json:"allowLate"`
	AutoCloseOnDue bool            `json:"autoCloseOnDue"`
	DueDate        *time.Time      `json:"dueDate"`
}

func (s AssignmentSpec) validate() error {
	if err := util.Validate(s); err != nil {
		return err
	}
	if !s.MaxPoints.IsPositive() {
		return util.Validationf("maxPoints must be greater than 0")
	}
	return nil
}

func (s AssignmentSpec) apply(a *model.Assignment) {
	a.Title = strings.TrimSpace(s.Title)
	a.Description = s.Description
	a.Instructions = s.Instructions
	a.Subject = strings.TrimSpace(s.Subject)
	a.GradeLevel = s.GradeLevel
	a.ModuleID = s.ModuleID
	a.MaxPoints = s.MaxPoints
	a.AllowLate = s.AllowLate
	a.AutoCloseOnDue = s.AutoCloseOnDue
	a.DueDate = s.DueDate
}

// Upload is a file handed over by the transport layer.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type SubmitInput struct {
	Content    string
	Attachment *Upload
}

type GradeInput struct {
	Grade    decimal.Decimal `json:"grade"`
	Feedback *string         `json:"feedback"`
}

type AssignmentService struct {
	Assignments AssignmentStore
	Submissions SubmissionStore
	Enrollments EnrollmentStore
	Storage     ObjectStore
	Events      EventSink
	Now         Clock
}

func NewAssignmentService(assignments AssignmentStore, submissions SubmissionStore, enrollments EnrollmentStore, storage ObjectStore, events EventSink) *AssignmentService {
	return &AssignmentService{
		Assignments: assignments,
		Submissions: submissions,
		Enrollments: enrollments,
		Storage:     storage,
		Events:      events,
		Now:         time.Now,
	}
}

func (s *AssignmentService) Create(ctx context.Context, p model.Principal, spec AssignmentSpec) (*model.Assignment, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	a := &model.Assignment{TeacherID: p.UserID, Status: model.AssignmentDraft}
	spec.apply(a)
	if err := s.Assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) Update(ctx context.Context, p model.Principal, id uint, spec AssignmentSpec) (*model.Assignment, error) {
	a, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssignmentDraft {
		return nil, invalidTransition("assignment", string(a.Status), "edit")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	spec.apply(a)
	if err := s.Assignments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) Publish(ctx context.Context, p model.Principal, id uint) (*model.Assignment, error) {
	a, err := s.transition(ctx, p, id, model.AssignmentDraft, model.AssignmentPublished, "publish")
	if err != nil {
		return nil, err
	}

	if a.ModuleID != nil {
		students, err := s.Enrollments.StudentIDs(ctx, model.TargetModule, *a.ModuleID)
		if err != nil {
			logger.Log.Warn("load assignment audience failed", zap.Uint("assignmentId", a.ID), zap.Error(err))
		}
		msg := fmt.Sprintf("%q has been assigned.", a.Title)
		if a.DueDate != nil {
			msg = fmt.Sprintf("%q has been assigned, due %s.", a.Title, a.DueDate.Format(util.TimeFormat))
		}
		s.Events.Emit(ctx, Event{
			Type:       model.NotifyAssignmentPublished,
			Recipients: students,
			Title:      "New assignment",
			Message:    msg,
			Data:       map[string]interface{}{"assignmentId": a.ID},
		})
	}
	return a, nil
}

func (s *AssignmentService) Close(ctx context.Context, p model.Principal, id uint) (*model.Assignment, error) {
	return s.transition(ctx, p, id, model.AssignmentPublished, model.AssignmentClosed, "close")
}

func (s *AssignmentService) transition(ctx context.Context, p model.Principal, id uint, from, to model.AssignmentStatus, action string) (*model.Assignment, error) {
	a, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.Status != from {
		return nil, invalidTransition("assignment", string(a.Status), action)
	}

	ok, err := s.Assignments.UpdateStatus(ctx, id, from, to, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace("assignment")
	}
	return s.Assignments.FindByID(ctx, id)
}

func (s *AssignmentService) Delete(ctx context.Context, p model.Principal, id uint) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	return s.Assignments.Delete(ctx, id)
}

func (s *AssignmentService) Get(ctx context.Context, p model.Principal, id uint) (*model.Assignment, error) {
	a, err := s.Assignments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Learner() && a.Status == model.AssignmentDraft {
		return nil, util.ErrNotFound
	}
	return a, nil
}

func (s *AssignmentService) List(ctx context.Context, p model.Principal, q ContentQuery) ([]model.Assignment, int64, error) {
	return s.Assignments.List(ctx, q.filter(p, string(model.AssignmentPublished)))
}

func (s *AssignmentService) owned(ctx context.Context, p model.Principal, id uint) (*model.Assignment, error) {
	a, err := s.Assignments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, a.TeacherID, "assignment"); err != nil {
		return nil, err
	}
	return a, nil
}

// Submit records a student's work. A returned submission is resubmitted in place;
// any other existing submission is a conflict.
func (s *AssignmentService) Submit(ctx context.Context, p model.Principal, assignmentID uint, in SubmitInput) (*model.Submission, error) {
	if err := requireStudent(p); err != nil {
		return nil, err
	}
	a, err := s.Assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssignmentPublished {
		return nil, fmt.Errorf("%w: assignment is not accepting submissions", util.ErrInvalidState)
	}
	if strings.TrimSpace(in.Content) == "" && in.Attachment == nil {
		return nil, util.Validationf("content or attachment is required")
	}

	now := s.Now()
	late := a.DueDate != nil && now.After(*a.DueDate)
	if late && !a.AllowLate {
		return nil, fmt.Errorf("%w: the due date has passed", util.ErrInvalidState)
	}

	existing, err := s.Submissions.FindByAssignmentAndStudent(ctx, a.ID, p.UserID)
	if err != nil && !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != model.SubmissionReturned {
		return nil, fmt.Errorf("%w: already submitted", util.ErrConflict)
	}

	var attachmentURL string
	if in.Attachment != nil {
		if attachmentURL, err = s.storeAttachment(ctx, in.Attachment); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		existing.Content = in.Content
		if attachmentURL != "" {
			existing.AttachmentURL = attachmentURL
		}
		existing.Status = model.SubmissionSubmitted
		existing.IsLate = late
		existing.SubmittedAt = now
		existing.Grade = decimal.NullDecimal{}
		existing.GradedAt = nil
		existing.GradedBy = nil
		if err := s.Submissions.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	sub := &model.Submission{
		AssignmentID:  a.ID,
		StudentID:     p.UserID,
		Content:       in.Content,
		AttachmentURL: attachmentURL,
		Status:        model.SubmissionSubmitted,
		IsLate:        late,
		SubmittedAt:   now,
	}
	if err := s.Submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *AssignmentService) storeAttachment(ctx context.Context, up *Upload) (string, error) {
	if !util.HasExtension(up.Filename, util.AllowedAttachmentExtensions) {
		return "", util.Validationf("attachment type not allowed")
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = util.MimeOctetStream
	}
	url, err := s.Storage.Put(ctx, ObjectKey("attachments", up.Filename), up.Reader, up.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return url, nil
}

// Grade records the teacher's mark. The student is notified after the grade is
// stored; a failed notification does not undo it.
func (s *AssignmentService) Grade(ctx context.Context, p model.Principal, submissionID uint, in GradeInput) (*model.Submission, error) {
	sub, a, err := s.ownedSubmission(ctx, p, submissionID)
	if err != nil {
		return nil, err
	}
	if in.Grade.IsNegative() || in.Grade.GreaterThan(a.MaxPoints) {
		return nil, util.Validationf("grade must be between 0 and %s", a.MaxPoints.String())
	}
	if sub.Status == model.SubmissionReturned {
		return nil, fmt.Errorf("%w: submission was returned for rework", util.ErrInvalidState)
	}

	now := s.Now()
	grader := p.UserID
	sub.Status = model.SubmissionGraded
	sub.Grade = decimal.NewNullDecimal(in.Grade)
	sub.Feedback = in.Feedback
	sub.GradedAt = &now
	sub.GradedBy = &grader
	if err := s.Submissions.Update(ctx, sub); err != nil {
		return nil, err
	}
	monitoring.SubmissionsGraded.Inc()

	s.Events.Emit(ctx, Event{
		Type:       model.NotifySubmissionGraded,
		Recipients: []uint{sub.StudentID},
		Title:      "Assignment graded",
		Message:    fmt.Sprintf("Your submission for %q was graded: %s/%s.", a.Title, in.Grade.String(), a.MaxPoints.String()),
		Data: map[string]interface{}{
			"assignmentId": a.ID,
			"submissionId": sub.ID,
			"grade":        in.Grade.String(),
		},
	})
	return sub, nil
}

// Return sends a submission back to the student for rework.
func (s *AssignmentService) Return(ctx context.Context, p model.Principal, submissionID uint, feedback *string) (*model.Submission, error) {
	sub, a, err := s.ownedSubmission(ctx, p, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == model.SubmissionReturned {
		return nil, invalidTransition("submission", string(sub.Status), "return")
	}

	sub.Status = model.SubmissionReturned
	if feedback != nil {
		sub.Feedback = feedback
	}
	if err := s.Submissions.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Events.Emit(ctx, Event{
		Type:       model.NotifySubmissionReturned,
		Recipients: []uint{sub.StudentID},
		Title:      "Submission returned",
		Message:    fmt.Sprintf("Your submission for %q was returned for rework.", a.Title),
		Data:       map[string]interface{}{"assignmentId": a.ID, "submissionId": sub.ID},
	})
	return sub, nil
}

func (s *AssignmentService) ownedSubmission(ctx context.Context, p model.Principal, id uint) (*model.Submission, *model.Assignment, error) {
	sub, err := s.Submissions.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sub.Assignment == nil {
		return nil, nil, fmt.Errorf("%w: assignment no longer exists", util.ErrNotFound)
	}
	a := sub.Assignment
	if err := requireOwner(p, a.TeacherID, "assignment"); err != nil {
		return nil, nil, err
	}
	sub.Assignment = nil
	return sub, a, nil
}

func (s *AssignmentService) ListSubmissions(ctx context.Context, p model.Principal, assignmentID uint) ([]model.Submission, error) {
	if _, err := s.owned(ctx, p, assignmentID); err != nil {
		return nil, err
	}
	return s.Submissions.ListByAssignment(ctx, assignmentID)
}

func (s *AssignmentService) MySubmissions(ctx context.Context, p model.Principal) ([]model.Submission, error) {
	return s.Submissions.ListByStudent(ctx, p.UserID)
}

func (s *AssignmentService) CloseDue(ctx context.Context) (int, error) {
	now := s.Now()
	due, err := s.Assignments.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, a := range due {
		ok, err := s.Assignments.UpdateStatus(ctx, a.ID, model.AssignmentPublished, model.AssignmentClosed, now)
		if err != nil {
			logger.Log.Error("auto-close assignment failed", zap.Uint("assignmentId", a.ID), zap.Error(err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}
