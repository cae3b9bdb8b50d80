package controller

import (
	"bytes"
	"classhub_backend/internal/middleware"
	"classhub_backend/internal/model"
	inmemdb "classhub_backend/internal/repository/inmem"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teacher = model.Principal{UserID: 1, Role: model.Teacher}
	student = model.Principal{UserID: 10, Role: model.Student}
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type harness struct {
	router   *gin.Engine
	stores   *inmemdb.Stores
	notifier *service.Notifier
}

// asCaller stands in for the JWT middleware: the caller comes from X-User and X-Role.
func asCaller(c *gin.Context) {
	id, err := strconv.ParseUint(c.GetHeader("X-User"), 10, 32)
	if err != nil {
		util.Unauthorized(c)
		c.Abort()
		return
	}
	util.SetPrincipal(c, model.Principal{UserID: uint(id), Role: model.UserRole(c.GetHeader("X-Role"))})
	c.Next()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := inmemdb.NewStores(inmemdb.NewDB())
	notifier := service.NewNotifier(st.Notifications, st.Users, nil, nil)
	quizzes := NewQuizController(
		service.NewQuizService(st.Quizzes, st.Enrollments, notifier),
		service.NewQuizAttemptService(st.Quizzes, st.Attempts),
	)
	assignments := NewAssignmentController(
		service.NewAssignmentService(st.Assignments, st.Submissions, st.Enrollments, nil, notifier),
	)
	notifications := NewNotificationController(service.NewNotificationService(st.Notifications))

	author := middleware.RoleMiddleware(model.Teacher)
	learner := middleware.RoleMiddleware(model.Student)

	r := gin.New()
	r.GET("/api/health", NewHealthController(nil).HealthCheck)

	api := r.Group("/api", asCaller)
	api.POST("/quizzes", author, quizzes.CreateQuiz)
	api.POST("/quizzes/import", author, quizzes.ImportQuiz)
	api.GET("/quizzes/:id", quizzes.GetQuiz)
	api.PUT("/quizzes/:id/publish", author, quizzes.PublishQuiz)
	api.POST("/quizzes/:id/attempt", learner, quizzes.StartAttempt)
	api.PUT("/quizzes/attempts/:id/submit", learner, quizzes.SubmitAttempt)

	api.POST("/assignments", author, assignments.CreateAssignment)
	api.PUT("/assignments/:id/publish", author, assignments.PublishAssignment)
	api.POST("/assignments/:id/submit", learner, assignments.Submit)
	api.PUT("/assignments/submissions/:id/grade", author, assignments.GradeSubmission)

	api.GET("/notifications", notifications.ListNotifications)
	api.GET("/notifications/unread-count", notifications.UnreadCount)
	api.PUT("/notifications/read-all", notifications.MarkAllRead)
	api.PUT("/notifications/:id/read", notifications.MarkRead)

	return &harness{router: r, stores: st, notifier: notifier}
}

func (h *harness) do(t *testing.T, p *model.Principal, method, path, contentType, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p != nil {
		req.Header.Set("X-User", strconv.FormatUint(uint64(p.UserID), 10))
		req.Header.Set("X-Role", string(p.Role))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (h *harness) json(t *testing.T, p model.Principal, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	raw := ""
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		raw = buf.String()
	}
	return h.do(t, &p, method, path, "application/json", raw)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

const quizBody = `{
	"title": "Fractions",
	"subject": "math",
	"questions": [
		{"prompt": "1/2 + 1/4", "options": ["1/6", "3/4"], "correctAnswer": 1},
		{"prompt": "2/4 simplified", "options": ["1/2", "2/2"], "correctAnswer": 0}
	]
}`

func TestHealthCheckInMemory(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(t, nil, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","components":{"database":"memory"}}`, string(env.Data))
}

func TestQuizFlow(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, &teacher, http.MethodPost, "/api/quizzes", "application/json", quizBody)
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.True(t, env.Success)
	quiz := decode[model.Quiz](t, env.Data)
	assert.Equal(t, model.QuizDraft, quiz.Status)
	path := "/api/quizzes/" + strconv.FormatUint(uint64(quiz.ID), 10)

	code, env = h.json(t, student, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, code, "drafts are invisible to learners")
	assert.False(t, env.Success)

	code, env = h.json(t, student, http.MethodPost, path+"/attempt", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "quiz is not open for attempts", env.Error)

	code, _ = h.json(t, teacher, http.MethodPut, path+"/publish", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.json(t, student, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[model.Quiz](t, env.Data)
	for _, q := range view.Questions {
		assert.Nil(t, q.CorrectAnswer)
	}

	code, env = h.json(t, student, http.MethodPost, path+"/attempt", nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	attempt := decode[model.QuizAttempt](t, env.Data)

	code, env = h.json(t, student, http.MethodPost, path+"/attempt", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
	assert.Equal(t, attempt.ID, decode[model.QuizAttempt](t, env.Data).ID, "the running attempt is echoed back")

	submit := "/api/quizzes/attempts/" + strconv.FormatUint(uint64(attempt.ID), 10) + "/submit"
	code, env = h.json(t, student, http.MethodPut, submit, map[string]interface{}{"answers": map[string]int{"0": 1, "1": 1}})
	require.Equal(t, http.StatusOK, code, env.Error)
	result := decode[service.AttemptResult](t, env.Data)
	require.NotNil(t, result.Attempt.Score)
	assert.Equal(t, 50, *result.Attempt.Score)
	assert.Equal(t, model.AttemptCompleted, result.Attempt.Status)

	code, _ = h.json(t, student, http.MethodPut, submit, map[string]interface{}{"answers": map[string]int{}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestQuizErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		caller   model.Principal
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"learner cannot author", student, http.MethodPost, "/api/quizzes", quizBody, http.StatusForbidden},
		{"teacher cannot attempt", teacher, http.MethodPost, "/api/quizzes/1/attempt", "", http.StatusForbidden},
		{"malformed json", teacher, http.MethodPost, "/api/quizzes", `{"title":`, http.StatusBadRequest},
		{"no questions", teacher, http.MethodPost, "/api/quizzes", `{"title":"T","subject":"math","questions":[]}`, http.StatusBadRequest},
		{"bad id", student, http.MethodGet, "/api/quizzes/abc", "", http.StatusBadRequest},
		{"missing quiz", student, http.MethodGet, "/api/quizzes/99", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := h.do(t, &tt.caller, tt.method, tt.path, "application/json", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}

	code, _ := h.do(t, nil, http.MethodGet, "/api/quizzes/1", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestImportQuizRawYAML(t *testing.T) {
	h := newHarness(t)
	doc := `
title: Planets
subject: science
questions:
  - prompt: Largest planet?
    options: [Mars, Jupiter]
    correctAnswer: 1
`
	code, env := h.do(t, &teacher, http.MethodPost, "/api/quizzes/import", "application/x-yaml", doc)
	require.Equal(t, http.StatusCreated, code, env.Error)
	quiz := decode[model.Quiz](t, env.Data)
	assert.Equal(t, "Planets", quiz.Title)
	assert.Equal(t, teacher.UserID, quiz.TeacherID)
	require.Len(t, quiz.Questions, 1)

	code, _ = h.do(t, &teacher, http.MethodPost, "/api/quizzes/import", "application/x-yaml", "title: [")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAssignmentSubmitAndGrade(t *testing.T) {
	h := newHarness(t)

	code, env := h.json(t, teacher, http.MethodPost, "/api/assignments", map[string]interface{}{
		"title": "Essay", "subject": "english", "maxPoints": "20",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assignment := decode[model.Assignment](t, env.Data)
	path := "/api/assignments/" + strconv.FormatUint(uint64(assignment.ID), 10)

	code, _ = h.json(t, teacher, http.MethodPut, path+"/publish", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.json(t, student, http.MethodPost, path+"/submit", map[string]string{"content": "My essay."})
	require.Equal(t, http.StatusCreated, code, env.Error)
	sub := decode[model.Submission](t, env.Data)
	assert.Equal(t, "My essay.", sub.Content)

	code, _ = h.json(t, student, http.MethodPost, path+"/submit", map[string]string{"content": "again"})
	assert.Equal(t, http.StatusConflict, code)

	grade := "/api/assignments/submissions/" + strconv.FormatUint(uint64(sub.ID), 10) + "/grade"
	code, _ = h.json(t, teacher, http.MethodPut, grade, map[string]interface{}{"grade": "25"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = h.json(t, teacher, http.MethodPut, grade, map[string]interface{}{"grade": "18.5", "feedback": "Good"})
	require.Equal(t, http.StatusOK, code, env.Error)
	graded := decode[model.Submission](t, env.Data)
	require.True(t, graded.Grade.Valid)
	assert.Equal(t, "18.5", graded.Grade.Decimal.String())
	assert.Equal(t, model.SubmissionGraded, graded.Status)

	code, env = h.json(t, student, http.MethodGet, "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.Emit(ctx, service.Event{Type: "quiz.published", Recipients: []uint{student.UserID}, Title: "New quiz"})
	h.notifier.Emit(ctx, service.Event{Type: "quiz.published", Recipients: []uint{student.UserID}, Title: "Another quiz"})

	code, env := h.json(t, student, http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, code)
	var pageOf struct {
		List  []model.Notification `json:"list"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pageOf))
	require.Len(t, pageOf.List, 2)
	assert.EqualValues(t, 2, pageOf.Total)

	code, _ = h.json(t, teacher, http.MethodPut, "/api/notifications/"+pageOf.List[0].ID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, code, "other users' notifications are invisible")

	code, env = h.json(t, student, http.MethodPut, "/api/notifications/"+pageOf.List[0].ID+"/read", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "notification marked as read", env.Message)

	code, env = h.json(t, student, http.MethodPut, "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	_, env = h.json(t, student, http.MethodGet, "/api/notifications/unread-count", nil)
	assert.JSONEq(t, `{"count":0}`, string(env.Data))
}
