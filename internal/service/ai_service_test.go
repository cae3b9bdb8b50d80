package service

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/util"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer answers every completion request with reply, or with the given status.
func chatServer(t *testing.T, status int, reply string) (*httptest.Server, *[]ChatCompletionRequest) {
	t.Helper()
	var seen []ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)

		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"quota exceeded for org-123"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newTestAI(url string) *AIService {
	return NewAIService(config.AIConfig{BaseURL: url + "/", APIKey: "test-key", Model: "tutor-1", TimeoutSeconds: 5})
}

func TestAI_Ask(t *testing.T) {
	srv, seen := chatServer(t, http.StatusOK, "Photosynthesis turns light into sugar.")
	ai := newTestAI(srv.URL)

	answer, err := ai.Ask(context.Background(), "What is photosynthesis?", []AIChatMessage{
		{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis turns light into sugar.", answer)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "tutor-1", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "What is photosynthesis?", req.Messages[3].Content)

	_, err = ai.Ask(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestAI_ProviderErrorIsHidden(t *testing.T) {
	srv, _ := chatServer(t, http.StatusTooManyRequests, "")
	ai := newTestAI(srv.URL)

	_, err := ai.Ask(context.Background(), "Why is the sky blue?", nil)
	require.ErrorIs(t, err, util.ErrUpstreamUnavailable)
	assert.NotContains(t, err.Error(), "quota")
	assert.NotContains(t, err.Error(), "429")
}

func TestAI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestAI(url).Summarize(context.Background(), "some text", 0)
	assert.ErrorIs(t, err, util.ErrUpstreamUnavailable)
}

func TestAI_GenerateQuizQuestions(t *testing.T) {
	reply := "Here you go:\n```json\n[" +
		`{"prompt":"2+2?","options":["3","4","5","6"],"correctAnswer":1,"explanation":"basic"},` +
		`{"prompt":"","options":["a","b"],"correctAnswer":0},` +
		`{"prompt":"Capital of France?","options":["Paris","Rome"],"correctAnswer":7},` +
		`{"prompt":"No key","options":["a","b"]}` +
		"]\n```"
	srv, _ := chatServer(t, http.StatusOK, reply)
	ai := newTestAI(srv.URL)

	_, err := ai.GenerateQuizQuestions(context.Background(), student, QuestionGenInput{Subject: "math", Topic: "sums"})
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = ai.GenerateQuizQuestions(context.Background(), teacher, QuestionGenInput{Subject: "math"})
	assert.ErrorIs(t, err, util.ErrValidation)

	questions, err := ai.GenerateQuizQuestions(context.Background(), teacher, QuestionGenInput{Subject: "math", Topic: "sums", Count: 4})
	require.NoError(t, err)
	require.Len(t, questions, 1, "invalid items are dropped")
	assert.Equal(t, "2+2?", questions[0].Prompt)
	assert.Equal(t, 1, *questions[0].CorrectAnswer)
}

func TestAI_GenerateQuizQuestionsNothingUsable(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose only", "I cannot help with that."},
		{"broken json", "[{\"prompt\": }]"},
		{"all invalid", `[{"prompt":"x","options":["only"],"correctAnswer":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := chatServer(t, http.StatusOK, tt.reply)
			_, err := newTestAI(srv.URL).GenerateQuizQuestions(context.Background(), teacher, QuestionGenInput{Subject: "math", Topic: "sums"})
			assert.ErrorIs(t, err, util.ErrUpstreamUnavailable)
		})
	}
}

func TestAI_GenerateFeedbackClampsGrade(t *testing.T) {
	tests := []struct {
		suggested float64
		want      float64
	}{
		{-3, 0},
		{7.5, 7.5},
		{42, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.suggested), func(t *testing.T) {
			reply := fmt.Sprintf(`Sure! {"suggestedGrade": %g, "strengths": ["clear"], "improvements": ["cite sources"], "feedback": "Nice {work}."}`, tt.suggested)
			srv, _ := chatServer(t, http.StatusOK, reply)

			fb, err := newTestAI(srv.URL).GenerateFeedback(context.Background(), teacher, FeedbackInput{
				AssignmentTitle: "Essay", MaxPoints: 10, Submission: "My essay.",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, fb.SuggestedGrade)
			assert.Equal(t, []string{"clear"}, fb.Strengths)
			assert.Equal(t, "Nice {work}.", fb.Feedback)
		})
	}
}

func TestAI_AskStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Light ", "", "becomes ", "sugar."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	}))
	defer srv.Close()

	chunks, errs := newTestAI(srv.URL).AskStream(context.Background(), "Explain photosynthesis", nil)
	var sb strings.Builder
	for c := range chunks {
		sb.WriteString(c)
	}
	assert.NoError(t, <-errs)
	assert.Equal(t, "Light becomes sugar.", sb.String())
}

func TestAI_AskStreamUpstreamError(t *testing.T) {
	srv, _ := chatServer(t, http.StatusInternalServerError, "")
	chunks, errs := newTestAI(srv.URL).AskStream(context.Background(), "hi", nil)
	for range chunks {
	}
	assert.ErrorIs(t, <-errs, util.ErrUpstreamUnavailable)
}
