package service

import (
	"bufio"
	"bytes"
	"classhub_backend/internal/config"
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIService{config: cfg, client: &http.Client{Timeout: timeout}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []AIChatMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"` // streaming chunks
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const tutorPrompt = "You are a patient tutor on an online learning platform. Answer clearly and stay on educational topics."

// aiUnavailable logs the cause and hides it from the caller.
func aiUnavailable(op string, err error) error {
	monitoring.UpstreamFailures.WithLabelValues("ai").Inc()
	logger.Log.Warn("ai call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: AI service unavailable", util.ErrUpstreamUnavailable)
}

func (s *AIService) newRequest(ctx context.Context, body ChatCompletionRequest) (*http.Request, error) {
	if body.Model == "" {
		body.Model = s.config.Model
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	return req, nil
}

// ChatComplete sends one non-streaming completion request and returns the first choice.
func (s *AIService) ChatComplete(ctx context.Context, messages []AIChatMessage, temperature float64, maxTokens int) (string, error) {
	req, err := s.newRequest(ctx, ChatCompletionRequest{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", aiUnavailable("chat", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", aiUnavailable("chat", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", aiUnavailable("chat", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", aiUnavailable("chat", err)
	}
	if result.Error != nil {
		return "", aiUnavailable("chat", fmt.Errorf("provider error: %s", result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", aiUnavailable("chat", fmt.Errorf("no choices returned"))
	}
	return result.Choices[0].Message.Content, nil
}

// AskStream streams the answer chunk by chunk over server-sent events from the provider.
func (s *AIService) AskStream(ctx context.Context, question string, history []AIChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	messages := append([]AIChatMessage{{Role: "system", Content: tutorPrompt}}, history...)
	messages = append(messages, AIChatMessage{Role: "user", Content: question})

	go func() {
		defer close(out)
		defer close(errChan)

		req, err := s.newRequest(ctx, ChatCompletionRequest{Messages: messages, Temperature: 0.7, Stream: true})
		if err != nil {
			errChan <- aiUnavailable("stream", err)
			return
		}

		resp, err := s.client.Do(req)
		if err != nil {
			errChan <- aiUnavailable("stream", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- aiUnavailable("stream", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- aiUnavailable("stream", err)
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				select {
				case out <- chunk.Choices[0].Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errChan
}

type QuestionGenInput struct {
	Subject    string `json:"subject" validate:"required,notblank"`
	GradeLevel string `json:"gradeLevel"`
	Topic      string `json:"topic" validate:"required,notblank"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=20"`
}

// GenerateQuizQuestions asks the model for multiple-choice questions and keeps
// the ones with a usable answer key.
func (s *AIService) GenerateQuizQuestions(ctx context.Context, p model.Principal, in QuestionGenInput) ([]model.QuizQuestion, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := util.Validate(in); err != nil {
		return nil, err
	}
	if in.Count == 0 {
		in.Count = 5
	}

	prompt := fmt.Sprintf(
		"Write %d multiple-choice questions about %q for %s students of grade %s. "+
			"Reply with a JSON array only. Each item: {\"prompt\": string, \"options\": [4 strings], "+
			"\"correctAnswer\": index of the right option starting at 0, \"explanation\": string}.",
		in.Count, in.Topic, in.Subject, orDefault(in.GradeLevel, "any"))

	reply, err := s.ChatComplete(ctx, []AIChatMessage{
		{Role: "system", Content: "You write accurate assessment items for teachers."},
		{Role: "user", Content: prompt},
	}, 0.4, 2000)
	if err != nil {
		return nil, err
	}

	span, ok := util.ExtractJSONSpan(reply, '[')
	if !ok {
		return nil, aiUnavailable("quiz-questions", fmt.Errorf("no JSON array in reply"))
	}
	var raw []model.QuizQuestion
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, aiUnavailable("quiz-questions", err)
	}

	questions := make([]model.QuizQuestion, 0, len(raw))
	for _, q := range raw {
		if strings.TrimSpace(q.Prompt) == "" || len(q.Options) < 2 || q.CorrectAnswer == nil ||
			*q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, aiUnavailable("quiz-questions", fmt.Errorf("reply had no usable questions"))
	}
	return questions, nil
}

type FeedbackInput struct {
	AssignmentTitle string  `json:"assignmentTitle" validate:"required"`
	Instructions    string  `json:"instructions"`
	MaxPoints       float64 `json:"maxPoints" validate:"gt=0"`
	Submission      string  `json:"submission" validate:"required,notblank"`
}

type AIFeedback struct {
	SuggestedGrade float64  `json:"suggestedGrade"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	Feedback       string   `json:"feedback"`
}

func (s *AIService) GenerateFeedback(ctx context.Context, p model.Principal, in FeedbackInput) (*AIFeedback, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := util.Validate(in); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"Assignment: %s\nInstructions: %s\nMaximum points: %g\n\nStudent submission:\n%s\n\n"+
			"Reply with a JSON object only: {\"suggestedGrade\": number, \"strengths\": [string], "+
			"\"improvements\": [string], \"feedback\": string}.",
		in.AssignmentTitle, orDefault(in.Instructions, "none"), in.MaxPoints, in.Submission)

	reply, err := s.ChatComplete(ctx, []AIChatMessage{
		{Role: "system", Content: "You help teachers give fair, specific feedback on student work."},
		{Role: "user", Content: prompt},
	}, 0.3, 1200)
	if err != nil {
		return nil, err
	}

	span, ok := util.ExtractJSONSpan(reply, '{')
	if !ok {
		return nil, aiUnavailable("feedback", fmt.Errorf("no JSON object in reply"))
	}
	var fb AIFeedback
	if err := json.Unmarshal([]byte(span), &fb); err != nil {
		return nil, aiUnavailable("feedback", err)
	}
	if fb.SuggestedGrade < 0 {
		fb.SuggestedGrade = 0
	}
	if fb.SuggestedGrade > in.MaxPoints {
		fb.SuggestedGrade = in.MaxPoints
	}
	return &fb, nil
}

type RecommendInput struct {
	Subject    string   `json:"subject"`
	GradeLevel string   `json:"gradeLevel"`
	Interests  []string `json:"interests"`
	WeakAreas  []string `json:"weakAreas"`
}

func (s *AIService) Recommend(ctx context.Context, in RecommendInput) (string, error) {
	prompt := fmt.Sprintf(
		"Suggest learning content for a grade %s student studying %s. Interests: %s. Needs work on: %s. "+
			"Give a short list with one sentence on why each item helps.",
		orDefault(in.GradeLevel, "unspecified"), orDefault(in.Subject, "general topics"),
		orDefault(strings.Join(in.Interests, ", "), "none given"),
		orDefault(strings.Join(in.WeakAreas, ", "), "none given"))
	return s.ChatComplete(ctx, []AIChatMessage{
		{Role: "system", Content: tutorPrompt},
		{Role: "user", Content: prompt},
	}, 0.7, 800)
}

func (s *AIService) Ask(ctx context.Context, question string, history []AIChatMessage) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", util.Validationf("question is required")
	}
	messages := append([]AIChatMessage{{Role: "system", Content: tutorPrompt}}, history...)
	messages = append(messages, AIChatMessage{Role: "user", Content: question})
	return s.ChatComplete(ctx, messages, 0.7, 1000)
}

func (s *AIService) StudyTips(ctx context.Context, subject, gradeLevel string, weakAreas []string) (string, error) {
	prompt := fmt.Sprintf("Give practical study tips for %s at grade %s. Focus areas: %s.",
		orDefault(subject, "general studies"), orDefault(gradeLevel, "any"),
		orDefault(strings.Join(weakAreas, ", "), "general improvement"))
	return s.ChatComplete(ctx, []AIChatMessage{
		{Role: "system", Content: tutorPrompt},
		{Role: "user", Content: prompt},
	}, 0.7, 800)
}

func (s *AIService) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", util.Validationf("text is required")
	}
	if maxWords <= 0 {
		maxWords = 150
	}
	prompt := fmt.Sprintf("Summarize the following for a student in at most %d words:\n\n%s", maxWords, text)
	return s.ChatComplete(ctx, []AIChatMessage{
		{Role: "system", Content: tutorPrompt},
		{Role: "user", Content: prompt},
	}, 0.3, maxWords*2)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
