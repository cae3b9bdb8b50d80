package controller

import (
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AIController struct {
	AIService *service.AIService
}

func NewAIController(aiService *service.AIService) *AIController {
	return &AIController{AIService: aiService}
}

// GenerateQuestions godoc
// @Summary Draft quiz questions with the AI assistant
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuestionGenInput true "Topic"
// @Success 200 {object} util.Response{data=[]model.QuizQuestion}
// @Failure 403 {object} util.Response
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/quiz-questions [post]
func (c *AIController) GenerateQuestions(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var in service.QuestionGenInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	questions, err := c.AIService.GenerateQuizQuestions(ctx.Request.Context(), p, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// GenerateFeedback godoc
// @Summary Suggest feedback and a grade for a submission
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.FeedbackInput true "Submission"
// @Success 200 {object} util.Response{data=service.AIFeedback}
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/feedback [post]
func (c *AIController) GenerateFeedback(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var in service.FeedbackInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	fb, err := c.AIService.GenerateFeedback(ctx.Request.Context(), p, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, fb)
}

// swagger:model AskRequest
type AskRequest struct {
	Question string                  `json:"question" binding:"required"`
	History  []service.AIChatMessage `json:"history"`
	Stream   bool                    `json:"stream"`
}

// Ask godoc
// @Summary Ask the tutor
// @Description With stream=true the answer is sent as server-sent events
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AskRequest true "Question"
// @Success 200 {object} util.Response{data=object}
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/ask [post]
func (c *AIController) Ask(ctx *gin.Context) {
	if _, ok := principal(ctx); !ok {
		return
	}
	var req AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if !req.Stream {
		answer, err := c.AIService.Ask(ctx.Request.Context(), req.Question, req.History)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		util.Success(ctx, gin.H{"answer": answer})
		return
	}

	stream, errChan := c.AIService.AskStream(ctx.Request.Context(), req.Question, req.History)

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	for content := range stream {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	}

	if err := <-errChan; err != nil {
		ctx.SSEvent("error", "AI service unavailable")
		ctx.Writer.Flush()
	}

	ctx.SSEvent("end", "done")
	ctx.Writer.Flush()
}

// Recommend godoc
// @Summary Content recommendations
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.RecommendInput true "Learner profile"
// @Success 200 {object} util.Response{data=object}
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/recommendations [post]
func (c *AIController) Recommend(ctx *gin.Context) {
	if _, ok := principal(ctx); !ok {
		return
	}
	var in service.RecommendInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	text, err := c.AIService.Recommend(ctx.Request.Context(), in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"recommendations": text})
}

// swagger:model StudyTipsRequest
type StudyTipsRequest struct {
	Subject    string   `json:"subject"`
	GradeLevel string   `json:"gradeLevel"`
	WeakAreas  []string `json:"weakAreas"`
}

// StudyTips godoc
// @Summary Study tips
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body StudyTipsRequest true "Focus"
// @Success 200 {object} util.Response{data=object}
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/study-tips [post]
func (c *AIController) StudyTips(ctx *gin.Context) {
	if _, ok := principal(ctx); !ok {
		return
	}
	var req StudyTipsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tips, err := c.AIService.StudyTips(ctx.Request.Context(), req.Subject, req.GradeLevel, req.WeakAreas)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tips": tips})
}

// swagger:model SummarizeRequest
type SummarizeRequest struct {
	Text     string `json:"text" binding:"required"`
	MaxWords int    `json:"maxWords"`
}

// Summarize godoc
// @Summary Summarize a text
// @Tags ai
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SummarizeRequest true "Text"
// @Success 200 {object} util.Response{data=object}
// @Failure 502 {object} util.Response "AI service unavailable"
// @Router /ai/summarize [post]
func (c *AIController) Summarize(ctx *gin.Context) {
	if _, ok := principal(ctx); !ok {
		return
	}
	var req SummarizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	summary, err := c.AIService.Summarize(ctx.Request.Context(), req.Text, req.MaxWords)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"summary": summary})
}
