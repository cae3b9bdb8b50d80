package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService    *service.QuizService
	AttemptService *service.QuizAttemptService
}

func NewQuizController(quizService *service.QuizService, attemptService *service.QuizAttemptService) *QuizController {
	return &QuizController{QuizService: quizService, AttemptService: attemptService}
}

// CreateQuiz godoc
// @Summary Create a quiz
// @Description Creates a draft quiz owned by the caller
// @Tags quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizSpec true "Quiz"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var spec service.QuizSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizService.Create(ctx.Request.Context(), p, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// ImportQuiz godoc
// @Summary Import a quiz from YAML
// @Description Accepts a multipart "file" field or a raw YAML body
// @Tags quizzes
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file false "YAML document"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /quizzes/import [post]
func (c *QuizController) ImportQuiz(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}

	var r io.Reader = ctx.Request.Body
	if fh, err := ctx.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			util.BadRequest(ctx, "cannot read uploaded file")
			return
		}
		defer f.Close()
		r = f
	}

	quiz, err := c.QuizService.Import(ctx.Request.Context(), p, r)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// ListQuizzes godoc
// @Summary List quizzes
// @Description Learners only see published quizzes
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string false "Subject"
// @Param gradeLevel query string false "Grade level"
// @Param status query string false "Status" Enums(draft, published, closed)
// @Param moduleId query int false "Module"
// @Param mine query bool false "Only my quizzes"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	q := contentQuery(ctx)
	quizzes, total, err := c.QuizService.List(ctx.Request.Context(), p, q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, page(quizzes, total, q))
}

// GetQuiz godoc
// @Summary Get a quiz
// @Description Answer keys are stripped for learners
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	quiz, err := c.QuizService.Get(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// UpdateQuiz godoc
// @Summary Update a draft quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Param body body service.QuizSpec true "Quiz"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 422 {object} util.Response "Quiz is not a draft"
// @Router /quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var spec service.QuizSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.QuizService.Update(ctx.Request.Context(), p, id, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary Delete a quiz and its attempts
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.QuizService.Delete(ctx.Request.Context(), p, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "quiz deleted", nil)
}

// PublishQuiz godoc
// @Summary Publish a draft quiz
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 422 {object} util.Response "Quiz is not a draft"
// @Router /quizzes/{id}/publish [put]
func (c *QuizController) PublishQuiz(ctx *gin.Context) {
	c.transition(ctx, c.QuizService.Publish)
}

// CloseQuiz godoc
// @Summary Close a published quiz
// @Tags quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 422 {object} util.Response "Quiz is not published"
// @Router /quizzes/{id}/close [put]
func (c *QuizController) CloseQuiz(ctx *gin.Context) {
	c.transition(ctx, c.QuizService.Close)
}

func (c *QuizController) transition(ctx *gin.Context, op func(context.Context, model.Principal, uint) (*model.Quiz, error)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	quiz, err := op(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// StartAttempt godoc
// @Summary Start a quiz attempt
// @Description An attempt already in progress is returned with 409
// @Tags quiz-attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Failure 409 {object} util.Response{data=model.QuizAttempt} "Attempt in progress"
// @Failure 422 {object} util.Response "Quiz not open or retake not allowed"
// @Router /quizzes/{id}/attempt [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	attempt, err := c.AttemptService.StartAttempt(ctx.Request.Context(), p, id)
	if err != nil {
		if errors.Is(err, util.ErrConflict) && attempt != nil {
			util.ErrorWithData(ctx, http.StatusConflict, "an attempt is already in progress", attempt)
			return
		}
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// swagger:model SubmitAttemptRequest
type SubmitAttemptRequest struct {
	// question index -> selected option index
	Answers model.AnswerSheet `json:"answers"`
}

// SubmitAttempt godoc
// @Summary Submit answers for scoring
// @Tags quiz-attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Param body body SubmitAttemptRequest true "Answers"
// @Success 200 {object} util.Response{data=service.AttemptResult}
// @Failure 400 {object} util.Response
// @Failure 422 {object} util.Response "Attempt already submitted"
// @Router /quizzes/attempts/{id}/submit [put]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), p, id, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// AbandonAttempt godoc
// @Summary Abandon an attempt in progress
// @Tags quiz-attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 422 {object} util.Response
// @Router /quizzes/attempts/{id}/abandon [put]
func (c *QuizController) AbandonAttempt(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	attempt, err := c.AttemptService.AbandonAttempt(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// MyAttempts godoc
// @Summary List my attempts
// @Tags quiz-attempts
// @Produce json
// @Security ApiKeyAuth
// @Param quizId query int false "Quiz filter"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Router /quizzes/my-attempts [get]
func (c *QuizController) MyAttempts(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	attempts, err := c.AttemptService.MyAttempts(ctx.Request.Context(), p, util.MustParseUint(ctx.Query("quizId")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// QuizAttempts godoc
// @Summary List attempts for a quiz
// @Description Quiz owner or admin only
// @Tags quiz-attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Quiz ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt}
// @Failure 403 {object} util.Response
// @Router /quizzes/{id}/attempts [get]
func (c *QuizController) QuizAttempts(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	attempts, err := c.AttemptService.QuizAttempts(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
