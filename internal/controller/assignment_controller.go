package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// CreateAssignment godoc
// @Summary Create an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.AssignmentSpec true "Assignment"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var spec service.AssignmentSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.AssignmentService.Create(ctx.Request.Context(), p, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// ListAssignments godoc
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string false "Subject"
// @Param status query string false "Status" Enums(draft, published, closed)
// @Param mine query bool false "Only my assignments"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	q := contentQuery(ctx)
	list, total, err := c.AssignmentService.List(ctx.Request.Context(), p, q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, q))
}

// GetAssignment godoc
// @Summary Get an assignment
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 404 {object} util.Response
// @Router /assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	a, err := c.AssignmentService.Get(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// UpdateAssignment godoc
// @Summary Update a draft assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Param body body service.AssignmentSpec true "Assignment"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 422 {object} util.Response
// @Router /assignments/{id} [put]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var spec service.AssignmentSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.AssignmentService.Update(ctx.Request.Context(), p, id, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// DeleteAssignment godoc
// @Summary Delete an assignment
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} util.Response
// @Router /assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.AssignmentService.Delete(ctx.Request.Context(), p, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "assignment deleted", nil)
}

// PublishAssignment godoc
// @Summary Publish a draft assignment
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 422 {object} util.Response
// @Router /assignments/{id}/publish [put]
func (c *AssignmentController) PublishAssignment(ctx *gin.Context) {
	c.transition(ctx, c.AssignmentService.Publish)
}

// CloseAssignment godoc
// @Summary Close a published assignment
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} util.Response{data=model.Assignment}
// @Failure 422 {object} util.Response
// @Router /assignments/{id}/close [put]
func (c *AssignmentController) CloseAssignment(ctx *gin.Context) {
	c.transition(ctx, c.AssignmentService.Close)
}

func (c *AssignmentController) transition(ctx *gin.Context, op func(context.Context, model.Principal, uint) (*model.Assignment, error)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	a, err := op(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// swagger:model SubmitRequest
type SubmitRequest struct {
	Content string `json:"content" form:"content"`
}

// Submit godoc
// @Summary Submit work for an assignment
// @Description JSON body, or multipart with "content" and an optional "attachment" file
// @Tags assignments
// @Accept json,mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Param content formData string false "Text answer"
// @Param attachment formData file false "Attachment"
// @Success 201 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "Already submitted"
// @Failure 422 {object} util.Response "Not accepting submissions"
// @Router /assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req SubmitRequest
	var in service.SubmitInput
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		if err := ctx.ShouldBind(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		if fh, err := ctx.FormFile("attachment"); err == nil {
			up, f, err := openUpload(fh)
			if err != nil {
				util.BadRequest(ctx, "cannot read attachment")
				return
			}
			defer f.Close()
			in.Attachment = up
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	in.Content = req.Content

	sub, err := c.AssignmentService.Submit(ctx.Request.Context(), p, id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// ListSubmissions godoc
// @Summary List submissions for an assignment
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Failure 403 {object} util.Response
// @Router /assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	subs, err := c.AssignmentService.ListSubmissions(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// MySubmissions godoc
// @Summary List my submissions
// @Tags assignments
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /assignments/my-submissions [get]
func (c *AssignmentController) MySubmissions(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	subs, err := c.AssignmentService.MySubmissions(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// GradeSubmission godoc
// @Summary Grade a submission
// @Tags assignments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Submission ID"
// @Param body body service.GradeInput true "Grade"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 400 {object} util.Response "Grade out of range"
// @Failure 403 {object} util.Response
// @Router /assignments/submissions/{id}/grade [put]
func (c *AssignmentController) GradeSubmission(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var in service.GradeInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := c.AssignmentService.Grade(ctx.Request.Context(), p, id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// swagger:model ReturnRequest
type ReturnRequest struct {
	Feedback *string `json:"feedback"`
}

// ReturnSubmission godoc
// @Summary Return a submission for rework
// @Tags assignments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Submission ID"
// @Param body body ReturnRequest false "Feedback"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 422 {object} util.Response
// @Router /assignments/submissions/{id}/return [put]
func (c *AssignmentController) ReturnSubmission(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req ReturnRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	sub, err := c.AssignmentService.Return(ctx.Request.Context(), p, id, req.Feedback)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
