package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"context"

	"github.com/gin-gonic/gin"
)

type LiveClassController struct {
	LiveClassService *service.LiveClassService
	Hub              *service.ClassroomHub
}

func NewLiveClassController(liveClassService *service.LiveClassService, hub *service.ClassroomHub) *LiveClassController {
	return &LiveClassController{LiveClassService: liveClassService, Hub: hub}
}

// ScheduleClass godoc
// @Summary Schedule a live class
// @Description With createMeeting the meeting provider is asked for a link; the class is kept even if that fails
// @Tags live-classes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.LiveClassSpec true "Live class"
// @Success 201 {object} util.Response{data=model.LiveClass}
// @Failure 400 {object} util.Response
// @Router /live-classes [post]
func (c *LiveClassController) ScheduleClass(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var spec service.LiveClassSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	class, err := c.LiveClassService.Schedule(ctx.Request.Context(), p, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

// ListClasses godoc
// @Summary List live classes
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Status" Enums(scheduled, live, completed, cancelled)
// @Param mine query bool false "Only my classes"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /live-classes [get]
func (c *LiveClassController) ListClasses(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	q := contentQuery(ctx)
	list, total, err := c.LiveClassService.List(ctx.Request.Context(), p, q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, q))
}

// GetClass godoc
// @Summary Get a live class
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=model.LiveClass}
// @Failure 404 {object} util.Response
// @Router /live-classes/{id} [get]
func (c *LiveClassController) GetClass(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	class, err := c.LiveClassService.Get(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

// UpdateClass godoc
// @Summary Update a scheduled class
// @Tags live-classes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Param body body service.LiveClassSpec true "Live class"
// @Success 200 {object} util.Response{data=model.LiveClass}
// @Failure 422 {object} util.Response
// @Router /live-classes/{id} [put]
func (c *LiveClassController) UpdateClass(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var spec service.LiveClassSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	class, err := c.LiveClassService.Update(ctx.Request.Context(), p, id, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

// DeleteClass godoc
// @Summary Delete a live class that is not in session
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /live-classes/{id} [delete]
func (c *LiveClassController) DeleteClass(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.LiveClassService.Delete(ctx.Request.Context(), p, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "live class deleted", nil)
}

// StartClass godoc
// @Summary Start a scheduled class
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=model.LiveClass}
// @Failure 422 {object} util.Response
// @Router /live-classes/{id}/start [put]
func (c *LiveClassController) StartClass(ctx *gin.Context) {
	c.transition(ctx, c.LiveClassService.Start)
}

// EndClass godoc
// @Summary End a live class
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=model.LiveClass}
// @Failure 422 {object} util.Response
// @Router /live-classes/{id}/end [put]
func (c *LiveClassController) EndClass(ctx *gin.Context) {
	c.transition(ctx, c.LiveClassService.End)
}

// CancelClass godoc
// @Summary Cancel a scheduled class
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=model.LiveClass}
// @Failure 422 {object} util.Response
// @Router /live-classes/{id}/cancel [put]
func (c *LiveClassController) CancelClass(ctx *gin.Context) {
	c.transition(ctx, c.LiveClassService.Cancel)
}

func (c *LiveClassController) transition(ctx *gin.Context, op func(context.Context, model.Principal, uint) (*model.LiveClass, error)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	class, err := op(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

// Participants godoc
// @Summary Meeting participants report
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=[]service.MeetingParticipant}
// @Failure 502 {object} util.Response "Meeting provider unavailable"
// @Router /live-classes/{id}/participants [get]
func (c *LiveClassController) Participants(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	list, err := c.LiveClassService.Participants(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Recordings godoc
// @Summary Meeting cloud recordings
// @Tags live-classes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Success 200 {object} util.Response{data=[]service.MeetingRecording}
// @Failure 502 {object} util.Response "Meeting provider unavailable"
// @Router /live-classes/{id}/recordings [get]
func (c *LiveClassController) Recordings(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	list, err := c.LiveClassService.Recordings(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Classroom godoc
// @Summary Join the classroom channel
// @Description Upgrades to a websocket relaying chat, polls and raised hands while the class is live. Pass the JWT as ?token= from browsers.
// @Tags live-classes
// @Security ApiKeyAuth
// @Param id path int true "Live class ID"
// @Param token query string false "JWT"
// @Success 101
// @Failure 403 {object} util.Response
// @Failure 422 {object} util.Response "Class not live"
// @Router /live-classes/{id}/ws [get]
func (c *LiveClassController) Classroom(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	class, err := c.LiveClassService.AuthorizeJoin(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	service.ServeClassroom(c.Hub, ctx.Writer, ctx.Request, p, class.ID)
}
