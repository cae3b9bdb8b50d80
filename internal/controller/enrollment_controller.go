package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// swagger:model EnrollRequest
type EnrollRequest struct {
	TargetType model.EnrollmentTarget `json:"targetType" binding:"required"`
	TargetID   uint                   `json:"targetId" binding:"required"`
}

// Enroll godoc
// @Summary Enroll in a module, course or live class
// @Tags enrollments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EnrollRequest true "Target"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response "Already enrolled"
// @Failure 422 {object} util.Response "Target not open"
// @Router /enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	e, err := c.EnrollmentService.Enroll(ctx.Request.Context(), p, req.TargetType, req.TargetID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, e)
}

// MyEnrollments godoc
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /enrollments/my [get]
func (c *EnrollmentController) MyEnrollments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	list, err := c.EnrollmentService.MyEnrollments(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// swagger:model ProgressRequest
type ProgressRequest struct {
	Progress int `json:"progress"`
}

// UpdateProgress godoc
// @Summary Report progress
// @Description Progress is clamped to 0..100; reaching 100 completes the enrollment once
// @Tags enrollments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Enrollment ID"
// @Param body body ProgressRequest true "Progress"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 422 {object} util.Response "Enrollment dropped"
// @Router /enrollments/{id}/progress [put]
func (c *EnrollmentController) UpdateProgress(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	e, err := c.EnrollmentService.UpdateProgress(ctx.Request.Context(), p, id, req.Progress)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, e)
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /enrollments/{id}/drop [put]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	e, err := c.EnrollmentService.Drop(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, e)
}

// TargetEnrollments godoc
// @Summary List enrollments for a target
// @Tags enrollments
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "Target type" Enums(module, course, live_class)
// @Param id path int true "Target ID"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Failure 403 {object} util.Response
// @Router /enrollments/target/{type}/{id} [get]
func (c *EnrollmentController) TargetEnrollments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	list, err := c.EnrollmentService.TargetEnrollments(ctx.Request.Context(), p, model.EnrollmentTarget(ctx.Param("type")), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
