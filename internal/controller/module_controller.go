package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"context"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	ModuleService *service.ModuleService
}

func NewModuleController(moduleService *service.ModuleService) *ModuleController {
	return &ModuleController{ModuleService: moduleService}
}

// CreateModule godoc
// @Summary Create a learning module
// @Tags modules
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ModuleSpec true "Module"
// @Success 201 {object} util.Response{data=model.LearningModule}
// @Failure 400 {object} util.Response
// @Router /modules [post]
func (c *ModuleController) CreateModule(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var spec service.ModuleSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m, err := c.ModuleService.Create(ctx.Request.Context(), p, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// ListModules godoc
// @Summary List learning modules
// @Tags modules
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string false "Subject"
// @Param status query string false "Status" Enums(draft, published, archived)
// @Param mine query bool false "Only my modules"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /modules [get]
func (c *ModuleController) ListModules(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	q := contentQuery(ctx)
	list, total, err := c.ModuleService.List(ctx.Request.Context(), p, q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, page(list, total, q))
}

// GetModule godoc
// @Summary Get a module with its materials
// @Tags modules
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Success 200 {object} util.Response{data=model.LearningModule}
// @Failure 404 {object} util.Response
// @Router /modules/{id} [get]
func (c *ModuleController) GetModule(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	m, err := c.ModuleService.Get(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// UpdateModule godoc
// @Summary Update a module
// @Tags modules
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Param body body service.ModuleSpec true "Module"
// @Success 200 {object} util.Response{data=model.LearningModule}
// @Failure 422 {object} util.Response "Module archived"
// @Router /modules/{id} [put]
func (c *ModuleController) UpdateModule(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var spec service.ModuleSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m, err := c.ModuleService.Update(ctx.Request.Context(), p, id, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// DeleteModule godoc
// @Summary Delete a module and its materials
// @Tags modules
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Success 200 {object} util.Response
// @Router /modules/{id} [delete]
func (c *ModuleController) DeleteModule(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.ModuleService.Delete(ctx.Request.Context(), p, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessMessage(ctx, "module deleted", nil)
}

// PublishModule godoc
// @Summary Publish a draft module
// @Tags modules
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Success 200 {object} util.Response{data=model.LearningModule}
// @Failure 422 {object} util.Response
// @Router /modules/{id}/publish [put]
func (c *ModuleController) PublishModule(ctx *gin.Context) {
	c.transition(ctx, c.ModuleService.Publish)
}

// ArchiveModule godoc
// @Summary Archive a published module
// @Tags modules
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Success 200 {object} util.Response{data=model.LearningModule}
// @Failure 422 {object} util.Response
// @Router /modules/{id}/archive [put]
func (c *ModuleController) ArchiveModule(ctx *gin.Context) {
	c.transition(ctx, c.ModuleService.Archive)
}

func (c *ModuleController) transition(ctx *gin.Context, op func(context.Context, model.Principal, uint) (*model.LearningModule, error)) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	m, err := op(ctx.Request.Context(), p, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// AddMaterial godoc
// @Summary Add a document or link to a module
// @Tags modules
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Param body body service.MaterialSpec true "Material"
// @Success 201 {object} util.Response{data=model.ModuleMaterial}
// @Failure 400 {object} util.Response
// @Router /modules/{id}/materials [post]
func (c *ModuleController) AddMaterial(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var spec service.MaterialSpec
	if err := ctx.ShouldBindJSON(&spec); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	mat, err := c.ModuleService.AddMaterial(ctx.Request.Context(), p, id, spec)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, mat)
}

// UploadVideo godoc
// @Summary Upload a video lesson
// @Description Duration and resolution are probed before the file is stored
// @Tags modules
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Module ID"
// @Param title formData string false "Title"
// @Param file formData file true "Video"
// @Success 201 {object} util.Response{data=model.ModuleMaterial}
// @Failure 400 {object} util.Response
// @Router /modules/{id}/videos [post]
func (c *ModuleController) UploadVideo(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	up, f, err := openUpload(fh)
	if err != nil {
		util.BadRequest(ctx, "cannot read uploaded file")
		return
	}
	defer f.Close()

	mat, err := c.ModuleService.AttachVideo(ctx.Request.Context(), p, id, ctx.PostForm("title"), *up)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, mat)
}
