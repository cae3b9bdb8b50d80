package controller

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/service"
	"classhub_backend/internal/util"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
)

// principal fetches the caller set by the auth middleware, answering 401 when absent.
func principal(ctx *gin.Context) (model.Principal, bool) {
	p, ok := util.GetPrincipal(ctx)
	if !ok {
		util.Unauthorized(ctx)
	}
	return p, ok
}

func pathID(ctx *gin.Context) (uint, bool) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid id")
	}
	return id, ok
}

func contentQuery(ctx *gin.Context) service.ContentQuery {
	page, limit := util.Pagination(ctx)
	mine, _ := strconv.ParseBool(ctx.Query("mine"))
	return service.ContentQuery{
		Subject:    ctx.Query("subject"),
		GradeLevel: ctx.Query("gradeLevel"),
		Status:     ctx.Query("status"),
		ModuleID:   util.MustParseUint(ctx.Query("moduleId")),
		Mine:       mine,
		Page:       page,
		Limit:      limit,
	}
}

func page(list interface{}, total int64, q service.ContentQuery) util.PageResponse {
	return util.PageResponse{List: list, Total: total, Page: q.Page, Limit: q.Limit}
}

// openUpload turns a multipart file into a service upload. The caller closes the file.
func openUpload(fh *multipart.FileHeader) (*service.Upload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      f,
	}, f, nil
}
