package handler

import (
	"net/http"

	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// ExportHandler 文档列表导出
type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Create 创建导出任务
// POST /exports
func (h *ExportHandler) Create(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid export: "+err.Error())
		return
	}
	export, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, export)
}

// List GET /exports
func (h *ExportHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// Get GET /exports/:id
func (h *ExportHandler) Get(c *gin.Context) {
	export, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, export)
}

// Download 下载已完成的导出文件
// GET /exports/:id/download
func (h *ExportHandler) Download(c *gin.Context) {
	rc, name, contentType, err := h.svc.Open(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, contentType, rc, attachment(name))
}
