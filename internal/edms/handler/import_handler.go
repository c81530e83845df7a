package handler

import (
	"net/http"

	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/bitfantasy/phase/internal/edms/tabular"
	"github.com/gin-gonic/gin"
)

// ImportHandler 文件导入
type ImportHandler struct {
	svc *service.ImportService
}

func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// Create 上传导入文件
// POST /imports (multipart: file, category_id)
func (h *ImportHandler) Create(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	upload, closeFile, err := openUpload(header)
	if err != nil {
		BadRequest(c, "cannot read file")
		return
	}
	defer closeFile()

	batch, err := h.svc.Create(c.Request.Context(), GetUserID(c), c.PostForm("category_id"), upload)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, batch)
}

// List GET /imports
func (h *ImportHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// Get 批次状态及每行结果
// GET /imports/:uid
func (h *ImportHandler) Get(c *gin.Context) {
	batch, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("uid"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, batch)
}

// Template 导入模板
// GET /imports/template?format=csv|xlsx
func (h *ImportHandler) Template(c *gin.Context) {
	format := c.DefaultQuery("format", tabular.FormatCSV)
	data, err := h.svc.Template(format)
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="import_template.`+format+`"`)
	c.Data(http.StatusOK, tabular.ContentType(format), data)
}
