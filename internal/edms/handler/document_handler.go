package handler

import (
	"net/http"

	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// DownloadFilename 打包下载的文件名
const DownloadFilename = "download.zip"

// DocumentHandler 文档处理器
type DocumentHandler struct {
	svc *service.DocumentService
}

func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Config 表格列和筛选选项
// GET /documents/config
func (h *DocumentHandler) Config(c *gin.Context) {
	Success(c, h.svc.GridConfig())
}

// Filter 表格数据，响应体直接是 DataTables 格式
// GET /documents/filter
func (h *DocumentHandler) Filter(c *gin.Context) {
	resp, err := h.svc.Filter(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Download 打包下载
// GET /documents/download?document_numbers=A&document_numbers=B&format=both&revisions=latest
func (h *DocumentHandler) Download(c *gin.Context) {
	var req service.DownloadRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		Fail(c, service.ErrInvalidDownload)
		return
	}

	archive, err := h.svc.Download(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, archive.Size, "application/zip", archive, map[string]string{
		"Content-Disposition": "attachment; filename=" + DownloadFilename,
	})
}

func bindDocument(c *gin.Context) (*service.DocumentRequest, service.RevisionFiles, func(), bool) {
	var req service.DocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "invalid document: "+err.Error())
		return nil, service.RevisionFiles{}, nil, false
	}

	native, closeNative, err := formUpload(c, "native_file")
	if err != nil {
		BadRequest(c, "cannot read native_file")
		return nil, service.RevisionFiles{}, nil, false
	}
	pdf, closePDF, err := formUpload(c, "pdf_file")
	if err != nil {
		closeNative()
		BadRequest(c, "cannot read pdf_file")
		return nil, service.RevisionFiles{}, nil, false
	}
	cleanup := func() {
		closeNative()
		closePDF()
	}
	return &req, service.RevisionFiles{Native: native, PDF: pdf}, cleanup, true
}

// Create 创建文档
// POST /documents (multipart 或 JSON)
func (h *DocumentHandler) Create(c *gin.Context) {
	req, files, cleanup, ok := bindDocument(c)
	if !ok {
		return
	}
	defer cleanup()

	doc, err := h.svc.Create(c.Request.Context(), GetUserID(c), req, files)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, doc)
}

// Get 文档详情
// GET /documents/:number
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, doc)
}

// Update 编辑文档，不存在的版本号会新建版本
// PUT /documents/:number
func (h *DocumentHandler) Update(c *gin.Context) {
	req, files, cleanup, ok := bindDocument(c)
	if !ok {
		return
	}
	defer cleanup()

	doc, err := h.svc.Update(c.Request.Context(), GetUserID(c), c.Param("number"), req, files)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, doc)
}

// Delete 删除文档
// DELETE /documents/:number
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), c.Param("number")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Revisions 版本列表
// GET /documents/:number/revisions
func (h *DocumentHandler) Revisions(c *gin.Context) {
	revs, err := h.svc.Revisions(c.Request.Context(), c.Param("number"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: revs})
}

// File 下载版本的原生文件或PDF
// GET /documents/:number/revisions/:revision/:kind
func (h *DocumentHandler) File(c *gin.Context) {
	rev, ok := revisionParam(c)
	if !ok {
		return
	}
	rc, name, err := h.svc.OpenFile(c.Request.Context(), c.Param("number"), rev, c.Param("kind"))
	if err != nil {
		Fail(c, err)
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if c.Param("kind") == service.FilePDF {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, attachment(name))
}

