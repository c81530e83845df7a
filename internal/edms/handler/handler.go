package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/bitfantasy/phase/internal/edms/sse"
	"github.com/bitfantasy/phase/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Document    *DocumentHandler
	Review      *ReviewHandler
	Transmittal *TransmittalHandler
	Activity    *ActivityHandler
	Bookmark    *BookmarkHandler
	Import      *ImportHandler
	Export      *ExportHandler
	SSE         *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Document:    NewDocumentHandler(svc.Document),
		Review:      NewReviewHandler(svc.Review),
		Transmittal: NewTransmittalHandler(svc.Transmittal),
		Activity:    NewActivityHandler(svc.Activity),
		Bookmark:    NewBookmarkHandler(svc.Bookmark),
		Import:      NewImportHandler(svc.Import),
		Export:      NewExportHandler(svc.Export),
		SSE:         NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination 计算总页数
func NewPagination(page, pageSize int, total int64) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// Error 错误响应，HTTP 状态码取 code/100
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 状态冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Fail 按服务层错误类型选择响应
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidDownload):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotReviewable), errors.Is(err, service.ErrNotReady):
		Conflict(c, err.Error())
	default:
		c.Error(err)
		InternalError(c, "internal server error")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(middleware.KeyUserID)
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// revisionParam 解析 :revision
func revisionParam(c *gin.Context) (int, bool) {
	rev, err := strconv.Atoi(c.Param("revision"))
	if err != nil || rev < 0 {
		BadRequest(c, "invalid revision")
		return 0, false
	}
	return rev, true
}

// formUpload 取 multipart 中的文件，字段不存在时返回 nil
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      f,
	}, func() { f.Close() }, nil
}

// attachment 设置下载文件名
func attachment(filename string) map[string]string {
	return map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
	}
}
