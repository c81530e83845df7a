package handler

import (
	"github.com/bitfantasy/phase/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Register 注册 /api/v1 下的全部路由
// JSON 接口走 gzip，文件下载和 SSE 直接输出
func (h *Handlers) Register(api *gin.RouterGroup) {
	js := api.Group("", gzip.Gzip(gzip.DefaultCompression))

	// 文档
	docs := js.Group("/documents")
	{
		docs.GET("/config", h.Document.Config)
		docs.GET("/filter", h.Document.Filter)
		docs.POST("", h.Document.Create)
		docs.GET("/:number", h.Document.Get)
		docs.PUT("/:number", h.Document.Update)
		docs.DELETE("/:number", middleware.RequirePermission(middleware.PermDocumentsDelete), h.Document.Delete)
		docs.GET("/:number/revisions", h.Document.Revisions)
		docs.POST("/:number/revisions/:revision/review", h.Review.Start)
		docs.PUT("/:number/revisions/:revision/distribution-list", h.Review.ApplyDistributionList)
	}
	api.GET("/documents/download", h.Document.Download)
	api.GET("/documents/:number/revisions/:revision/:kind", h.Document.File)

	// 分发列表
	categories := js.Group("/categories")
	{
		categories.GET("/:id/distribution-lists", h.Review.ListDistributionLists)
		categories.POST("/:id/distribution-lists", middleware.RequireRole(middleware.RoleDocumentController), h.Review.CreateDistributionList)
	}

	// 传送单
	js.POST("/transmittals", h.Transmittal.Create)
	api.GET("/transmittals/:number/revisions/:revision/pdf", h.Transmittal.PDF)

	// 动态
	js.GET("/activities", h.Activity.List)

	// 书签
	bookmarks := js.Group("/bookmarks")
	{
		bookmarks.GET("", h.Bookmark.List)
		bookmarks.POST("", h.Bookmark.Create)
		bookmarks.DELETE("/:id", h.Bookmark.Delete)
	}

	// 导入
	imports := js.Group("/imports")
	{
		imports.GET("", h.Import.List)
		imports.POST("", h.Import.Create)
		imports.GET("/:uid", h.Import.Get)
	}
	api.GET("/imports/template", h.Import.Template)

	// 导出
	exports := js.Group("/exports")
	{
		exports.GET("", h.Export.List)
		exports.POST("", h.Export.Create)
		exports.GET("/:id", h.Export.Get)
	}
	api.GET("/exports/:id/download", h.Export.Download)

	// SSE
	api.GET("/events", h.SSE.Stream)
}
