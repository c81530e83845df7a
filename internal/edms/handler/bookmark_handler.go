package handler

import (
	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// BookmarkHandler 书签
type BookmarkHandler struct {
	svc *service.BookmarkService
}

func NewBookmarkHandler(svc *service.BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{svc: svc}
}

// List GET /bookmarks
func (h *BookmarkHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// Create POST /bookmarks
func (h *BookmarkHandler) Create(c *gin.Context) {
	var req service.BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name and url are required")
		return
	}
	b, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, b)
}

// Delete DELETE /bookmarks/:id
func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
