package handler

import (
	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// ActivityHandler 审计记录
type ActivityHandler struct {
	svc *service.ActivityService
}

func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List 最新的审计记录
// GET /activities?page=1&page_size=20
func (h *ActivityHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: NewPagination(page, pageSize, total)})
}
