package handler

import (
	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// ReviewHandler 审阅与分发列表
type ReviewHandler struct {
	svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// Start 启动版本审阅
// POST /documents/:number/revisions/:revision/review
func (h *ReviewHandler) Start(c *gin.Context) {
	rev, ok := revisionParam(c)
	if !ok {
		return
	}
	revision, err := h.svc.StartReview(c.Request.Context(), GetUserID(c), c.Param("number"), rev)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, revision)
}

// ApplyDistributionList 把分发列表设置到版本
// PUT /documents/:number/revisions/:revision/distribution-list
func (h *ReviewHandler) ApplyDistributionList(c *gin.Context) {
	rev, ok := revisionParam(c)
	if !ok {
		return
	}
	var req struct {
		DistributionListID string `json:"distribution_list_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "distribution_list_id is required")
		return
	}
	revision, err := h.svc.ApplyDistributionList(c.Request.Context(), GetUserID(c), c.Param("number"), rev, req.DistributionListID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, revision)
}

// ListDistributionLists 分类下的分发列表
// GET /categories/:id/distribution-lists
func (h *ReviewHandler) ListDistributionLists(c *gin.Context) {
	lists, err := h.svc.ListDistributionLists(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: lists})
}

// CreateDistributionList 创建分发列表
// POST /categories/:id/distribution-lists
func (h *ReviewHandler) CreateDistributionList(c *gin.Context) {
	var req service.DistributionListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid distribution list: "+err.Error())
		return
	}
	list, err := h.svc.CreateDistributionList(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, list)
}
