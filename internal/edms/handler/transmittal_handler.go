package handler

import (
	"net/http"

	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/gin-gonic/gin"
)

// TransmittalHandler 传送单
type TransmittalHandler struct {
	svc *service.TransmittalService
}

func NewTransmittalHandler(svc *service.TransmittalService) *TransmittalHandler {
	return &TransmittalHandler{svc: svc}
}

// Create 创建传送单
// POST /transmittals
func (h *TransmittalHandler) Create(c *gin.Context) {
	var req service.TransmittalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid transmittal: "+err.Error())
		return
	}
	trs, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, trs)
}

// PDF 传送单版本的PDF
// GET /transmittals/:number/revisions/:revision/pdf
func (h *TransmittalHandler) PDF(c *gin.Context) {
	rev, ok := revisionParam(c)
	if !ok {
		return
	}
	data, name, err := h.svc.PDF(c.Request.Context(), c.Param("number"), rev)
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
