package handler

import (
	"net/http"

	"listino/internal/apierror"
	"listino/internal/dto"
	"listino/internal/middleware"
	"listino/internal/service"

	"github.com/gin-gonic/gin"
)

// RowHandler serves the row-level operations that are not scoped to a batch
// URL: draft edits and rejections (which may span batches).
type RowHandler struct {
	batches  service.BatchService
	approval service.ApprovalService
}

func NewRowHandler(batches service.BatchService, approval service.ApprovalService) *RowHandler {
	return &RowHandler{batches: batches, approval: approval}
}

// Edit godoc
// @Summary  Modifica i prezzi di una riga in stato draft
// @Tags     rows
// @Accept   json
// @Produce  json
// @Param    id      path string             true "row id"
// @Param    request body dto.EditRowRequest true "nuovi valori"
// @Success  200 {object} dto.RowItem
// @Failure  409 {object} apierror.APIError
// @Router   /api/rows/{id} [patch]
func (h *RowHandler) Edit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.EditRowRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.batches.EditRow(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject godoc
// @Summary  Rifiuta definitivamente un insieme di righe draft
// @Tags     rows
// @Accept   json
// @Produce  json
// @Param    request body dto.RejectRequest true "righe e motivo"
// @Success  200 {object} dto.GateResponse
// @Failure  409 {object} apierror.ConflictError
// @Router   /api/rows/reject [post]
func (h *RowHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rowIDs, err := parseUUIDs(req.RowIDs)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		return
	}

	resp, err := h.approval.Reject(c.Request.Context(), rowIDs, middleware.Actor(c), req.Reason)
	if err != nil {
		if resp != nil && !resp.Success {
			c.JSON(http.StatusConflict, apierror.NewConflict(err.Error(), resp.FailedIDs))
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
