package handler

import (
	"fmt"
	"net/http"

	"listino/internal/apierror"
	"listino/internal/dto"
	"listino/internal/middleware"
	"listino/internal/service"

	"github.com/gin-gonic/gin"
)

// BatchHandler serves the batch lifecycle: creation, initialization from
// staging, listing with derived status, gate operations and publish.
type BatchHandler struct {
	batches  service.BatchService
	approval service.ApprovalService
	publish  service.PublishService
	staging  service.StagingService
}

func NewBatchHandler(
	batches service.BatchService,
	approval service.ApprovalService,
	publish service.PublishService,
	staging service.StagingService,
) *BatchHandler {
	return &BatchHandler{batches: batches, approval: approval, publish: publish, staging: staging}
}

// Create godoc
// @Summary  Crea un nuovo batch di modifiche prezzo
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    request body dto.CreateBatchRequest true "dati batch"
// @Success  201 {object} dto.BatchResponse
// @Failure  422 {object} apierror.ValidationError
// @Router   /api/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.batches.Create(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Init materializes the store's staged rows into the batch.
func (h *BatchHandler) Init(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.batches.Init(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) List(c *gin.Context) {
	resp, err := h.batches.List(c.Request.Context(), c.Query("store"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) Rows(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.batches.Rows(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pending lists the draft rows awaiting approval, across batches.
func (h *BatchHandler) Pending(c *gin.Context) {
	resp, err := h.batches.ListPending(c.Request.Context(), c.Query("store"),
		queryInt(c, "page", 1), queryInt(c, "pageSize", 50))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approved lists the publishable rows (approved and partially_failed).
func (h *BatchHandler) Approved(c *gin.Context) {
	resp, err := h.batches.ListApproved(c.Request.Context(), c.Query("store"),
		queryInt(c, "page", 1), queryInt(c, "pageSize", 50))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary  Approva le righe draft di un batch (tutto o niente)
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    id      path  string             true  "batch id"
// @Param    request body  dto.ApproveRequest false "sottoinsieme di righe"
// @Success  200 {object} dto.GateResponse
// @Failure  409 {object} apierror.ConflictError
// @Router   /api/batches/{id}/approve [post]
func (h *BatchHandler) Approve(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rowIDs, err := parseUUIDs(req.RowIDs)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
		return
	}

	resp, err := h.approval.Approve(c.Request.Context(), &id, rowIDs, middleware.Actor(c))
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

// Publish godoc
// @Summary  Pubblica su Magento le righe approvate del batch
// @Tags     batches
// @Produce  json
// @Param    id path string true "batch id"
// @Success  200 {object} dto.PublishResponse
// @Failure  422 {object} apierror.APIError
// @Router   /api/batches/{id}/publish [post]
func (h *BatchHandler) Publish(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.publish.Publish(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) Search(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RowSearchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.batches.Search(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Lookup returns the categoria/linea/marca facets of a store for the filter
// dropdowns. Cached, so safe to hammer from the UI.
func (h *BatchHandler) Lookup(c *gin.Context) {
	store := c.Query("store")
	if store == "" {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("Parametro store mancante"))
		return
	}
	resp, err := h.batches.Lookup(c.Request.Context(), store)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BatchHandler) Audit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.batches.Audit(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the batch rows as an xlsx download.
func (h *BatchHandler) Export(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	data, err := h.staging.Export(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="listino-%s.xlsx"`, id))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Report streams the latest publish outcome as a PDF.
func (h *BatchHandler) Report(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	data, err := h.publish.Report(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="pubblicazione-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", data)
}
