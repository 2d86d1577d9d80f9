package handler

import (
	"net/http"

	"listino/internal/dto"
	"listino/internal/service"

	"github.com/gin-gonic/gin"
)

type VatHandler struct {
	vat service.VatService
}

func NewVatHandler(vat service.VatService) *VatHandler {
	return &VatHandler{vat: vat}
}

func (h *VatHandler) List(c *gin.Context) {
	resp, err := h.vat.Rates(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Save godoc
// @Summary  Salva le aliquote IVA per store view
// @Tags     settings
// @Accept   json
// @Produce  json
// @Param    request body dto.SaveVatRatesRequest true "aliquote"
// @Success  204
// @Failure  422 {object} apierror.APIError
// @Router   /api/settings/vat [put]
func (h *VatHandler) Save(c *gin.Context) {
	var req dto.SaveVatRatesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.vat.SaveRates(c.Request.Context(), req); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
