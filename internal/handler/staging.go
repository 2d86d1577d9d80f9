package handler

import (
	"net/http"

	"listino/internal/apierror"
	"listino/internal/middleware"
	"listino/internal/service"

	"github.com/gin-gonic/gin"
)

const maxImportSize = 10 << 20 // 10 MiB

type StagingHandler struct {
	staging service.StagingService
}

func NewStagingHandler(staging service.StagingService) *StagingHandler {
	return &StagingHandler{staging: staging}
}

// Template streams the empty import spreadsheet.
func (h *StagingHandler) Template(c *gin.Context) {
	data, err := h.staging.Template()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="template-listino.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Import godoc
// @Summary  Importa il listino da Excel nell'area di staging dello store
// @Tags     staging
// @Accept   multipart/form-data
// @Produce  json
// @Param    store query    string true "store view code"
// @Param    file  formData file   true "file xlsx"
// @Success  200 {object} dto.ImportResponse
// @Failure  422 {object} apierror.APIError
// @Router   /api/staging/import [post]
func (h *StagingHandler) Import(c *gin.Context) {
	store := c.Query("store")
	if store == "" {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("Parametro store mancante"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("File mancante"))
		return
	}
	if fileHeader.Size > maxImportSize {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("File troppo grande (max 10 MB)"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("File non leggibile"))
		return
	}
	defer f.Close()

	resp, err := h.staging.Import(c.Request.Context(), store, middleware.Actor(c), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
