package handler

import (
	"net/http"

	"listino/internal/dto"
	"listino/internal/middleware"
	"listino/internal/service"

	"github.com/gin-gonic/gin"
)

// ConfigHandler manages the storefront credentials and related probes.
// All routes are amministratore-only.
type ConfigHandler struct {
	config service.ConfigService
}

func NewConfigHandler(config service.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

func (h *ConfigHandler) Get(c *gin.Context) {
	resp, err := h.config.Get(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ConfigHandler) Save(c *gin.Context) {
	var req dto.SaveConfigRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.config.Save(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ConfigHandler) TestConnection(c *gin.Context) {
	c.JSON(http.StatusOK, h.config.TestConnection(c.Request.Context()))
}

func (h *ConfigHandler) Stores(c *gin.Context) {
	items, err := h.config.StoreViews(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
