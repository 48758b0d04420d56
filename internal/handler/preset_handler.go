package handler

import (
	"net/http"

	"estimator/internal/middleware"
	"estimator/internal/service"
	"estimator/pkg/pagination"
	"estimator/pkg/response"

	"github.com/gin-gonic/gin"
)

type PresetHandler struct {
	presetService service.PresetService
}

func NewPresetHandler(presetService service.PresetService) *PresetHandler {
	return &PresetHandler{presetService: presetService}
}

func (h *PresetHandler) RegisterRoutes(router *gin.RouterGroup) {
	presets := router.Group("/api/presets")
	{
		presets.GET("", middleware.RequirePermission("presets.read"), h.List)
		presets.POST("", middleware.RequirePermission("presets.write"), h.Create)
		presets.PUT("/:id", middleware.RequirePermission("presets.write"), h.Update)
		presets.DELETE("/:id", middleware.RequirePermission("presets.write"), h.Delete)
	}
}

// List handles GET /api/presets
// @Summary      List line item presets
// @Description  Retrieves the reusable line item catalog, filterable by search term and category
// @Tags         presets
// @Produce      json
// @Security     BearerAuth
// @Param        search    query     string  false  "Search by name or code"
// @Param        category  query     string  false  "Filter by category"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Failure      500       {object}  response.Response
// @Router       /api/presets [get]
func (h *PresetHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	presets, total, err := h.presetService.List(c.Request.Context(), params.Page, params.Limit, c.Query("search"), c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch presets"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"presets": presets,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// Create handles POST /api/presets
// @Summary      Create preset
// @Tags         presets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.PresetInput  true  "Preset Payload"
// @Success      201      {object}  response.Response{data=service.PresetResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/presets [post]
func (h *PresetHandler) Create(c *gin.Context) {
	var input service.PresetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	preset, err := h.presetService.Create(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, preset))
}

// Update handles PUT /api/presets/:id
// @Summary      Update preset
// @Tags         presets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Preset ID"
// @Param        payload  body      service.PresetInput  true  "Preset Payload"
// @Success      200      {object}  response.Response{data=service.PresetResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/presets/{id} [put]
func (h *PresetHandler) Update(c *gin.Context) {
	var input service.PresetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	preset, err := h.presetService.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, preset))
}

// Delete handles DELETE /api/presets/:id
// @Summary      Delete preset
// @Tags         presets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Preset ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/presets/{id} [delete]
func (h *PresetHandler) Delete(c *gin.Context) {
	if err := h.presetService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Preset deleted successfully"))
}
