package handler

import (
	"net/http"

	"estimator/internal/middleware"
	"estimator/internal/service"
	"estimator/pkg/pagination"
	"estimator/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", middleware.RequirePermission("requests.read"), h.List)
		requests.PUT("/:id/status", middleware.RequirePermission("requests.write"), h.UpdateStatus)
		requests.POST("/:id/convert", middleware.RequirePermission("requests.write"), h.Convert)
	}
}

// RegisterPublicRoutes binds the unauthenticated lead intake endpoint
func (h *RequestHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/public/requests", h.Create)
}

// Create handles POST /public/requests
// @Summary      Submit request
// @Description  Client-facing lead intake: records a work request and notifies the back office
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestInput  true  "Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /public/requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Create(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to record request"))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// List handles GET /api/requests
// @Summary      List requests
// @Description  Retrieves incoming work requests, filterable by status
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "new, in_review, converted or declined"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	requests, total, err := h.requestService.List(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// UpdateStatus handles PUT /api/requests/:id/status
// @Summary      Update request status
// @Description  Moves a request between new, in_review and declined. Conversion happens through the convert endpoint.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Request ID"
// @Param        payload  body      service.UpdateRequestStatusInput  true  "Target status"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var input service.UpdateRequestStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.UpdateStatus(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Convert handles POST /api/requests/:id/convert
// @Summary      Convert request to estimate
// @Description  Creates a draft estimate pre-filled from the request's client details and links the two
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      201  {object}  response.Response{data=service.EstimateResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/requests/{id}/convert [post]
func (h *RequestHandler) Convert(c *gin.Context) {
	estimate, err := h.requestService.Convert(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, estimate))
}
