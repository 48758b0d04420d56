package handler

import (
	"errors"
	"net/http"

	"estimator/internal/middleware"
	"estimator/internal/service"
	"estimator/internal/workflow"
	"estimator/pkg/pagination"
	"estimator/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EstimateHandler struct {
	estimateService service.EstimateService
	paymentService  service.PaymentService
	pdfService      service.PDFService
}

func NewEstimateHandler(estimateService service.EstimateService, paymentService service.PaymentService, pdfService service.PDFService) *EstimateHandler {
	return &EstimateHandler{
		estimateService: estimateService,
		paymentService:  paymentService,
		pdfService:      pdfService,
	}
}

// RegisterRoutes binds the estimate endpoints to the gin RouterGroup
func (h *EstimateHandler) RegisterRoutes(router *gin.RouterGroup) {
	estimates := router.Group("/api/estimates")
	{
		estimates.GET("", middleware.RequirePermission("estimates.read"), h.List)
		estimates.GET("/:id", middleware.RequirePermission("estimates.read"), h.Get)
		estimates.POST("", middleware.RequirePermission("estimates.write"), h.Create)
		estimates.PUT("/:id", middleware.RequirePermission("estimates.write"), h.Update)
		estimates.PUT("/:id/line-items", middleware.RequirePermission("estimates.write"), h.ReplaceLineItems)
		estimates.POST("/:id/duplicate", middleware.RequirePermission("estimates.write"), h.Duplicate)
		estimates.POST("/:id/transition", middleware.RequirePermission("estimates.transition"), h.Transition)
		estimates.POST("/:id/confirm-prepayment", middleware.RequirePermission("payments.confirm"), h.ConfirmPrepayment)
		estimates.GET("/:id/history", middleware.RequirePermission("estimates.read"), h.History)
		estimates.GET("/:id/pdf", middleware.RequirePermission("estimates.read"), h.DownloadPDF)
		estimates.GET("/:id/payments", middleware.RequirePermission("payments.read"), h.ListPayments)
		estimates.POST("/:id/payments", middleware.RequirePermission("payments.write"), h.CreatePayment)
	}
}

// RegisterPublicRoutes binds the unauthenticated client-facing endpoints
func (h *EstimateHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/public/estimates/:token", h.PublicView)
}

type transitionRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Comment      string `json:"comment"`
}

// Create handles POST /api/estimates
// @Summary      Create estimate
// @Description  Creates a new draft estimate with a client snapshot and a generated estimate number
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateEstimateRequest  true  "Create Estimate Payload"
// @Success      201      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/estimates [post]
func (h *EstimateHandler) Create(c *gin.Context) {
	var req service.CreateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	estimate, err := h.estimateService.Create(c.Request.Context(), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, estimate))
}

// Get handles GET /api/estimates/:id
// @Summary      Get estimate
// @Description  Fetch a single estimate with its line items and available transitions
// @Tags         estimates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=service.EstimateResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/estimates/{id} [get]
func (h *EstimateHandler) Get(c *gin.Context) {
	estimate, err := h.estimateService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// List handles GET /api/estimates
// @Summary      List estimates
// @Description  Retrieves a paginated list of estimates, filterable by status and search term
// @Tags         estimates
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        search  query     string  false  "Search by estimate number or client name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/estimates [get]
func (h *EstimateHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	estimates, total, err := h.estimateService.List(c.Request.Context(), service.EstimateFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch estimates"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"estimates": estimates,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// Update handles PUT /api/estimates/:id
// @Summary      Update estimate
// @Description  Partially updates an estimate. Priced content is rejected once the estimate is locked; payment terms stay editable.
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Estimate ID"
// @Param        payload  body      service.UpdateEstimateRequest  true  "Update Estimate Payload"
// @Success      200      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/estimates/{id} [put]
func (h *EstimateHandler) Update(c *gin.Context) {
	var req service.UpdateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	estimate, err := h.estimateService.Update(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(estimateErrStatus(err), response.Error(estimateErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// ReplaceLineItems handles PUT /api/estimates/:id/line-items
// @Summary      Replace line items
// @Description  Replaces the full set of line items on an editable estimate and recomputes all totals
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Estimate ID"
// @Param        payload  body      []service.LineItemInput  true  "Line Items"
// @Success      200      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/estimates/{id}/line-items [put]
func (h *EstimateHandler) ReplaceLineItems(c *gin.Context) {
	var items []service.LineItemInput
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	estimate, err := h.estimateService.ReplaceLineItems(c.Request.Context(), c.Param("id"), items, c.GetString("userID"))
	if err != nil {
		c.JSON(estimateErrStatus(err), response.Error(estimateErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// Transition handles POST /api/estimates/:id/transition
// @Summary      Change estimate status
// @Description  Moves the estimate to a new workflow status, validating the transition and its preconditions
// @Tags         estimates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true  "Estimate ID"
// @Param        payload  body      transitionRequest  true  "Target status and optional comment"
// @Success      200      {object}  response.Response{data=service.EstimateResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/estimates/{id}/transition [post]
func (h *EstimateHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	estimate, err := h.estimateService.ChangeStatus(c.Request.Context(), c.Param("id"), req.TargetStatus, req.Comment, c.GetString("userID"))
	if err != nil {
		c.JSON(estimateErrStatus(err), response.Error(estimateErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// ConfirmPrepayment handles POST /api/estimates/:id/confirm-prepayment
// @Summary      Confirm prepayment
// @Description  Marks the estimate's required deposit as received, unblocking the move to work-in-progress
// @Tags         estimates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=service.EstimateResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/estimates/{id}/confirm-prepayment [post]
func (h *EstimateHandler) ConfirmPrepayment(c *gin.Context) {
	estimate, err := h.estimateService.ConfirmPrepayment(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(estimateErrStatus(err), response.Error(estimateErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// Duplicate handles POST /api/estimates/:id/duplicate
// @Summary      Duplicate estimate
// @Description  Copies the estimate into a fresh editable draft with the next version number
// @Tags         estimates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      201  {object}  response.Response{data=service.EstimateResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/estimates/{id}/duplicate [post]
func (h *EstimateHandler) Duplicate(c *gin.Context) {
	estimate, err := h.estimateService.Duplicate(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(estimateErrStatus(err), response.Error(estimateErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, estimate))
}

// History handles GET /api/estimates/:id/history
// @Summary      Estimate history
// @Description  Returns the append-only change log for an estimate, newest first
// @Tags         estimates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=[]service.HistoryEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/estimates/{id}/history [get]
func (h *EstimateHandler) History(c *gin.Context) {
	entries, err := h.estimateService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// DownloadPDF handles GET /api/estimates/:id/pdf
// @Summary      Download estimate PDF
// @Description  Renders the estimate as a PDF document for sending to the client
// @Tags         estimates
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/estimates/{id}/pdf [get]
func (h *EstimateHandler) DownloadPDF(c *gin.Context) {
	data, fileName, err := h.pdfService.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", data)
}

// CreatePayment handles POST /api/estimates/:id/payments
// @Summary      Record payment
// @Description  Records a pending payment against the estimate; it affects balances only once confirmed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Estimate ID"
// @Param        payload  body      service.CreatePaymentRequest  true  "Payment Payload"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/estimates/{id}/payments [post]
func (h *EstimateHandler) CreatePayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), c.Param("id"), req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments handles GET /api/estimates/:id/payments
// @Summary      List payments
// @Description  Returns all payments recorded against the estimate
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Estimate ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/estimates/{id}/payments [get]
func (h *EstimateHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// PublicView handles GET /public/estimates/:token
// @Summary      Public estimate view
// @Description  Client-facing read of an estimate by its share token; first access flips a sent estimate to viewed
// @Tags         estimates
// @Produce      json
// @Param        token  path      string  true  "Public share token"
// @Success      200    {object}  response.Response{data=service.EstimateResponse}
// @Failure      404    {object}  response.Response
// @Router       /public/estimates/{token} [get]
func (h *EstimateHandler) PublicView(c *gin.Context) {
	estimate, err := h.estimateService.MarkViewed(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Estimate not found"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, estimate))
}

// estimateErrStatus maps service errors to HTTP status codes
func estimateErrStatus(err error) int {
	var transitionErr *workflow.TransitionError
	switch {
	case errors.As(err, &transitionErr), errors.Is(err, service.ErrEstimateLocked):
		return http.StatusConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
