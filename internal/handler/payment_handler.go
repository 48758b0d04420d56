package handler

import (
	"errors"
	"net/http"

	"estimator/internal/middleware"
	"estimator/internal/service"
	"estimator/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RegisterRoutes binds the payment lifecycle endpoints. Creation and listing
// live under the estimate routes; confirm and refund operate on the payment
// itself.
func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	payments.Use(middleware.RequirePermission("payments.confirm"))
	{
		payments.POST("/:id/confirm", h.Confirm)
		payments.POST("/:id/refund", h.Refund)
	}
}

// Confirm handles POST /api/payments/:id/confirm
// @Summary      Confirm payment
// @Description  Confirms a pending payment, posts the income ledger entry and updates the estimate's paid amount. Safe to retry.
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id}/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	payment, err := h.paymentService.Confirm(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(paymentErrStatus(err), response.Error(paymentErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// Refund handles POST /api/payments/:id/refund
// @Summary      Refund payment
// @Description  Refunds a confirmed payment, posting a compensating expense entry and recomputing the estimate's paid amount
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Payment ID"
// @Param        payload  body      service.RefundPaymentRequest  false  "Refund reason"
// @Success      200      {object}  response.Response{data=service.PaymentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	// Reason is optional; an empty body is fine
	var req service.RefundPaymentRequest
	_ = c.ShouldBindJSON(&req)

	payment, err := h.paymentService.Refund(c.Request.Context(), c.Param("id"), req.Reason, c.GetString("userID"))
	if err != nil {
		c.JSON(paymentErrStatus(err), response.Error(paymentErrStatus(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// paymentErrStatus maps payment service errors to HTTP status codes
func paymentErrStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyRefunded), errors.Is(err, service.ErrRefundNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
