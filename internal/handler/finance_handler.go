package handler

import (
	"net/http"

	"estimator/internal/middleware"
	"estimator/internal/service"
	"estimator/pkg/pagination"
	"estimator/pkg/response"

	"github.com/gin-gonic/gin"
)

type FinanceHandler struct {
	financeService service.FinanceService
}

func NewFinanceHandler(financeService service.FinanceService) *FinanceHandler {
	return &FinanceHandler{financeService: financeService}
}

func (h *FinanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	finance := router.Group("/api/finance")
	finance.Use(middleware.RequirePermission("finance.read"))
	{
		finance.GET("/entries", h.ListEntries)
		finance.GET("/summary", h.Summary)
	}
}

// ListEntries handles GET /api/finance/entries
// @Summary      List finance entries
// @Description  Retrieves the money ledger, filterable by entry type, source and estimate
// @Tags         finance
// @Produce      json
// @Security     BearerAuth
// @Param        type         query     string  false  "income or expense"
// @Param        source       query     string  false  "estimate_payment, refund or manual"
// @Param        estimate_id  query     string  false  "Filter by estimate"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/finance/entries [get]
func (h *FinanceHandler) ListEntries(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.financeService.List(c.Request.Context(), service.FinanceEntryFilter{
		Type:       c.Query("type"),
		Source:     c.Query("source"),
		EstimateID: c.Query("estimate_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch finance entries"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// Summary handles GET /api/finance/summary
// @Summary      Finance summary
// @Description  Aggregates confirmed income and expenses per period (day, week, month or year)
// @Tags         finance
// @Produce      json
// @Security     BearerAuth
// @Param        group_by    query     string  false  "day, week, month (default) or year"
// @Param        start_date  query     string  false  "YYYY-MM-DD (default: one year ago)"
// @Param        end_date    query     string  false  "YYYY-MM-DD (default: today)"
// @Success      200         {object}  response.Response{data=[]service.FinanceSummaryResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, err := h.financeService.Summary(
		c.Request.Context(),
		c.DefaultQuery("group_by", "month"),
		c.Query("start_date"),
		c.Query("end_date"),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
