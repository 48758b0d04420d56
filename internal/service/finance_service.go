package service

import (
	"context"
	"fmt"
	"time"

	"estimator/internal/model"
	"estimator/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type FinanceEntryResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Source      string  `json:"source"`
	Description string  `json:"description"`
	EstimateID  *string `json:"estimate_id"`
	PaymentID   *string `json:"payment_id"`
	Reason      string  `json:"reason"`
	Fees        string  `json:"fees"`
	GrossAmount string  `json:"gross_amount"`
	NetAmount   string  `json:"net_amount"`
	CreatedAt   string  `json:"created_at"`
}

type FinanceEntryFilter struct {
	Type       string
	Source     string
	EstimateID string
	Page       int
	Limit      int
}

type FinanceSummaryResponse struct {
	Period       string  `json:"period"`
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
}

// --- Interface ---

type FinanceService interface {
	List(ctx context.Context, filter FinanceEntryFilter) ([]FinanceEntryResponse, int64, error)
	Summary(ctx context.Context, groupBy, startDate, endDate string) ([]FinanceSummaryResponse, error)
}

type financeService struct {
	financeRepo repository.FinanceRepository
}

func NewFinanceService(financeRepo repository.FinanceRepository) FinanceService {
	return &financeService{financeRepo: financeRepo}
}

// --- Implementation ---

func (s *financeService) List(ctx context.Context, filter FinanceEntryFilter) ([]FinanceEntryResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.FinanceListFilter{
		Type:   filter.Type,
		Source: filter.Source,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.EstimateID != "" {
		eid, err := uuid.Parse(filter.EstimateID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid estimate id: %w", err)
		}
		repoFilter.EstimateID = &eid
	}

	entries, total, err := s.financeRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch finance entries: %w", err)
	}

	result := make([]FinanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toFinanceEntryResponse(e))
	}
	return result, total, nil
}

func (s *financeService) Summary(ctx context.Context, groupBy, startDate, endDate string) ([]FinanceSummaryResponse, error) {
	switch groupBy {
	case "day", "week", "month", "year":
	case "":
		groupBy = "month"
	default:
		return nil, fmt.Errorf("invalid group_by %q: must be day, week, month or year", groupBy)
	}

	now := time.Now()
	if endDate == "" {
		endDate = now.Format("2006-01-02")
	}
	if startDate == "" {
		startDate = now.AddDate(-1, 0, 0).Format("2006-01-02")
	}

	rows, err := s.financeRepo.Summary(ctx, groupBy, startDate, endDate)
	if err != nil {
		return nil, err
	}

	result := make([]FinanceSummaryResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, FinanceSummaryResponse{
			Period:       r.Period,
			TotalIncome:  r.TotalIncome,
			TotalExpense: r.TotalExpense,
			Net:          r.Net,
		})
	}
	return result, nil
}

// --- Mapping ---

func toFinanceEntryResponse(e model.FinanceEntry) FinanceEntryResponse {
	resp := FinanceEntryResponse{
		ID:          e.ID.String(),
		Type:        e.Type,
		Amount:      e.Amount.StringFixed(2),
		Currency:    e.Currency,
		Source:      e.Source,
		Description: e.Description,
		Reason:      e.Reason,
		Fees:        e.Fees.StringFixed(2),
		GrossAmount: e.GrossAmount.StringFixed(2),
		NetAmount:   e.NetAmount.StringFixed(2),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.EstimateID != nil {
		v := e.EstimateID.String()
		resp.EstimateID = &v
	}
	if e.PaymentID != nil {
		v := e.PaymentID.String()
		resp.PaymentID = &v
	}
	return resp
}
