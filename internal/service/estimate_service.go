package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"estimator/internal/model"
	"estimator/internal/pricing"
	"estimator/internal/repository"
	"estimator/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEstimateLocked is returned for priced-content mutations on an estimate
// whose status has left the editable set. Duplicating the estimate into a new
// version is the only sanctioned way to change agreed terms.
var ErrEstimateLocked = errors.New("estimate is locked: duplicate it into a new version to edit priced content")

// --- DTOs ---

type CreateEstimateRequest struct {
	Title         string `json:"title"`
	ClientName    string `json:"client_name" binding:"required"`
	ClientPhone   string `json:"client_phone"`
	ClientEmail   string `json:"client_email" binding:"omitempty,email"`
	ClientAddress string `json:"client_address"`
	ClientComment string `json:"client_comment"`
	Currency      string `json:"currency"`
	RequestID     string `json:"request_id"`
	ProjectID     string `json:"project_id"`
	ValidUntil    string `json:"valid_until"` // YYYY-MM-DD, defaults to +30 days
	Notes         string `json:"notes"`
}

// UpdateEstimateRequest carries partial edits. Decimal fields travel as
// strings, same as the rest of the money API surface. Payment-terms fields
// stay mutable on a locked estimate; everything else requires editable status.
type UpdateEstimateRequest struct {
	Title         *string `json:"title"`
	ClientName    *string `json:"client_name"`
	ClientPhone   *string `json:"client_phone"`
	ClientEmail   *string `json:"client_email"`
	ClientAddress *string `json:"client_address"`
	ClientComment *string `json:"client_comment"`
	Notes         *string `json:"notes"`
	ValidUntil    *string `json:"valid_until"`

	GlobalDiscountPct    *string `json:"global_discount_pct"`
	GlobalDiscountAmount *string `json:"global_discount_amount"`
	GlobalTaxPct         *string `json:"global_tax_pct"`
	ExtraFees            *string `json:"extra_fees"`
	ExtraFeesDescription *string `json:"extra_fees_description"`
	DepositPct           *string `json:"deposit_pct"`
	DepositAmount        *string `json:"deposit_amount"`

	PaymentMethod    *string `json:"payment_method"`
	PaymentRecipient *string `json:"payment_recipient"`
}

type LineItemInput struct {
	Position    int    `json:"position"`
	ItemType    string `json:"item_type" binding:"omitempty,oneof=material labor service other"`
	ItemCode    string `json:"item_code"`
	Description string `json:"description" binding:"required"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
	LaborHours  string `json:"labor_hours"`
	LaborRate   string `json:"labor_rate"`
	CostPrice   string `json:"cost_price"`
	MarkupPct   string `json:"markup_pct"`
	DiscountPct string `json:"discount_pct"`
	TaxPct      string `json:"tax_pct"`
}

type LineItemResponse struct {
	ID          string `json:"id"`
	Position    int    `json:"position"`
	ItemType    string `json:"item_type"`
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LaborHours  string `json:"labor_hours"`
	LaborRate   string `json:"labor_rate"`
	MarkupPct   string `json:"markup_pct"`
	DiscountPct string `json:"discount_pct"`
	TaxPct      string `json:"tax_pct"`
	LineTotal   string `json:"line_total"`
}

type EstimateResponse struct {
	ID             string `json:"id"`
	EstimateNumber string `json:"estimate_number"`
	Title          string `json:"title"`
	Version        int    `json:"version"`
	Status         string `json:"status"`
	Locked         bool   `json:"locked"`

	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	ClientEmail   string `json:"client_email"`
	ClientAddress string `json:"client_address"`
	ClientComment string `json:"client_comment"`

	Currency             string `json:"currency"`
	GlobalDiscountPct    string `json:"global_discount_pct"`
	GlobalDiscountAmount string `json:"global_discount_amount"`
	GlobalTaxPct         string `json:"global_tax_pct"`
	ExtraFees            string `json:"extra_fees"`
	ExtraFeesDescription string `json:"extra_fees_description"`
	DepositPct           string `json:"deposit_pct"`
	DepositAmount        string `json:"deposit_amount"`

	PaymentMethod         string  `json:"payment_method"`
	PaymentRecipient      string  `json:"payment_recipient"`
	PrepaymentConfirmed   bool    `json:"prepayment_confirmed"`
	PrepaymentConfirmedAt *string `json:"prepayment_confirmed_at"`

	Subtotal   string `json:"subtotal"`
	TaxAmount  string `json:"tax_amount"`
	Total      string `json:"total"`
	DepositDue string `json:"deposit_due"`
	BalanceDue string `json:"balance_due"`
	PaidAmount string `json:"paid_amount"`

	ValidUntil  *string `json:"valid_until"`
	SentAt      *string `json:"sent_at"`
	ViewedAt    *string `json:"viewed_at"`
	ApprovedAt  *string `json:"approved_at"`
	PublicToken string  `json:"public_token"`
	Notes       string  `json:"notes"`
	CreatedBy   *string `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`

	AvailableTransitions []string           `json:"available_transitions"`
	LineItems            []LineItemResponse `json:"line_items,omitempty"`
}

type HistoryEntryResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	ChangedBy string `json:"changed_by"`
	Actor     string `json:"actor"`
	OldValues string `json:"old_values"`
	NewValues string `json:"new_values"`
	Comment   string `json:"comment"`
	ChangedAt string `json:"changed_at"`
}

type EstimateFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// --- Interface ---

type EstimateService interface {
	Create(ctx context.Context, req CreateEstimateRequest, actorID string) (EstimateResponse, error)
	Get(ctx context.Context, id string) (EstimateResponse, error)
	List(ctx context.Context, filter EstimateFilter) ([]EstimateResponse, int64, error)
	Update(ctx context.Context, id string, req UpdateEstimateRequest, actorID string) (EstimateResponse, error)
	ReplaceLineItems(ctx context.Context, id string, items []LineItemInput, actorID string) (EstimateResponse, error)
	ChangeStatus(ctx context.Context, id, targetStatus, comment, actorID string) (EstimateResponse, error)
	ConfirmPrepayment(ctx context.Context, id, actorID string) (EstimateResponse, error)
	Duplicate(ctx context.Context, id, actorID string) (EstimateResponse, error)
	MarkViewed(ctx context.Context, publicToken string) (EstimateResponse, error)
	History(ctx context.Context, id string) ([]HistoryEntryResponse, error)
}

type estimateService struct {
	estimateRepo repository.EstimateRepository
	historyRepo  repository.HistoryRepository
	txManager    repository.TransactionManager
	notifier     NotificationService
}

func NewEstimateService(
	estimateRepo repository.EstimateRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	notifier NotificationService,
) EstimateService {
	return &estimateService{
		estimateRepo: estimateRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		notifier:     notifier,
	}
}

// --- Implementation ---

func (s *estimateService) Create(ctx context.Context, req CreateEstimateRequest, actorID string) (EstimateResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = "RUB_PMR"
	}

	validUntil := time.Now().AddDate(0, 0, 30)
	if req.ValidUntil != "" {
		parsed, err := time.Parse("2006-01-02", req.ValidUntil)
		if err != nil {
			return EstimateResponse{}, fmt.Errorf("invalid valid_until: %w", err)
		}
		validUntil = parsed
	}

	number, err := s.generateEstimateNumber(ctx)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to generate estimate number: %w", err)
	}

	estimate := model.Estimate{
		EstimateNumber: number,
		Title:          req.Title,
		Version:        1,
		ClientName:     req.ClientName,
		ClientPhone:    req.ClientPhone,
		ClientEmail:    req.ClientEmail,
		ClientAddress:  req.ClientAddress,
		ClientComment:  req.ClientComment,
		Currency:       currency,
		Status:         model.StatusDraft,
		ValidUntil:     &validUntil,
		PublicToken:    newPublicToken(),
		Notes:          req.Notes,
	}

	if req.RequestID != "" {
		rid, err := uuid.Parse(req.RequestID)
		if err != nil {
			return EstimateResponse{}, fmt.Errorf("invalid request_id: %w", err)
		}
		estimate.RequestID = &rid
	}
	if req.ProjectID != "" {
		pid, err := uuid.Parse(req.ProjectID)
		if err != nil {
			return EstimateResponse{}, fmt.Errorf("invalid project_id: %w", err)
		}
		estimate.ProjectID = &pid
	}
	if actor, err := uuid.Parse(actorID); err == nil {
		estimate.CreatedBy = &actor
	}

	if err := s.estimateRepo.Create(ctx, &estimate); err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to create estimate: %w", err)
	}

	return toEstimateResponse(estimate, nil), nil
}

func (s *estimateService) Get(ctx context.Context, id string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	estimate, err := s.estimateRepo.FindByIDWithItems(ctx, estimateID)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("estimate not found: %w", err)
	}

	return toEstimateResponse(*estimate, estimate.LineItems), nil
}

func (s *estimateService) List(ctx context.Context, filter EstimateFilter) ([]EstimateResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	estimates, total, err := s.estimateRepo.List(ctx, repository.EstimateListFilter{
		Status: filter.Status,
		Search: filter.Search,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch estimates: %w", err)
	}

	result := make([]EstimateResponse, 0, len(estimates))
	for _, e := range estimates {
		result = append(result, toEstimateResponse(e, nil))
	}
	return result, total, nil
}

func (s *estimateService) Update(ctx context.Context, id string, req UpdateEstimateRequest, actorID string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	var updated *model.Estimate
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, findErr := s.estimateRepo.FindByID(txCtx, estimateID)
		if findErr != nil {
			return fmt.Errorf("estimate not found: %w", findErr)
		}

		touchesPriced := req.Title != nil || req.ClientName != nil || req.ClientPhone != nil ||
			req.ClientEmail != nil || req.ClientAddress != nil || req.ClientComment != nil ||
			req.Notes != nil || req.ValidUntil != nil ||
			req.GlobalDiscountPct != nil || req.GlobalDiscountAmount != nil ||
			req.GlobalTaxPct != nil || req.ExtraFees != nil || req.ExtraFeesDescription != nil ||
			req.DepositPct != nil || req.DepositAmount != nil

		// Payment terms remain mutable on a locked estimate — a locked quote
		// can still be getting paid. Everything else needs editable status.
		if touchesPriced && !workflow.Editable(estimate.Status) {
			return ErrEstimateLocked
		}

		if req.Title != nil {
			estimate.Title = *req.Title
		}
		if req.ClientName != nil {
			if *req.ClientName == "" {
				return errors.New("client_name cannot be empty")
			}
			estimate.ClientName = *req.ClientName
		}
		if req.ClientPhone != nil {
			estimate.ClientPhone = *req.ClientPhone
		}
		if req.ClientEmail != nil {
			estimate.ClientEmail = *req.ClientEmail
		}
		if req.ClientAddress != nil {
			estimate.ClientAddress = *req.ClientAddress
		}
		if req.ClientComment != nil {
			estimate.ClientComment = *req.ClientComment
		}
		if req.Notes != nil {
			estimate.Notes = *req.Notes
		}
		if req.ValidUntil != nil {
			parsed, parseErr := time.Parse("2006-01-02", *req.ValidUntil)
			if parseErr != nil {
				return fmt.Errorf("invalid valid_until: %w", parseErr)
			}
			estimate.ValidUntil = &parsed
		}
		if req.ExtraFeesDescription != nil {
			estimate.ExtraFeesDescription = *req.ExtraFeesDescription
		}
		if req.PaymentMethod != nil {
			estimate.PaymentMethod = *req.PaymentMethod
		}
		if req.PaymentRecipient != nil {
			estimate.PaymentRecipient = *req.PaymentRecipient
		}

		decimalFields := []struct {
			raw  *string
			dst  *decimal.Decimal
			name string
		}{
			{req.GlobalDiscountPct, &estimate.GlobalDiscountPct, "global_discount_pct"},
			{req.GlobalDiscountAmount, &estimate.GlobalDiscountAmount, "global_discount_amount"},
			{req.GlobalTaxPct, &estimate.GlobalTaxPct, "global_tax_pct"},
			{req.ExtraFees, &estimate.ExtraFees, "extra_fees"},
			{req.DepositPct, &estimate.DepositPct, "deposit_pct"},
			{req.DepositAmount, &estimate.DepositAmount, "deposit_amount"},
		}
		for _, f := range decimalFields {
			if f.raw == nil {
				continue
			}
			value, parseErr := decimal.NewFromString(*f.raw)
			if parseErr != nil {
				return fmt.Errorf("invalid %s: %w", f.name, parseErr)
			}
			if value.IsNegative() {
				return fmt.Errorf("%s cannot be negative", f.name)
			}
			*f.dst = value
		}

		items, itemsErr := s.estimateRepo.LineItems(txCtx, estimateID)
		if itemsErr != nil {
			return fmt.Errorf("failed to load line items: %w", itemsErr)
		}
		recomputeTotals(estimate, items)

		if updateErr := s.estimateRepo.Update(txCtx, estimate); updateErr != nil {
			return fmt.Errorf("failed to update estimate: %w", updateErr)
		}
		updated = estimate
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	return toEstimateResponse(*updated, nil), nil
}

func (s *estimateService) ReplaceLineItems(ctx context.Context, id string, inputs []LineItemInput, actorID string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	items := make([]model.LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, buildErr := buildLineItem(in, i)
		if buildErr != nil {
			return EstimateResponse{}, buildErr
		}
		items = append(items, item)
	}

	var updated *model.Estimate
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, findErr := s.estimateRepo.FindByID(txCtx, estimateID)
		if findErr != nil {
			return fmt.Errorf("estimate not found: %w", findErr)
		}
		if !workflow.Editable(estimate.Status) {
			return ErrEstimateLocked
		}

		recomputeTotals(estimate, items)

		if replaceErr := s.estimateRepo.ReplaceLineItems(txCtx, estimateID, items); replaceErr != nil {
			return fmt.Errorf("failed to replace line items: %w", replaceErr)
		}
		if updateErr := s.estimateRepo.Update(txCtx, estimate); updateErr != nil {
			return fmt.Errorf("failed to update totals: %w", updateErr)
		}
		updated = estimate
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	s.appendHistory(ctx, estimateID, model.ActionLineItemsChanged, actorID,
		jsonSnapshot(map[string]any{"count": len(items)}), "", "")

	return toEstimateResponse(*updated, items), nil
}

// ChangeStatus re-validates against the freshly loaded status inside the
// transaction — a verdict computed from a stale render is never trusted. The
// status update and its timestamp consequences commit atomically; history and
// notification are best-effort afterwards.
func (s *estimateService) ChangeStatus(ctx context.Context, id, targetStatus, comment, actorID string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	var updated *model.Estimate
	var oldStatus string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		estimate, findErr := s.estimateRepo.FindByID(txCtx, estimateID)
		if findErr != nil {
			return fmt.Errorf("estimate not found: %w", findErr)
		}

		if validErr := workflow.ValidateTransition(estimate, targetStatus); validErr != nil {
			return validErr
		}

		oldStatus = estimate.Status
		now := time.Now()
		estimate.Status = targetStatus
		estimate.Locked = !workflow.Editable(targetStatus)

		switch targetStatus {
		case model.StatusSent:
			estimate.SentAt = &now
		case model.StatusApproved:
			estimate.ApprovedAt = &now
		case model.StatusPrepaymentReceived:
			estimate.PrepaymentConfirmed = true
			estimate.PrepaymentConfirmedAt = &now
			if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
				estimate.PrepaymentConfirmedBy = &actor
			}
		}

		if updateErr := s.estimateRepo.Update(txCtx, estimate); updateErr != nil {
			return fmt.Errorf("failed to update status: %w", updateErr)
		}
		updated = estimate
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	s.appendHistory(ctx, estimateID, model.ActionStatusChange, actorID,
		jsonSnapshot(map[string]any{"status": oldStatus}),
		jsonSnapshot(map[string]any{"status": targetStatus}),
		comment)

	s.notifyCreator(ctx, updated, actorID, model.NotifyStatusChange,
		fmt.Sprintf("%s: %s → %s", updated.EstimateNumber, oldStatus, targetStatus),
		fmt.Sprintf("Estimate for %s", updated.ClientName))

	return toEstimateResponse(*updated, nil), nil
}

func (s *estimateService) ConfirmPrepayment(ctx context.Context, id, actorID string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	estimate, err := s.estimateRepo.FindByID(ctx, estimateID)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("estimate not found: %w", err)
	}

	// Confirming twice is a no-op, same contract as payment confirmation.
	if estimate.PrepaymentConfirmed {
		return toEstimateResponse(*estimate, nil), nil
	}

	now := time.Now()
	estimate.PrepaymentConfirmed = true
	estimate.PrepaymentConfirmedAt = &now
	if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
		estimate.PrepaymentConfirmedBy = &actor
	}

	if err := s.estimateRepo.Update(ctx, estimate); err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to confirm prepayment: %w", err)
	}

	s.appendHistory(ctx, estimateID, model.ActionPrepaymentConfirmed, actorID,
		jsonSnapshot(map[string]any{"prepayment_confirmed": false}),
		jsonSnapshot(map[string]any{"prepayment_confirmed": true}), "")

	return toEstimateResponse(*estimate, nil), nil
}

// Duplicate clones a (typically locked) estimate into a fresh draft version.
// The source row is never mutated.
func (s *estimateService) Duplicate(ctx context.Context, id, actorID string) (EstimateResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	source, err := s.estimateRepo.FindByIDWithItems(ctx, estimateID)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("estimate not found: %w", err)
	}

	maxVersion, err := s.estimateRepo.MaxVersion(ctx, source.ProjectID, source.EstimateNumber)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to resolve version: %w", err)
	}

	number, err := s.generateEstimateNumber(ctx)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to generate estimate number: %w", err)
	}

	validUntil := time.Now().AddDate(0, 0, 30)
	clone := model.Estimate{
		EstimateNumber: number,
		Title:          source.Title,
		Version:        maxVersion + 1,
		RequestID:      source.RequestID,
		ProjectID:      source.ProjectID,

		ClientName:    source.ClientName,
		ClientPhone:   source.ClientPhone,
		ClientEmail:   source.ClientEmail,
		ClientAddress: source.ClientAddress,
		ClientComment: source.ClientComment,

		Currency:             source.Currency,
		GlobalDiscountPct:    source.GlobalDiscountPct,
		GlobalDiscountAmount: source.GlobalDiscountAmount,
		GlobalTaxPct:         source.GlobalTaxPct,
		ExtraFees:            source.ExtraFees,
		ExtraFeesDescription: source.ExtraFeesDescription,
		DepositPct:           source.DepositPct,
		DepositAmount:        source.DepositAmount,

		PaymentMethod:    source.PaymentMethod,
		PaymentRecipient: source.PaymentRecipient,

		Status:      model.StatusDraft,
		Locked:      false,
		ValidUntil:  &validUntil,
		PublicToken: newPublicToken(),
		Notes:       source.Notes,
	}
	if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
		clone.CreatedBy = &actor
	}

	items := make([]model.LineItem, 0, len(source.LineItems))
	for _, item := range source.LineItems {
		dup := item
		dup.ID = uuid.Nil
		dup.EstimateID = uuid.Nil
		items = append(items, dup)
	}
	recomputeTotals(&clone, items)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.estimateRepo.Create(txCtx, &clone); createErr != nil {
			return fmt.Errorf("failed to create duplicate: %w", createErr)
		}
		if len(items) > 0 {
			if itemsErr := s.estimateRepo.ReplaceLineItems(txCtx, clone.ID, items); itemsErr != nil {
				return fmt.Errorf("failed to copy line items: %w", itemsErr)
			}
		}
		return nil
	})
	if err != nil {
		return EstimateResponse{}, err
	}

	s.appendHistory(ctx, clone.ID, model.ActionEstimateDuplicated, actorID,
		jsonSnapshot(map[string]any{"source_estimate_id": source.ID.String(), "source_version": source.Version}),
		jsonSnapshot(map[string]any{"version": clone.Version}), "")

	return toEstimateResponse(clone, items), nil
}

// MarkViewed is the public-link side channel: the client opening the estimate
// stamps viewed_at and, when the estimate was merely sent, surfaces that as
// the viewed status. This is not an operator transition and bypasses the
// transition table on purpose.
func (s *estimateService) MarkViewed(ctx context.Context, publicToken string) (EstimateResponse, error) {
	estimate, err := s.estimateRepo.FindByPublicToken(ctx, publicToken)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("estimate not found: %w", err)
	}

	changed := false
	if estimate.ViewedAt == nil {
		now := time.Now()
		estimate.ViewedAt = &now
		changed = true
	}
	if estimate.Status == model.StatusSent {
		estimate.Status = model.StatusViewed
		changed = true
	}
	if changed {
		if err := s.estimateRepo.Update(ctx, estimate); err != nil {
			return EstimateResponse{}, fmt.Errorf("failed to mark viewed: %w", err)
		}
	}

	return toEstimateResponse(*estimate, estimate.LineItems), nil
}

func (s *estimateService) History(ctx context.Context, id string) ([]HistoryEntryResponse, error) {
	estimateID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid estimate id: %w", err)
	}

	entries, err := s.historyRepo.ListByEstimate(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	result := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		actor := "System"
		changedBy := ""
		if e.Actor != nil {
			actor = e.Actor.Username
		}
		if e.ChangedBy != nil {
			changedBy = e.ChangedBy.String()
		}
		result = append(result, HistoryEntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			ChangedBy: changedBy,
			Actor:     actor,
			OldValues: e.OldValues,
			NewValues: e.NewValues,
			Comment:   e.Comment,
			ChangedAt: e.ChangedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

// --- Helpers ---

func (s *estimateService) generateEstimateNumber(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "EST-" + today + "-"

	count, err := s.estimateRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// appendHistory writes an audit row after the primary mutation has committed.
// A failed insert is logged, never surfaced: the primary action succeeded and
// must be reported as such.
func (s *estimateService) appendHistory(ctx context.Context, estimateID uuid.UUID, action, actorID, oldValues, newValues, comment string) {
	entry := model.EstimateHistory{
		EstimateID: estimateID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
		Comment:    comment,
		ChangedAt:  time.Now(),
	}
	if actor, err := uuid.Parse(actorID); err == nil {
		entry.ChangedBy = &actor
	}
	if err := s.historyRepo.Append(ctx, &entry); err != nil {
		log.Printf("history append failed (estimate=%s action=%s): %v", estimateID, action, err)
	}
}

// notifyCreator fires a best-effort notification to the estimate's creator,
// skipping self-notification when the creator is the acting operator.
func (s *estimateService) notifyCreator(ctx context.Context, e *model.Estimate, actorID, notifType, title, message string) {
	if s.notifier == nil || e.CreatedBy == nil {
		return
	}
	if e.CreatedBy.String() == actorID {
		return
	}
	s.notifier.Notify(ctx, *e.CreatedBy, notifType, title, message, "/estimator/"+e.ID.String())
}

// recomputeTotals refreshes every line total and the estimate money block in
// one pass. Stored totals are never trusted as inputs.
func recomputeTotals(e *model.Estimate, items []model.LineItem) {
	lineTotals := make([]decimal.Decimal, 0, len(items))
	for i := range items {
		items[i].LineTotal = pricing.LineTotal(pricing.LineInput{
			Quantity:    items[i].Quantity,
			UnitPrice:   items[i].UnitPrice,
			LaborHours:  items[i].LaborHours,
			LaborRate:   items[i].LaborRate,
			MarkupPct:   items[i].MarkupPct,
			DiscountPct: items[i].DiscountPct,
			TaxPct:      items[i].TaxPct,
		})
		lineTotals = append(lineTotals, items[i].LineTotal)
	}

	totals := pricing.EstimateTotals(lineTotals, pricing.Terms{
		DiscountPct:    e.GlobalDiscountPct,
		DiscountAmount: e.GlobalDiscountAmount,
		TaxPct:         e.GlobalTaxPct,
		ExtraFees:      e.ExtraFees,
		DepositPct:     e.DepositPct,
		DepositAmount:  e.DepositAmount,
	})

	e.Subtotal = totals.Subtotal
	e.TaxAmount = totals.TaxAmount
	e.Total = totals.Total
	e.DepositDue = totals.Deposit
	e.BalanceDue = totals.BalanceDue
}

func buildLineItem(in LineItemInput, index int) (model.LineItem, error) {
	itemType := in.ItemType
	if itemType == "" {
		itemType = model.ItemTypeMaterial
	}
	position := in.Position
	if position == 0 {
		position = index + 1
	}

	item := model.LineItem{
		Position:    position,
		ItemType:    itemType,
		ItemCode:    in.ItemCode,
		Description: in.Description,
		Unit:        in.Unit,
	}

	fields := []struct {
		raw      string
		dst      *decimal.Decimal
		name     string
		required bool
	}{
		{in.Quantity, &item.Quantity, "quantity", true},
		{in.UnitPrice, &item.UnitPrice, "unit_price", true},
		{in.LaborHours, &item.LaborHours, "labor_hours", false},
		{in.LaborRate, &item.LaborRate, "labor_rate", false},
		{in.CostPrice, &item.CostPrice, "cost_price", false},
		{in.MarkupPct, &item.MarkupPct, "markup_pct", false},
		{in.DiscountPct, &item.DiscountPct, "discount_pct", false},
		{in.TaxPct, &item.TaxPct, "tax_pct", false},
	}
	for _, f := range fields {
		if f.raw == "" {
			if f.required {
				return model.LineItem{}, fmt.Errorf("%s is required", f.name)
			}
			continue
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return model.LineItem{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if value.IsNegative() {
			return model.LineItem{}, fmt.Errorf("%s cannot be negative", f.name)
		}
		*f.dst = value
	}

	return item, nil
}

func newPublicToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

func jsonSnapshot(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// --- Mapping ---

func toEstimateResponse(e model.Estimate, items []model.LineItem) EstimateResponse {
	resp := EstimateResponse{
		ID:             e.ID.String(),
		EstimateNumber: e.EstimateNumber,
		Title:          e.Title,
		Version:        e.Version,
		Status:         e.Status,
		Locked:         e.Locked,

		ClientName:    e.ClientName,
		ClientPhone:   e.ClientPhone,
		ClientEmail:   e.ClientEmail,
		ClientAddress: e.ClientAddress,
		ClientComment: e.ClientComment,

		Currency:             e.Currency,
		GlobalDiscountPct:    e.GlobalDiscountPct.StringFixed(2),
		GlobalDiscountAmount: e.GlobalDiscountAmount.StringFixed(2),
		GlobalTaxPct:         e.GlobalTaxPct.StringFixed(2),
		ExtraFees:            e.ExtraFees.StringFixed(2),
		ExtraFeesDescription: e.ExtraFeesDescription,
		DepositPct:           e.DepositPct.StringFixed(2),
		DepositAmount:        e.DepositAmount.StringFixed(2),

		PaymentMethod:       e.PaymentMethod,
		PaymentRecipient:    e.PaymentRecipient,
		PrepaymentConfirmed: e.PrepaymentConfirmed,

		Subtotal:   e.Subtotal.StringFixed(2),
		TaxAmount:  e.TaxAmount.StringFixed(2),
		Total:      e.Total.StringFixed(2),
		DepositDue: e.DepositDue.StringFixed(2),
		BalanceDue: e.BalanceDue.StringFixed(2),
		PaidAmount: e.PaidAmount.StringFixed(2),

		PublicToken: e.PublicToken,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),

		AvailableTransitions: workflow.AvailableTransitions(e.Status),
	}

	if e.PrepaymentConfirmedAt != nil {
		v := e.PrepaymentConfirmedAt.Format(time.RFC3339)
		resp.PrepaymentConfirmedAt = &v
	}
	if e.ValidUntil != nil {
		v := e.ValidUntil.Format("2006-01-02")
		resp.ValidUntil = &v
	}
	if e.SentAt != nil {
		v := e.SentAt.Format(time.RFC3339)
		resp.SentAt = &v
	}
	if e.ViewedAt != nil {
		v := e.ViewedAt.Format(time.RFC3339)
		resp.ViewedAt = &v
	}
	if e.ApprovedAt != nil {
		v := e.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if e.CreatedBy != nil {
		v := e.CreatedBy.String()
		resp.CreatedBy = &v
	}

	for _, item := range items {
		resp.LineItems = append(resp.LineItems, toLineItemResponse(item))
	}
	return resp
}

func toLineItemResponse(item model.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:          item.ID.String(),
		Position:    item.Position,
		ItemType:    item.ItemType,
		ItemCode:    item.ItemCode,
		Description: item.Description,
		Unit:        item.Unit,
		Quantity:    item.Quantity.StringFixed(2),
		UnitPrice:   item.UnitPrice.StringFixed(2),
		LaborHours:  item.LaborHours.StringFixed(2),
		LaborRate:   item.LaborRate.StringFixed(2),
		MarkupPct:   item.MarkupPct.StringFixed(2),
		DiscountPct: item.DiscountPct.StringFixed(2),
		TaxPct:      item.TaxPct.StringFixed(2),
		LineTotal:   item.LineTotal.StringFixed(2),
	}
}
