package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"estimator/internal/model"
	"estimator/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment validation errors (user-correctable).
var (
	ErrNonPositiveAmount  = errors.New("payment amount must be greater than zero")
	ErrAlreadyRefunded    = errors.New("payment is already refunded")
	ErrRefundNotConfirmed = errors.New("only confirmed payments can be refunded")
)

// --- DTOs ---

type CreatePaymentRequest struct {
	Amount     string `json:"amount" binding:"required"`
	Currency   string `json:"currency"`
	Method     string `json:"method"`
	Recipient  string `json:"recipient"`
	Reference  string `json:"reference"`
	ReceiptURL string `json:"receipt_url"`
	Fees       string `json:"fees"`
}

type RefundPaymentRequest struct {
	Reason string `json:"reason"`
}

type PaymentResponse struct {
	ID          string  `json:"id"`
	EstimateID  string  `json:"estimate_id"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Method      string  `json:"method"`
	Recipient   string  `json:"recipient"`
	Reference   string  `json:"reference"`
	ReceiptURL  string  `json:"receipt_url"`
	Status      string  `json:"status"`
	Verified    bool    `json:"verified"`
	VerifiedBy  *string `json:"verified_by"`
	Fees        string  `json:"fees"`
	GrossAmount string  `json:"gross_amount"`
	NetAmount   string  `json:"net_amount"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

type PaymentService interface {
	Create(ctx context.Context, estimateID string, req CreatePaymentRequest, actorID string) (PaymentResponse, error)
	Confirm(ctx context.Context, paymentID, actorID string) (PaymentResponse, error)
	Refund(ctx context.Context, paymentID, reason, actorID string) (PaymentResponse, error)
	ListByEstimate(ctx context.Context, estimateID string) ([]PaymentResponse, error)
}

type paymentService struct {
	paymentRepo  repository.PaymentRepository
	estimateRepo repository.EstimateRepository
	financeRepo  repository.FinanceRepository
	historyRepo  repository.HistoryRepository
	txManager    repository.TransactionManager
	notifier     NotificationService
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	estimateRepo repository.EstimateRepository,
	financeRepo repository.FinanceRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	notifier NotificationService,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		estimateRepo: estimateRepo,
		financeRepo:  financeRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		notifier:     notifier,
	}
}

// --- Implementation ---

// Create records a pending payment. No balance check against the remaining
// due is enforced — overpayment is surfaced to the operator, not blocked.
func (s *paymentService) Create(ctx context.Context, estimateID string, req CreatePaymentRequest, actorID string) (PaymentResponse, error) {
	eid, err := uuid.Parse(estimateID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.GreaterThan(decimal.Zero) {
		return PaymentResponse{}, ErrNonPositiveAmount
	}

	fees := decimal.Zero
	if req.Fees != "" {
		fees, err = decimal.NewFromString(req.Fees)
		if err != nil {
			return PaymentResponse{}, fmt.Errorf("invalid fees: %w", err)
		}
		if fees.IsNegative() {
			return PaymentResponse{}, errors.New("fees cannot be negative")
		}
	}

	estimate, err := s.estimateRepo.FindByID(ctx, eid)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("estimate not found: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = estimate.Currency
	}

	payment := model.Payment{
		EstimateID:  eid,
		Amount:      amount,
		Currency:    currency,
		Method:      req.Method,
		Recipient:   req.Recipient,
		Reference:   req.Reference,
		ReceiptURL:  req.ReceiptURL,
		Status:      model.PaymentPending,
		Fees:        fees,
		GrossAmount: amount,
		NetAmount:   amount.Sub(fees),
	}
	if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
		payment.CreatedBy = &actor
	}

	if err := s.paymentRepo.Create(ctx, &payment); err != nil {
		return PaymentResponse{}, fmt.Errorf("failed to create payment: %w", err)
	}

	return toPaymentResponse(payment), nil
}

// Confirm marks a payment as received, exactly once. Confirming an already
// confirmed payment is a no-op returning the existing row: this is the guard
// against double-clicks and network retries, and the finance-entry existence
// check below is the second guard covering partial-failure retries.
func (s *paymentService) Confirm(ctx context.Context, paymentID, actorID string) (PaymentResponse, error) {
	pid, err := uuid.Parse(paymentID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}

	var payment *model.Payment
	var estimate *model.Estimate
	alreadyConfirmed := false

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		payment, findErr = s.paymentRepo.FindByID(txCtx, pid)
		if findErr != nil {
			return fmt.Errorf("payment not found: %w", findErr)
		}

		if payment.Status == model.PaymentConfirmed {
			alreadyConfirmed = true
			return nil
		}

		payment.Status = model.PaymentConfirmed
		payment.Verified = true
		if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
			payment.VerifiedBy = &actor
		}
		if updateErr := s.paymentRepo.Update(txCtx, payment); updateErr != nil {
			return fmt.Errorf("failed to confirm payment: %w", updateErr)
		}

		exists, existsErr := s.financeRepo.ExistsForPayment(txCtx, payment.ID, model.EntryIncome)
		if existsErr != nil {
			return fmt.Errorf("failed to check ledger: %w", existsErr)
		}
		if !exists {
			entry := model.FinanceEntry{
				Type:        model.EntryIncome,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Source:      model.SourceEstimatePayment,
				Description: "Estimate payment",
				EstimateID:  &payment.EstimateID,
				PaymentID:   &payment.ID,
				Fees:        payment.Fees,
				GrossAmount: payment.Amount,
				NetAmount:   payment.Amount.Sub(payment.Fees),
				CreatedBy:   payment.VerifiedBy,
				CreatedAt:   time.Now(),
			}
			if createErr := s.financeRepo.Create(txCtx, &entry); createErr != nil {
				return fmt.Errorf("failed to create ledger entry: %w", createErr)
			}
		}

		var recErr error
		estimate, recErr = s.recomputePaidAmount(txCtx, payment.EstimateID)
		return recErr
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	if alreadyConfirmed {
		return toPaymentResponse(*payment), nil
	}

	if estimate != nil {
		s.notifyCreatorOfPayment(ctx, estimate, actorID,
			fmt.Sprintf("Payment confirmed — %s", estimate.EstimateNumber),
			fmt.Sprintf("%s %s for estimate %s", payment.Amount.StringFixed(2), payment.Currency, estimate.ClientName))
	}

	return toPaymentResponse(*payment), nil
}

// Refund reverses a confirmed payment in full: the payment row becomes
// refunded and a storno expense entry cancels the income without deleting
// history. Refunds are never partial. A payment that was never confirmed
// cannot travel this path.
func (s *paymentService) Refund(ctx context.Context, paymentID, reason, actorID string) (PaymentResponse, error) {
	pid, err := uuid.Parse(paymentID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("invalid payment id: %w", err)
	}

	var payment *model.Payment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		payment, findErr = s.paymentRepo.FindByID(txCtx, pid)
		if findErr != nil {
			return fmt.Errorf("payment not found: %w", findErr)
		}

		switch payment.Status {
		case model.PaymentRefunded:
			return ErrAlreadyRefunded
		case model.PaymentPending:
			return ErrRefundNotConfirmed
		}

		payment.Status = model.PaymentRefunded
		if updateErr := s.paymentRepo.Update(txCtx, payment); updateErr != nil {
			return fmt.Errorf("failed to refund payment: %w", updateErr)
		}

		exists, existsErr := s.financeRepo.ExistsForPayment(txCtx, payment.ID, model.EntryExpense)
		if existsErr != nil {
			return fmt.Errorf("failed to check ledger: %w", existsErr)
		}
		if !exists {
			description := "Refund"
			if reason != "" {
				description = "Refund: " + reason
			}
			entry := model.FinanceEntry{
				Type:        model.EntryExpense,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Source:      model.SourceRefund,
				Description: description,
				EstimateID:  &payment.EstimateID,
				PaymentID:   &payment.ID,
				Reason:      reason,
				GrossAmount: payment.Amount,
				NetAmount:   payment.Amount,
				CreatedAt:   time.Now(),
			}
			if actor, parseErr := uuid.Parse(actorID); parseErr == nil {
				entry.CreatedBy = &actor
			}
			if createErr := s.financeRepo.Create(txCtx, &entry); createErr != nil {
				return fmt.Errorf("failed to create storno entry: %w", createErr)
			}
		}

		_, recErr := s.recomputePaidAmount(txCtx, payment.EstimateID)
		return recErr
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	s.appendRefundHistory(ctx, payment, reason, actorID)

	return toPaymentResponse(*payment), nil
}

func (s *paymentService) ListByEstimate(ctx context.Context, estimateID string) ([]PaymentResponse, error) {
	eid, err := uuid.Parse(estimateID)
	if err != nil {
		return nil, fmt.Errorf("invalid estimate id: %w", err)
	}

	payments, err := s.paymentRepo.ListByEstimate(ctx, eid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	return result, nil
}

// --- Helpers ---

// recomputePaidAmount refreshes the estimate's paid amount as the sum of its
// confirmed payments. Always a full recompute from source rows, which keeps
// the figure correct no matter how many times confirm/refund is retried.
func (s *paymentService) recomputePaidAmount(ctx context.Context, estimateID uuid.UUID) (*model.Estimate, error) {
	paid, err := s.paymentRepo.SumConfirmed(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum confirmed payments: %w", err)
	}

	estimate, err := s.estimateRepo.FindByID(ctx, estimateID)
	if err != nil {
		return nil, fmt.Errorf("estimate not found: %w", err)
	}
	estimate.PaidAmount = paid
	if err := s.estimateRepo.Update(ctx, estimate); err != nil {
		return nil, fmt.Errorf("failed to update paid amount: %w", err)
	}
	return estimate, nil
}

func (s *paymentService) appendRefundHistory(ctx context.Context, payment *model.Payment, reason, actorID string) {
	entry := model.EstimateHistory{
		EstimateID: payment.EstimateID,
		Action:     model.ActionPaymentRefunded,
		OldValues:  jsonSnapshot(map[string]any{"status": model.PaymentConfirmed, "amount": payment.Amount.StringFixed(2)}),
		NewValues:  jsonSnapshot(map[string]any{"status": model.PaymentRefunded, "reason": reason}),
		ChangedAt:  time.Now(),
	}
	if actor, err := uuid.Parse(actorID); err == nil {
		entry.ChangedBy = &actor
	}
	if err := s.historyRepo.Append(ctx, &entry); err != nil {
		log.Printf("history append failed (payment=%s refund): %v", payment.ID, err)
	}
}

func (s *paymentService) notifyCreatorOfPayment(ctx context.Context, e *model.Estimate, actorID, title, message string) {
	if s.notifier == nil || e.CreatedBy == nil {
		return
	}
	if e.CreatedBy.String() == actorID {
		return
	}
	s.notifier.Notify(ctx, *e.CreatedBy, model.NotifyPaymentConfirmed, title, message, "/estimator/"+e.ID.String())
}

// --- Mapping ---

func toPaymentResponse(p model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID.String(),
		EstimateID:  p.EstimateID.String(),
		Amount:      p.Amount.StringFixed(2),
		Currency:    p.Currency,
		Method:      p.Method,
		Recipient:   p.Recipient,
		Reference:   p.Reference,
		ReceiptURL:  p.ReceiptURL,
		Status:      p.Status,
		Verified:    p.Verified,
		Fees:        p.Fees.StringFixed(2),
		GrossAmount: p.GrossAmount.StringFixed(2),
		NetAmount:   p.NetAmount.StringFixed(2),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.VerifiedBy != nil {
		v := p.VerifiedBy.String()
		resp.VerifiedBy = &v
	}
	return resp
}
