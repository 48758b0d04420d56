package service

import (
	"context"
	"errors"
	"testing"

	"estimator/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paymentTestEnv struct {
	estimateRepo *fakeEstimateRepo
	paymentRepo  *fakePaymentRepo
	financeRepo  *fakeFinanceRepo
	historyRepo  *fakeHistoryRepo
	notifier     *fakeNotifier
	svc          PaymentService
}

func newPaymentTestEnv() *paymentTestEnv {
	env := &paymentTestEnv{
		estimateRepo: newFakeEstimateRepo(),
		paymentRepo:  newFakePaymentRepo(),
		financeRepo:  &fakeFinanceRepo{},
		historyRepo:  &fakeHistoryRepo{},
		notifier:     &fakeNotifier{},
	}
	env.svc = NewPaymentService(env.paymentRepo, env.estimateRepo, env.financeRepo,
		env.historyRepo, fakeTxManager{}, env.notifier)
	return env
}

func (env *paymentTestEnv) seedEstimate(t *testing.T, creator *uuid.UUID) *model.Estimate {
	t.Helper()
	estimate := &model.Estimate{
		EstimateNumber: "EST-20260901-00001",
		ClientName:     "Orlov",
		Currency:       "RUB_PMR",
		Status:         model.StatusInProgress,
		Total:          decimal.NewFromInt(1000),
		CreatedBy:      creator,
	}
	if err := env.estimateRepo.Create(context.Background(), estimate); err != nil {
		t.Fatalf("seed estimate: %v", err)
	}
	return estimate
}

func (env *paymentTestEnv) seedPayment(t *testing.T, estimateID uuid.UUID, amount string, status string) *model.Payment {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amount, err)
	}
	payment := &model.Payment{
		EstimateID:  estimateID,
		Amount:      amt,
		Currency:    "RUB_PMR",
		Status:      status,
		GrossAmount: amt,
		NetAmount:   amt,
	}
	if err := env.paymentRepo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func TestPaymentCreate(t *testing.T) {
	ctx := context.Background()
	actor := uuid.NewString()

	t.Run("inherits estimate currency", func(t *testing.T) {
		env := newPaymentTestEnv()
		estimate := env.seedEstimate(t, nil)

		resp, err := env.svc.Create(ctx, estimate.ID.String(), CreatePaymentRequest{Amount: "400"}, actor)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if resp.Currency != "RUB_PMR" {
			t.Errorf("Currency = %q, want RUB_PMR", resp.Currency)
		}
		if resp.Status != model.PaymentPending {
			t.Errorf("Status = %q, want pending", resp.Status)
		}
		if resp.Amount != "400.00" {
			t.Errorf("Amount = %q, want 400.00", resp.Amount)
		}
	})

	t.Run("fees reduce the net amount", func(t *testing.T) {
		env := newPaymentTestEnv()
		estimate := env.seedEstimate(t, nil)

		resp, err := env.svc.Create(ctx, estimate.ID.String(), CreatePaymentRequest{Amount: "400", Fees: "12.50"}, actor)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if resp.NetAmount != "387.50" {
			t.Errorf("NetAmount = %q, want 387.50", resp.NetAmount)
		}
		if resp.GrossAmount != "400.00" {
			t.Errorf("GrossAmount = %q, want 400.00", resp.GrossAmount)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		env := newPaymentTestEnv()
		estimate := env.seedEstimate(t, nil)

		for _, amount := range []string{"0", "-10"} {
			_, err := env.svc.Create(ctx, estimate.ID.String(), CreatePaymentRequest{Amount: amount}, actor)
			if !errors.Is(err, ErrNonPositiveAmount) {
				t.Errorf("Create(amount=%s) err = %v, want ErrNonPositiveAmount", amount, err)
			}
		}
	})

	t.Run("rejects unknown estimate", func(t *testing.T) {
		env := newPaymentTestEnv()
		_, err := env.svc.Create(ctx, uuid.NewString(), CreatePaymentRequest{Amount: "100"}, actor)
		if err == nil {
			t.Fatal("expected an error for a missing estimate")
		}
	})
}

func TestPaymentConfirmIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newPaymentTestEnv()
	actor := uuid.NewString()
	estimate := env.seedEstimate(t, nil)
	payment := env.seedPayment(t, estimate.ID, "400", model.PaymentPending)

	first, err := env.svc.Confirm(ctx, payment.ID.String(), actor)
	if err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	if first.Status != model.PaymentConfirmed {
		t.Errorf("Status = %q, want confirmed", first.Status)
	}
	if !first.Verified {
		t.Error("payment should be verified after confirmation")
	}

	second, err := env.svc.Confirm(ctx, payment.ID.String(), actor)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if second.Status != model.PaymentConfirmed {
		t.Errorf("Status after retry = %q, want confirmed", second.Status)
	}

	income := env.financeRepo.byType(model.EntryIncome)
	if len(income) != 1 {
		t.Fatalf("ledger has %d income entries, want exactly 1", len(income))
	}
	if income[0].Source != model.SourceEstimatePayment {
		t.Errorf("entry source = %q, want estimate_payment", income[0].Source)
	}
	if income[0].PaymentID == nil || *income[0].PaymentID != payment.ID {
		t.Error("income entry is not linked to the payment")
	}

	stored, err := env.estimateRepo.FindByID(ctx, estimate.ID)
	if err != nil {
		t.Fatalf("reload estimate: %v", err)
	}
	if stored.PaidAmount.StringFixed(2) != "400.00" {
		t.Errorf("PaidAmount = %s, want 400.00", stored.PaidAmount.StringFixed(2))
	}
}

func TestPaymentConfirmSkipsExistingLedgerEntry(t *testing.T) {
	ctx := context.Background()
	env := newPaymentTestEnv()
	estimate := env.seedEstimate(t, nil)
	payment := env.seedPayment(t, estimate.ID, "400", model.PaymentPending)

	// Ledger entry from a previous attempt already exists.
	pid := payment.ID
	eid := estimate.ID
	if err := env.financeRepo.Create(ctx, &model.FinanceEntry{
		Type:       model.EntryIncome,
		Amount:     payment.Amount,
		Source:     model.SourceEstimatePayment,
		PaymentID:  &pid,
		EstimateID: &eid,
	}); err != nil {
		t.Fatalf("seed ledger entry: %v", err)
	}

	if _, err := env.svc.Confirm(ctx, payment.ID.String(), uuid.NewString()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if income := env.financeRepo.byType(model.EntryIncome); len(income) != 1 {
		t.Errorf("ledger has %d income entries, want 1", len(income))
	}
}

func TestPaymentConfirmNotifiesCreator(t *testing.T) {
	ctx := context.Background()
	env := newPaymentTestEnv()
	creator := uuid.New()
	estimate := env.seedEstimate(t, &creator)
	payment := env.seedPayment(t, estimate.ID, "250", model.PaymentPending)

	// Confirmed by someone other than the creator.
	if _, err := env.svc.Confirm(ctx, payment.ID.String(), uuid.NewString()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(env.notifier.sent))
	}
	if env.notifier.sent[0].UserID != creator {
		t.Error("notification went to the wrong user")
	}
	if env.notifier.sent[0].Type != model.NotifyPaymentConfirmed {
		t.Errorf("notification type = %q, want payment_confirmed", env.notifier.sent[0].Type)
	}
}

func TestPaymentRefund(t *testing.T) {
	ctx := context.Background()
	env := newPaymentTestEnv()
	actor := uuid.NewString()
	estimate := env.seedEstimate(t, nil)
	payment := env.seedPayment(t, estimate.ID, "400", model.PaymentPending)

	if _, err := env.svc.Confirm(ctx, payment.ID.String(), actor); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	resp, err := env.svc.Refund(ctx, payment.ID.String(), "client cancelled", actor)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if resp.Status != model.PaymentRefunded {
		t.Errorf("Status = %q, want refunded", resp.Status)
	}

	// The income row survives; a storno expense cancels it.
	if income := env.financeRepo.byType(model.EntryIncome); len(income) != 1 {
		t.Errorf("income entries = %d, want 1", len(income))
	}
	expense := env.financeRepo.byType(model.EntryExpense)
	if len(expense) != 1 {
		t.Fatalf("expense entries = %d, want 1", len(expense))
	}
	if expense[0].Source != model.SourceRefund {
		t.Errorf("storno source = %q, want refund", expense[0].Source)
	}
	if expense[0].Amount.StringFixed(2) != "400.00" {
		t.Errorf("storno amount = %s, want the full 400.00", expense[0].Amount.StringFixed(2))
	}
	if expense[0].Reason != "client cancelled" {
		t.Errorf("storno reason = %q", expense[0].Reason)
	}

	stored, err := env.estimateRepo.FindByID(ctx, estimate.ID)
	if err != nil {
		t.Fatalf("reload estimate: %v", err)
	}
	if !stored.PaidAmount.IsZero() {
		t.Errorf("PaidAmount = %s after refund, want 0", stored.PaidAmount)
	}

	history, err := env.historyRepo.ListByEstimate(ctx, estimate.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	found := false
	for _, h := range history {
		if h.Action == model.ActionPaymentRefunded {
			found = true
		}
	}
	if !found {
		t.Error("refund left no payment_refunded history row")
	}
}

func TestPaymentRefundGuards(t *testing.T) {
	ctx := context.Background()
	actor := uuid.NewString()

	t.Run("pending payment cannot be refunded", func(t *testing.T) {
		env := newPaymentTestEnv()
		estimate := env.seedEstimate(t, nil)
		payment := env.seedPayment(t, estimate.ID, "400", model.PaymentPending)

		_, err := env.svc.Refund(ctx, payment.ID.String(), "", actor)
		if !errors.Is(err, ErrRefundNotConfirmed) {
			t.Errorf("err = %v, want ErrRefundNotConfirmed", err)
		}
	})

	t.Run("double refund is rejected", func(t *testing.T) {
		env := newPaymentTestEnv()
		estimate := env.seedEstimate(t, nil)
		payment := env.seedPayment(t, estimate.ID, "400", model.PaymentPending)

		if _, err := env.svc.Confirm(ctx, payment.ID.String(), actor); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if _, err := env.svc.Refund(ctx, payment.ID.String(), "", actor); err != nil {
			t.Fatalf("first Refund: %v", err)
		}

		_, err := env.svc.Refund(ctx, payment.ID.String(), "", actor)
		if !errors.Is(err, ErrAlreadyRefunded) {
			t.Errorf("err = %v, want ErrAlreadyRefunded", err)
		}

		if expense := env.financeRepo.byType(model.EntryExpense); len(expense) != 1 {
			t.Errorf("expense entries = %d, want 1", len(expense))
		}
	})
}
