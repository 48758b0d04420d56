package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"estimator/internal/model"
	"estimator/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type estimateTestEnv struct {
	estimateRepo *fakeEstimateRepo
	historyRepo  *fakeHistoryRepo
	notifier     *fakeNotifier
	svc          EstimateService
}

func newEstimateTestEnv() *estimateTestEnv {
	env := &estimateTestEnv{
		estimateRepo: newFakeEstimateRepo(),
		historyRepo:  &fakeHistoryRepo{},
		notifier:     &fakeNotifier{},
	}
	env.svc = NewEstimateService(env.estimateRepo, env.historyRepo, fakeTxManager{}, env.notifier)
	return env
}

func (env *estimateTestEnv) seed(t *testing.T, e model.Estimate) *model.Estimate {
	t.Helper()
	if e.EstimateNumber == "" {
		e.EstimateNumber = "EST-20260801-00001"
	}
	if e.Currency == "" {
		e.Currency = "RUB_PMR"
	}
	if e.Version == 0 {
		e.Version = 1
	}
	if e.Status == "" {
		e.Status = model.StatusDraft
	}
	if err := env.estimateRepo.Create(context.Background(), &e); err != nil {
		t.Fatalf("seed estimate: %v", err)
	}
	return &e
}

func TestEstimateCreate(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()

	resp, err := env.svc.Create(ctx, CreateEstimateRequest{ClientName: "Sidorova"}, uuid.NewString())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if resp.Status != model.StatusDraft {
		t.Errorf("Status = %q, want draft", resp.Status)
	}
	if resp.Version != 1 {
		t.Errorf("Version = %d, want 1", resp.Version)
	}
	if resp.Currency != "RUB_PMR" {
		t.Errorf("Currency = %q, want the default RUB_PMR", resp.Currency)
	}
	if !strings.HasPrefix(resp.EstimateNumber, "EST-") || !strings.HasSuffix(resp.EstimateNumber, "-00001") {
		t.Errorf("EstimateNumber = %q, want EST-<date>-00001", resp.EstimateNumber)
	}
	if resp.PublicToken == "" {
		t.Error("public token was not generated")
	}
	if resp.ValidUntil == nil {
		t.Error("valid_until default was not applied")
	}
}

func TestReplaceLineItemsRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	estimate := env.seed(t, model.Estimate{GlobalTaxPct: decimal.NewFromInt(20)})

	resp, err := env.svc.ReplaceLineItems(ctx, estimate.ID.String(), []LineItemInput{
		{Description: "Cable VVG 3x2.5", Unit: "m", Quantity: "100", UnitPrice: "15"},
		{Description: "Socket installation", ItemType: model.ItemTypeLabor, Quantity: "10", UnitPrice: "0", LaborHours: "5", LaborRate: "100"},
	}, uuid.NewString())
	if err != nil {
		t.Fatalf("ReplaceLineItems: %v", err)
	}

	if len(resp.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(resp.LineItems))
	}
	if resp.LineItems[0].LineTotal != "1500.00" {
		t.Errorf("first line total = %s, want 1500.00", resp.LineItems[0].LineTotal)
	}
	if resp.LineItems[1].LineTotal != "500.00" {
		t.Errorf("second line total = %s, want 500.00", resp.LineItems[1].LineTotal)
	}
	if resp.Subtotal != "2000.00" {
		t.Errorf("Subtotal = %s, want 2000.00", resp.Subtotal)
	}
	if resp.TaxAmount != "400.00" {
		t.Errorf("TaxAmount = %s, want 400.00", resp.TaxAmount)
	}
	if resp.Total != "2400.00" {
		t.Errorf("Total = %s, want 2400.00", resp.Total)
	}

	// Positions default to input order, one-based.
	if resp.LineItems[0].Position != 1 || resp.LineItems[1].Position != 2 {
		t.Errorf("positions = %d,%d, want 1,2", resp.LineItems[0].Position, resp.LineItems[1].Position)
	}
}

func TestReplaceLineItemsOnLockedEstimate(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	estimate := env.seed(t, model.Estimate{Status: model.StatusApproved, Locked: true})

	_, err := env.svc.ReplaceLineItems(ctx, estimate.ID.String(), []LineItemInput{
		{Description: "Cable", Quantity: "1", UnitPrice: "10"},
	}, uuid.NewString())
	if !errors.Is(err, ErrEstimateLocked) {
		t.Errorf("err = %v, want ErrEstimateLocked", err)
	}
}

func TestUpdateLockedEstimate(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	estimate := env.seed(t, model.Estimate{Status: model.StatusApproved, Locked: true})

	t.Run("priced fields are frozen", func(t *testing.T) {
		deposit := "30"
		_, err := env.svc.Update(ctx, estimate.ID.String(), UpdateEstimateRequest{DepositPct: &deposit}, uuid.NewString())
		if !errors.Is(err, ErrEstimateLocked) {
			t.Errorf("err = %v, want ErrEstimateLocked", err)
		}
	})

	t.Run("payment terms stay mutable", func(t *testing.T) {
		method := model.MethodBankTransfer
		recipient := "Ivan Petrov"
		resp, err := env.svc.Update(ctx, estimate.ID.String(), UpdateEstimateRequest{
			PaymentMethod:    &method,
			PaymentRecipient: &recipient,
		}, uuid.NewString())
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if resp.PaymentMethod != model.MethodBankTransfer {
			t.Errorf("PaymentMethod = %q, want bank_transfer", resp.PaymentMethod)
		}
		if resp.PaymentRecipient != "Ivan Petrov" {
			t.Errorf("PaymentRecipient = %q", resp.PaymentRecipient)
		}
	})
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("draft to sent stamps sent_at and stays editable", func(t *testing.T) {
		env := newEstimateTestEnv()
		estimate := env.seed(t, model.Estimate{})

		resp, err := env.svc.ChangeStatus(ctx, estimate.ID.String(), model.StatusSent, "", uuid.NewString())
		if err != nil {
			t.Fatalf("ChangeStatus: %v", err)
		}
		if resp.Status != model.StatusSent {
			t.Errorf("Status = %q, want sent", resp.Status)
		}
		if resp.SentAt == nil {
			t.Error("SentAt was not stamped")
		}
		if resp.Locked {
			t.Error("a sent estimate must remain editable")
		}
	})

	t.Run("sent to approved locks the estimate", func(t *testing.T) {
		env := newEstimateTestEnv()
		estimate := env.seed(t, model.Estimate{Status: model.StatusSent})

		resp, err := env.svc.ChangeStatus(ctx, estimate.ID.String(), model.StatusApproved, "", uuid.NewString())
		if err != nil {
			t.Fatalf("ChangeStatus: %v", err)
		}
		if !resp.Locked {
			t.Error("approval must lock priced content")
		}
		if resp.ApprovedAt == nil {
			t.Error("ApprovedAt was not stamped")
		}
	})

	t.Run("illegal transition surfaces a transition error", func(t *testing.T) {
		env := newEstimateTestEnv()
		estimate := env.seed(t, model.Estimate{})

		_, err := env.svc.ChangeStatus(ctx, estimate.ID.String(), model.StatusCompleted, "", uuid.NewString())
		var te *workflow.TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("err = %v, want *workflow.TransitionError", err)
		}
	})

	t.Run("history row and notification are produced", func(t *testing.T) {
		env := newEstimateTestEnv()
		creator := uuid.New()
		estimate := env.seed(t, model.Estimate{CreatedBy: &creator})

		if _, err := env.svc.ChangeStatus(ctx, estimate.ID.String(), model.StatusSent, "sent to client", uuid.NewString()); err != nil {
			t.Fatalf("ChangeStatus: %v", err)
		}

		history, err := env.historyRepo.ListByEstimate(ctx, estimate.ID)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("history rows = %d, want 1", len(history))
		}
		if history[0].Action != model.ActionStatusChange {
			t.Errorf("action = %q, want status_change", history[0].Action)
		}
		if history[0].Comment != "sent to client" {
			t.Errorf("comment = %q", history[0].Comment)
		}

		if len(env.notifier.sent) != 1 {
			t.Fatalf("notifications = %d, want 1", len(env.notifier.sent))
		}
		if env.notifier.sent[0].UserID != creator {
			t.Error("notification went to the wrong user")
		}
	})

	t.Run("self-notification is suppressed", func(t *testing.T) {
		env := newEstimateTestEnv()
		creator := uuid.New()
		estimate := env.seed(t, model.Estimate{CreatedBy: &creator})

		if _, err := env.svc.ChangeStatus(ctx, estimate.ID.String(), model.StatusSent, "", creator.String()); err != nil {
			t.Fatalf("ChangeStatus: %v", err)
		}
		if len(env.notifier.sent) != 0 {
			t.Errorf("notifications = %d, want 0 when the actor is the creator", len(env.notifier.sent))
		}
	})
}

func TestConfirmPrepaymentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	estimate := env.seed(t, model.Estimate{Status: model.StatusPendingPrepayment})
	actor := uuid.NewString()

	first, err := env.svc.ConfirmPrepayment(ctx, estimate.ID.String(), actor)
	if err != nil {
		t.Fatalf("first ConfirmPrepayment: %v", err)
	}
	if !first.PrepaymentConfirmed {
		t.Error("prepayment was not confirmed")
	}
	if first.PrepaymentConfirmedAt == nil {
		t.Error("confirmation timestamp missing")
	}

	if _, err := env.svc.ConfirmPrepayment(ctx, estimate.ID.String(), actor); err != nil {
		t.Fatalf("second ConfirmPrepayment: %v", err)
	}

	history, err := env.historyRepo.ListByEstimate(ctx, estimate.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history rows = %d, want 1: the repeat confirm is a no-op", len(history))
	}
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	source := env.seed(t, model.Estimate{
		Status:       model.StatusApproved,
		Locked:       true,
		GlobalTaxPct: decimal.NewFromInt(20),
		PaidAmount:   decimal.NewFromInt(500),
	})
	if err := env.estimateRepo.ReplaceLineItems(ctx, source.ID, []model.LineItem{
		{Position: 1, ItemType: model.ItemTypeMaterial, Description: "Cable", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(15)},
	}); err != nil {
		t.Fatalf("seed line items: %v", err)
	}

	resp, err := env.svc.Duplicate(ctx, source.ID.String(), uuid.NewString())
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}

	if resp.ID == source.ID.String() {
		t.Error("duplicate reused the source row")
	}
	if resp.EstimateNumber == source.EstimateNumber {
		t.Error("duplicate reused the source estimate number")
	}
	if resp.Version != 2 {
		t.Errorf("Version = %d, want 2", resp.Version)
	}
	if resp.Status != model.StatusDraft {
		t.Errorf("Status = %q, want draft", resp.Status)
	}
	if resp.Locked {
		t.Error("duplicate must start unlocked")
	}
	if resp.PaidAmount != "0.00" {
		t.Errorf("PaidAmount = %s, want 0.00: payments do not travel", resp.PaidAmount)
	}
	if resp.PublicToken == source.PublicToken {
		t.Error("duplicate reused the source public token")
	}
	if len(resp.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(resp.LineItems))
	}
	if resp.Total != "1800.00" {
		t.Errorf("Total = %s, want 1800.00 (1500 + 20%% tax)", resp.Total)
	}

	// Source row is untouched.
	stored, err := env.estimateRepo.FindByID(ctx, source.ID)
	if err != nil {
		t.Fatalf("reload source: %v", err)
	}
	if stored.Status != model.StatusApproved || !stored.Locked {
		t.Error("duplicating mutated the source estimate")
	}
}

func TestMarkViewed(t *testing.T) {
	ctx := context.Background()
	env := newEstimateTestEnv()
	env.seed(t, model.Estimate{Status: model.StatusSent, PublicToken: "tok-123"})

	resp, err := env.svc.MarkViewed(ctx, "tok-123")
	if err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if resp.Status != model.StatusViewed {
		t.Errorf("Status = %q, want viewed", resp.Status)
	}
	if resp.ViewedAt == nil {
		t.Error("ViewedAt was not stamped")
	}

	// A second open keeps the first timestamp.
	again, err := env.svc.MarkViewed(ctx, "tok-123")
	if err != nil {
		t.Fatalf("second MarkViewed: %v", err)
	}
	if again.ViewedAt == nil || *again.ViewedAt != *resp.ViewedAt {
		t.Error("repeat view overwrote the original viewed_at")
	}

	t.Run("unknown token", func(t *testing.T) {
		if _, err := env.svc.MarkViewed(ctx, "missing"); err == nil {
			t.Fatal("expected an error for an unknown token")
		}
	})

	t.Run("later statuses are not demoted", func(t *testing.T) {
		env.seed(t, model.Estimate{Status: model.StatusApproved, PublicToken: "tok-456"})
		resp, err := env.svc.MarkViewed(ctx, "tok-456")
		if err != nil {
			t.Fatalf("MarkViewed: %v", err)
		}
		if resp.Status != model.StatusApproved {
			t.Errorf("Status = %q, want approved to survive a public view", resp.Status)
		}
	})
}
