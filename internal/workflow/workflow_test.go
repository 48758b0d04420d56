package workflow

import (
	"errors"
	"testing"

	"estimator/internal/model"

	"github.com/shopspring/decimal"
)

func TestAllowedTransitions(t *testing.T) {
	statuses := []string{
		model.StatusDraft, model.StatusSent, model.StatusViewed, model.StatusApproved,
		model.StatusPendingPrepayment, model.StatusPrepaymentReceived, model.StatusInProgress,
		model.StatusCompleted, model.StatusClosed, model.StatusRejected, model.StatusConverted,
	}
	for _, s := range statuses {
		if _, ok := AllowedTransitions[s]; !ok {
			t.Errorf("status %q has no entry in the transition table", s)
		}
	}

	for _, terminal := range []string{model.StatusClosed, model.StatusConverted} {
		if got := AvailableTransitions(terminal); len(got) != 0 {
			t.Errorf("terminal status %q has outgoing transitions %v", terminal, got)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name     string
		estimate model.Estimate
		target   string
		wantErr  bool
	}{
		{
			name:     "draft to sent",
			estimate: model.Estimate{Status: model.StatusDraft},
			target:   model.StatusSent,
		},
		{
			name:     "draft cannot skip to approved",
			estimate: model.Estimate{Status: model.StatusDraft},
			target:   model.StatusApproved,
			wantErr:  true,
		},
		{
			name:     "rejected can be reworked into draft",
			estimate: model.Estimate{Status: model.StatusRejected},
			target:   model.StatusDraft,
		},
		{
			name:     "closed is terminal",
			estimate: model.Estimate{Status: model.StatusClosed},
			target:   model.StatusDraft,
			wantErr:  true,
		},
		{
			name:     "unknown status",
			estimate: model.Estimate{Status: "archived"},
			target:   model.StatusDraft,
			wantErr:  true,
		},
		{
			name: "approved to in_progress with payment terms set",
			estimate: model.Estimate{
				Status:           model.StatusApproved,
				PaymentMethod:    model.MethodCash,
				PaymentRecipient: "Ivan Petrov",
			},
			target: model.StatusInProgress,
		},
		{
			name: "work cannot start without a payment method",
			estimate: model.Estimate{
				Status:           model.StatusApproved,
				PaymentRecipient: "Ivan Petrov",
			},
			target:  model.StatusInProgress,
			wantErr: true,
		},
		{
			name: "work cannot start without a recipient",
			estimate: model.Estimate{
				Status:        model.StatusApproved,
				PaymentMethod: model.MethodCash,
			},
			target:  model.StatusInProgress,
			wantErr: true,
		},
		{
			name: "deposit requires confirmed prepayment before work",
			estimate: model.Estimate{
				Status:           model.StatusApproved,
				PaymentMethod:    model.MethodCash,
				PaymentRecipient: "Ivan Petrov",
				DepositPct:       decimal.NewFromInt(30),
			},
			target:  model.StatusInProgress,
			wantErr: true,
		},
		{
			name: "confirmed prepayment unblocks work",
			estimate: model.Estimate{
				Status:              model.StatusApproved,
				PaymentMethod:       model.MethodCash,
				PaymentRecipient:    "Ivan Petrov",
				DepositPct:          decimal.NewFromInt(30),
				PrepaymentConfirmed: true,
			},
			target: model.StatusInProgress,
		},
		{
			name: "prepayment_received requires payment terms",
			estimate: model.Estimate{
				Status: model.StatusPendingPrepayment,
			},
			target:  model.StatusPrepaymentReceived,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(&tt.estimate, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected a transition error, got nil")
				}
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Fatalf("expected *TransitionError, got %T", err)
				}
				if te.From != tt.estimate.Status || te.To != tt.target {
					t.Errorf("error carries From=%q To=%q, want %q -> %q", te.From, te.To, tt.estimate.Status, tt.target)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEditable(t *testing.T) {
	editable := map[string]bool{
		model.StatusDraft:    true,
		model.StatusSent:     true,
		model.StatusViewed:   false,
		model.StatusApproved: false,
		model.StatusClosed:   false,
	}
	for status, want := range editable {
		if got := Editable(status); got != want {
			t.Errorf("Editable(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestAvailableTransitionsIsACopy(t *testing.T) {
	got := AvailableTransitions(model.StatusDraft)
	if len(got) == 0 {
		t.Fatal("draft has no available transitions")
	}
	got[0] = "mutated"
	if AllowedTransitions[model.StatusDraft][0] == "mutated" {
		t.Error("AvailableTransitions leaked the underlying table slice")
	}
}
