package service

import (
	"context"
	"testing"

	"estimator/internal/model"

	"github.com/google/uuid"
)

type requestTestEnv struct {
	requestRepo  *fakeRequestRepo
	estimateRepo *fakeEstimateRepo
	userRepo     *fakeUserRepo
	notifier     *fakeNotifier
	svc          RequestService
}

func newRequestTestEnv() *requestTestEnv {
	env := &requestTestEnv{
		requestRepo:  newFakeRequestRepo(),
		estimateRepo: newFakeEstimateRepo(),
		userRepo:     &fakeUserRepo{},
		notifier:     &fakeNotifier{},
	}
	estimateSvc := NewEstimateService(env.estimateRepo, &fakeHistoryRepo{}, fakeTxManager{}, nil)
	env.svc = NewRequestService(env.requestRepo, estimateSvc, env.userRepo, env.notifier)
	return env
}

func TestRequestCreateNotifiesManagers(t *testing.T) {
	ctx := context.Background()
	env := newRequestTestEnv()

	seedUser := func(role string) uuid.UUID {
		u := model.User{Username: role + "-user", Role: role}
		if err := env.userRepo.Create(ctx, &u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		return u.ID
	}
	adminID := seedUser(model.RoleAdmin)
	managerID := seedUser(model.RoleManager)
	seedUser(model.RoleTechnician)

	resp, err := env.svc.Create(ctx, CreateRequestInput{
		ClientName:  "Kozlov",
		ClientPhone: "+373-777-12345",
		Message:     "Rewire two rooms",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Status != model.RequestNew {
		t.Errorf("Status = %q, want new", resp.Status)
	}

	// Technicians are not pinged about incoming leads.
	if len(env.notifier.sent) != 2 {
		t.Fatalf("notifications = %d, want 2 (admin and manager)", len(env.notifier.sent))
	}
	notified := map[uuid.UUID]bool{}
	for _, n := range env.notifier.sent {
		if n.Type != model.NotifyNewRequest {
			t.Errorf("notification type = %q, want new_request", n.Type)
		}
		notified[n.UserID] = true
	}
	if !notified[adminID] || !notified[managerID] {
		t.Error("admin and manager were not both notified")
	}
}

func TestRequestStatusUpdate(t *testing.T) {
	ctx := context.Background()
	env := newRequestTestEnv()

	created, err := env.svc.Create(ctx, CreateRequestInput{ClientName: "Kozlov", ClientPhone: "123"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := env.svc.UpdateStatus(ctx, created.ID, UpdateRequestStatusInput{Status: model.RequestInReview})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != model.RequestInReview {
		t.Errorf("Status = %q, want in_review", updated.Status)
	}
}

func TestRequestConvert(t *testing.T) {
	ctx := context.Background()
	env := newRequestTestEnv()
	actor := uuid.NewString()

	created, err := env.svc.Create(ctx, CreateRequestInput{
		ClientName:  "Kozlov",
		ClientPhone: "+373-777-12345",
		ClientEmail: "kozlov@example.com",
		Address:     "Tiraspol, Lenina 10",
		Message:     "Rewire two rooms",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	estimate, err := env.svc.Convert(ctx, created.ID, actor)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if estimate.Status != model.StatusDraft {
		t.Errorf("estimate status = %q, want draft", estimate.Status)
	}
	if estimate.ClientName != "Kozlov" || estimate.ClientPhone != "+373-777-12345" {
		t.Error("client snapshot did not travel to the estimate")
	}
	if estimate.ClientAddress != "Tiraspol, Lenina 10" {
		t.Errorf("ClientAddress = %q", estimate.ClientAddress)
	}
	if estimate.ClientComment != "Rewire two rooms" {
		t.Errorf("ClientComment = %q", estimate.ClientComment)
	}

	// The request now points at its estimate and cannot convert again.
	rid, _ := uuid.Parse(created.ID)
	stored, err := env.requestRepo.FindByID(ctx, rid)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if stored.Status != model.RequestConverted {
		t.Errorf("request status = %q, want converted", stored.Status)
	}
	if stored.EstimateID == nil || stored.EstimateID.String() != estimate.ID {
		t.Error("request is not linked to the created estimate")
	}

	if _, err := env.svc.Convert(ctx, created.ID, actor); err == nil {
		t.Fatal("second Convert succeeded, want rejection")
	}
	if _, err := env.svc.UpdateStatus(ctx, created.ID, UpdateRequestStatusInput{Status: model.RequestInReview}); err == nil {
		t.Fatal("status change after conversion succeeded, want rejection")
	}
}
