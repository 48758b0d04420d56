package service

import (
	"context"
	"strings"
	"sync"

	"estimator/internal/model"
	"estimator/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory fakes backing the service tests. They mimic the row-copy
// semantics of the real repositories: reads hand out copies, and a mutation
// is only visible after an explicit Update.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- estimates ---

type fakeEstimateRepo struct {
	mu        sync.Mutex
	estimates map[uuid.UUID]model.Estimate
	items     map[uuid.UUID][]model.LineItem
}

func newFakeEstimateRepo() *fakeEstimateRepo {
	return &fakeEstimateRepo{
		estimates: make(map[uuid.UUID]model.Estimate),
		items:     make(map[uuid.UUID][]model.LineItem),
	}
}

func (r *fakeEstimateRepo) Create(_ context.Context, e *model.Estimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.estimates[e.ID] = *e
	return nil
}

func (r *fakeEstimateRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.estimates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *fakeEstimateRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Estimate, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, _ := r.LineItems(ctx, id)
	e.LineItems = items
	return e, nil
}

func (r *fakeEstimateRepo) FindByPublicToken(_ context.Context, token string) (*model.Estimate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.estimates {
		if e.PublicToken == token {
			found := e
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEstimateRepo) List(_ context.Context, filter repository.EstimateListFilter) ([]model.Estimate, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Estimate
	for _, e := range r.estimates {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeEstimateRepo) Update(_ context.Context, e *model.Estimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.estimates[e.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.estimates[e.ID] = *e
	return nil
}

func (r *fakeEstimateRepo) CountByPrefix(_ context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.estimates {
		if strings.HasPrefix(e.EstimateNumber, prefix) {
			count++
		}
	}
	return count, nil
}

func (r *fakeEstimateRepo) MaxVersion(_ context.Context, projectID *uuid.UUID, estimateNumber string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, e := range r.estimates {
		match := false
		if projectID != nil {
			match = e.ProjectID != nil && *e.ProjectID == *projectID
		} else {
			match = e.EstimateNumber == estimateNumber
		}
		if match && e.Version > max {
			max = e.Version
		}
	}
	return max, nil
}

func (r *fakeEstimateRepo) ReplaceLineItems(_ context.Context, estimateID uuid.UUID, items []model.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]model.LineItem, len(items))
	for i, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.EstimateID = estimateID
		stored[i] = item
	}
	r.items[estimateID] = stored
	return nil
}

func (r *fakeEstimateRepo) LineItems(_ context.Context, estimateID uuid.UUID) ([]model.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[estimateID]
	out := make([]model.LineItem, len(items))
	copy(out, items)
	return out, nil
}

// --- payments ---

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]model.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.payments[p.ID] = *p
	return nil
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakePaymentRepo) ListByEstimate(_ context.Context, estimateID uuid.UUID) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for _, p := range r.payments {
		if p.EstimateID == estimateID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.payments[p.ID] = *p
	return nil
}

func (r *fakePaymentRepo) SumConfirmed(_ context.Context, estimateID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.EstimateID == estimateID && p.Status == model.PaymentConfirmed {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

// --- finance ledger ---

type fakeFinanceRepo struct {
	mu      sync.Mutex
	entries []model.FinanceEntry
}

func (r *fakeFinanceRepo) Create(_ context.Context, entry *model.FinanceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeFinanceRepo) ExistsForPayment(_ context.Context, paymentID uuid.UUID, entryType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.PaymentID != nil && *e.PaymentID == paymentID && e.Type == entryType {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFinanceRepo) List(_ context.Context, _ repository.FinanceListFilter) ([]model.FinanceEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.FinanceEntry, len(r.entries))
	copy(out, r.entries)
	return out, int64(len(out)), nil
}

func (r *fakeFinanceRepo) Summary(_ context.Context, _, _, _ string) ([]repository.FinanceSummaryRow, error) {
	return nil, nil
}

func (r *fakeFinanceRepo) byType(entryType string) []model.FinanceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FinanceEntry
	for _, e := range r.entries {
		if e.Type == entryType {
			out = append(out, e)
		}
	}
	return out
}

// --- history ---

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []model.EstimateHistory
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *model.EstimateHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByEstimate(_ context.Context, estimateID uuid.UUID) ([]model.EstimateHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EstimateHistory
	for _, e := range r.entries {
		if e.EstimateID == estimateID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- requests ---

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]model.Request)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *fakeRequestRepo) List(_ context.Context, status string, _, _ int) ([]model.Request, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Request
	for _, req := range r.requests {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *model.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.requests[req.ID] = *req
	return nil
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users []model.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID.String() == id {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, len(r.users))
	copy(out, r.users)
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID.String() == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) CreateRefreshToken(_ context.Context, _ *model.RefreshToken) error { return nil }

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, _ string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, _ string) error { return nil }

// --- notifications ---

type recordedNotification struct {
	UserID uuid.UUID
	Type   string
	Title  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (n *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, notifType, title, _, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{UserID: userID, Type: notifType, Title: title})
}

func (n *fakeNotifier) List(_ context.Context, _ string, _, _ int) ([]NotificationResponse, int64, error) {
	return nil, 0, nil
}

func (n *fakeNotifier) UnreadCount(_ context.Context, _ string) (int64, error) { return 0, nil }

func (n *fakeNotifier) MarkRead(_ context.Context, _, _ string) error { return nil }

func (n *fakeNotifier) MarkAllRead(_ context.Context, _ string) error { return nil }
