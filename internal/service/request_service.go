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

type CreateRequestInput struct {
	ClientName  string `json:"client_name" binding:"required"`
	ClientPhone string `json:"client_phone" binding:"required"`
	ClientEmail string `json:"client_email" binding:"omitempty,email"`
	Address     string `json:"address"`
	Message     string `json:"message"`
}

type UpdateRequestStatusInput struct {
	Status string `json:"status" binding:"required,oneof=new in_review declined"`
}

type RequestResponse struct {
	ID          string  `json:"id"`
	ClientName  string  `json:"client_name"`
	ClientPhone string  `json:"client_phone"`
	ClientEmail string  `json:"client_email"`
	Address     string  `json:"address"`
	Message     string  `json:"message"`
	Status      string  `json:"status"`
	EstimateID  *string `json:"estimate_id"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, input CreateRequestInput) (RequestResponse, error)
	List(ctx context.Context, status string, page, limit int) ([]RequestResponse, int64, error)
	UpdateStatus(ctx context.Context, id string, input UpdateRequestStatusInput) (RequestResponse, error)
	Convert(ctx context.Context, id, actorID string) (EstimateResponse, error)
}

type requestService struct {
	requestRepo repository.RequestRepository
	estimateSvc EstimateService
	userRepo    repository.UserRepository
	notifier    NotificationService
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	estimateSvc EstimateService,
	userRepo repository.UserRepository,
	notifier NotificationService,
) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		estimateSvc: estimateSvc,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// --- Implementation ---

// Create records an incoming lead from the public form and pings the managers
// best-effort.
func (s *requestService) Create(ctx context.Context, input CreateRequestInput) (RequestResponse, error) {
	req := model.Request{
		ClientName:  input.ClientName,
		ClientPhone: input.ClientPhone,
		ClientEmail: input.ClientEmail,
		Address:     input.Address,
		Message:     input.Message,
		Status:      model.RequestNew,
	}
	if err := s.requestRepo.Create(ctx, &req); err != nil {
		return RequestResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	s.notifyManagers(ctx, req)

	return toRequestResponse(req), nil
}

func (s *requestService) List(ctx context.Context, status string, page, limit int) ([]RequestResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	requests, total, err := s.requestRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}
	return result, total, nil
}

func (s *requestService) UpdateStatus(ctx context.Context, id string, input UpdateRequestStatusInput) (RequestResponse, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	req, err := s.requestRepo.FindByID(ctx, rid)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("request not found: %w", err)
	}
	if req.Status == model.RequestConverted {
		return RequestResponse{}, fmt.Errorf("request is already converted")
	}

	req.Status = input.Status
	if err := s.requestRepo.Update(ctx, req); err != nil {
		return RequestResponse{}, fmt.Errorf("failed to update request: %w", err)
	}
	return toRequestResponse(*req), nil
}

// Convert turns a lead into a draft estimate carrying the client snapshot.
// Converting the same request twice is rejected.
func (s *requestService) Convert(ctx context.Context, id, actorID string) (EstimateResponse, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	req, err := s.requestRepo.FindByID(ctx, rid)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("request not found: %w", err)
	}
	if req.Status == model.RequestConverted {
		return EstimateResponse{}, fmt.Errorf("request is already converted")
	}

	estimate, err := s.estimateSvc.Create(ctx, CreateEstimateRequest{
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		ClientEmail:   req.ClientEmail,
		ClientAddress: req.Address,
		ClientComment: req.Message,
		RequestID:     req.ID.String(),
	}, actorID)
	if err != nil {
		return EstimateResponse{}, err
	}

	estimateID, err := uuid.Parse(estimate.ID)
	if err != nil {
		return EstimateResponse{}, fmt.Errorf("invalid estimate id: %w", err)
	}
	req.Status = model.RequestConverted
	req.EstimateID = &estimateID
	if err := s.requestRepo.Update(ctx, req); err != nil {
		return EstimateResponse{}, fmt.Errorf("failed to mark request converted: %w", err)
	}

	return estimate, nil
}

// --- Helpers ---

// notifyManagers pings every manager/admin about a fresh lead. Best-effort:
// a failed lookup just skips the ping.
func (s *requestService) notifyManagers(ctx context.Context, req model.Request) {
	if s.notifier == nil || s.userRepo == nil {
		return
	}
	users, _, err := s.userRepo.List(ctx, 1, 100)
	if err != nil {
		return
	}
	for _, u := range users {
		if u.Role != model.RoleAdmin && u.Role != model.RoleManager {
			continue
		}
		s.notifier.Notify(ctx, u.ID, model.NotifyNewRequest,
			"New request from "+req.ClientName,
			req.Message, "/estimator/requests")
	}
}

// --- Mapping ---

func toRequestResponse(r model.Request) RequestResponse {
	resp := RequestResponse{
		ID:          r.ID.String(),
		ClientName:  r.ClientName,
		ClientPhone: r.ClientPhone,
		ClientEmail: r.ClientEmail,
		Address:     r.Address,
		Message:     r.Message,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.EstimateID != nil {
		v := r.EstimateID.String()
		resp.EstimateID = &v
	}
	return resp
}
