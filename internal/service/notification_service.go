package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"estimator/internal/model"
	"estimator/internal/repository"
	"estimator/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

type NotificationResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

// NotificationService delivers best-effort messages to operators. Notify never
// returns an error to its callers' callers: a failed insert or push is logged
// and swallowed, because notifications are a side effect of a primary mutation
// that has already committed.
type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType, title, message, link string)
	List(ctx context.Context, userID string, page, limit int) ([]NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
	hub  *websocket.Hub
}

func NewNotificationService(repo repository.NotificationRepository, hub *websocket.Hub) NotificationService {
	return &notificationService{repo: repo, hub: hub}
}

// --- Implementation ---

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, notifType, title, message, link string) {
	n := model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		log.Printf("notification insert failed (user=%s type=%s): %v", userID, notifType, err)
		return
	}

	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"id":      n.ID.String(),
		"type":    notifType,
		"title":   title,
		"message": message,
		"link":    link,
	})
	if err != nil {
		log.Printf("notification payload marshal failed: %v", err)
		return
	}
	s.hub.SendToUser(userID.String(), payload)
}

func (s *notificationService) List(ctx context.Context, userID string, page, limit int) ([]NotificationResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user id: %w", err)
	}

	notifications, total, err := s.repo.ListByUser(ctx, uid, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	result := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, NotificationResponse{
			ID:        n.ID.String(),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, fmt.Errorf("invalid user id: %w", err)
	}
	return s.repo.CountUnread(ctx, uid)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	return s.repo.MarkRead(ctx, nid, uid)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	return s.repo.MarkAllRead(ctx, uid)
}
