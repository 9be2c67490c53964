package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/store"
)

const notificationPageSize = 50

type NotificationService struct {
	store *store.NotificationStore
}

func NewNotificationService(store *store.NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]cup.Notification, error) {
	return s.store.GetNotifications(ctx, userID, notificationPageSize)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	ok, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %s: %w", notificationID, cup.ErrNotFound)
	}
	return nil
}

// Subscribe registers a browser for Web Push delivery.
func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, endpoint, p256dh, auth string) error {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "https://") || p256dh == "" || auth == "" {
		return cup.ErrInvalidSubscription
	}
	return s.store.UpsertSubscription(ctx, &cup.PushSubscription{
		ID:        uuid.New(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
		CreatedAt: time.Now().UTC(),
	})
}
