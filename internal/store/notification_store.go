package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/jmoiron/sqlx"
)

type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const (
	createNotificationQuery = `INSERT INTO notifications (id, user_id, type, title, message, cup_id, match_id, is_read, created_at)
		VALUES (:id, :user_id, :type, :title, :message, :cup_id, :match_id, :is_read, :created_at)`
	upsertSubscriptionQuery = `INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		VALUES (:id, :user_id, :endpoint, :p256dh, :auth, :created_at)
		ON CONFLICT (endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh = excluded.p256dh, auth = excluded.auth`
)

func (s *NotificationStore) CreateNotification(ctx context.Context, n *cup.Notification) error {
	_, err := s.db.NamedExecContext(ctx, createNotificationQuery, n)
	return err
}

func (s *NotificationStore) GetNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]cup.Notification, error) {
	notifications := []cup.Notification{}
	err := s.db.SelectContext(ctx, &notifications,
		s.db.Rebind("SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?"), userID, limit)
	return notifications, err
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	return affected(s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?"), true, id, userID))
}

// UpsertSubscription stores a browser push subscription; re-subscribing the
// same endpoint moves it to the given user and refreshes its keys.
func (s *NotificationStore) UpsertSubscription(ctx context.Context, sub *cup.PushSubscription) error {
	_, err := s.db.NamedExecContext(ctx, upsertSubscriptionQuery, sub)
	return err
}

func (s *NotificationStore) GetSubscriptions(ctx context.Context, userID uuid.UUID) ([]cup.PushSubscription, error) {
	subs := []cup.PushSubscription{}
	err := s.db.SelectContext(ctx, &subs, s.db.Rebind("SELECT * FROM push_subscriptions WHERE user_id = ?"), userID)
	return subs, err
}

func (s *NotificationStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM push_subscriptions WHERE endpoint = ?"), endpoint)
	return err
}
