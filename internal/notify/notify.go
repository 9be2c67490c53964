// Package notify persists in-app notifications and delivers them as Web Push
// messages to the recipient's registered browsers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
)

// Store is the persistence the notifier needs.
type Store interface {
	CreateNotification(ctx context.Context, n *cup.Notification) error
	GetSubscriptions(ctx context.Context, userID uuid.UUID) ([]cup.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Pusher delivers one payload to one browser subscription and returns the
// push service's status code.
type Pusher interface {
	Push(ctx context.Context, sub cup.PushSubscription, payload []byte) (int, error)
}

// Event describes something a user should hear about. Project, Opponent and
// Weight fill the flavor text placeholders.
type Event struct {
	Type     cup.NotificationType
	UserID   uuid.UUID
	CupID    *uuid.UUID
	MatchID  *uuid.UUID
	Project  string
	Opponent string
	Weight   int
}

const (
	defaultPushWorkers = 16
	pushTimeout        = 30 * time.Second
)

type Notifier struct {
	store  Store
	pusher Pusher
	pick   func(n int) int
	now    func() time.Time

	// slots caps the deliveries in flight
	slots    chan struct{}
	inflight sync.WaitGroup
}

type Option func(*Notifier)

// WithPusher enables Web Push delivery.
func WithPusher(p Pusher) Option {
	return func(n *Notifier) { n.pusher = p }
}

// WithPushWorkers caps how many push deliveries run at once. Notifications
// raised while every slot is busy are stored but not pushed.
func WithPushWorkers(limit int) Option {
	return func(n *Notifier) {
		if limit > 0 {
			n.slots = make(chan struct{}, limit)
		}
	}
}

// WithPicker replaces the random flavor text choice.
func WithPicker(pick func(n int) int) Option {
	return func(n *Notifier) { n.pick = pick }
}

func New(store Store, opts ...Option) *Notifier {
	n := &Notifier{
		store: store,
		pick:  rand.IntN,
		now:   time.Now,
		slots: make(chan struct{}, defaultPushWorkers),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify stores the notification and hands it to a background push. Failures
// are logged and never returned, so a broken push service cannot fail or stall
// the action that caused it.
func (n *Notifier) Notify(ctx context.Context, e Event) {
	title, message := n.compose(e)
	notification := &cup.Notification{
		ID:        uuid.New(),
		UserID:    e.UserID,
		Type:      e.Type,
		Title:     title,
		Message:   message,
		CupID:     e.CupID,
		MatchID:   e.MatchID,
		CreatedAt: n.now().UTC(),
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		slog.Error("failed to store notification", "type", e.Type, "user", e.UserID, "error", err)
		return
	}

	if n.pusher == nil {
		return
	}

	select {
	case n.slots <- struct{}{}:
	default:
		slog.Warn("push workers busy, skipping delivery", "notification", notification.ID, "user", e.UserID)
		return
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		defer func() { <-n.slots }()

		// The request that raised the notification may finish first.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		n.push(pushCtx, notification)
	}()
}

// Wait blocks until every push in flight has finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type"`
	CupID string `json:"cupId,omitempty"`
}

func (n *Notifier) push(ctx context.Context, notification *cup.Notification) {
	subs, err := n.store.GetSubscriptions(ctx, notification.UserID)
	if err != nil {
		slog.Error("failed to load push subscriptions", "user", notification.UserID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload := pushPayload{
		Title: notification.Title,
		Body:  notification.Message,
		Type:  string(notification.Type),
	}
	if notification.CupID != nil {
		payload.CupID = notification.CupID.String()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode push payload", "error", err)
		return
	}

	for _, sub := range subs {
		status, err := n.pusher.Push(ctx, sub, body)
		if status == http.StatusNotFound || status == http.StatusGone {
			// The browser unsubscribed
			if err := n.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
				slog.Warn("failed to delete stale subscription", "endpoint", sub.Endpoint, "error", err)
			}
			continue
		}
		if err != nil {
			slog.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		}
	}
}

// WebPush sends messages signed with the application's VAPID keys.
type WebPush struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

func (w *WebPush) Push(ctx context.Context, sub cup.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      w.Subscriber,
		VAPIDPublicKey:  w.PublicKey,
		VAPIDPrivateKey: w.PrivateKey,
		TTL:             w.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("push service responded %s", resp.Status)
	}
	return resp.StatusCode, nil
}
