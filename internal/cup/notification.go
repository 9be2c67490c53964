package cup

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyVoteReceived     NotificationType = "vote_received"
	NotifyOpponentVote     NotificationType = "opponent_vote"
	NotifyOpponentRevealed NotificationType = "opponent_revealed"
	NotifyCupWon           NotificationType = "cup_won"
)

type Notification struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	UserID    uuid.UUID        `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	CupID     *uuid.UUID       `db:"cup_id" json:"cupId"`
	MatchID   *uuid.UUID       `db:"match_id" json:"matchId"`
	Read      bool             `db:"is_read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

type PushSubscription struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
