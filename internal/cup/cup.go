package cup

import (
	"time"

	"github.com/google/uuid"
)

type CupStatus string

const (
	CupDraft     CupStatus = "draft"
	CupActive    CupStatus = "active"
	CupCompleted CupStatus = "completed"
)

// ValidSizes are the bracket sizes a cup can be created with.
var ValidSizes = []int{4, 8, 16, 32, 64, 128}

func ValidSize(size int) bool {
	for _, s := range ValidSizes {
		if s == size {
			return true
		}
	}
	return false
}

type Cup struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	Size         int        `db:"size" json:"size"`
	Status       CupStatus  `db:"status" json:"status"`
	CurrentRound Round      `db:"current_round" json:"currentRound"`
	WinnerID     *uuid.UUID `db:"winner_id" json:"winnerId"`
	EndDate      *time.Time `db:"end_date" json:"endDate"`
	CreatedBy    uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
	CompletedAt  *time.Time `db:"completed_at" json:"completedAt"`
}

// CupProject is one selected project of a cup; Seed is its 1-based position
// in the selection.
type CupProject struct {
	CupID     uuid.UUID `db:"cup_id"`
	ProjectID uuid.UUID `db:"project_id"`
	Seed      int       `db:"seed"`
}

type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
