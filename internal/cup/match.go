package cup

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchVoting    MatchStatus = "voting"
	MatchCompleted MatchStatus = "completed"
)

type Side string

const (
	SideProject1 Side = "project1"
	SideProject2 Side = "project2"
)

func (s Side) Valid() bool {
	return s == SideProject1 || s == SideProject2
}

// Opponent returns the other side of the match.
func (s Side) Opponent() Side {
	if s == SideProject1 {
		return SideProject2
	}
	return SideProject1
}

type Match struct {
	ID    uuid.UUID `db:"id" json:"id"`
	CupID uuid.UUID `db:"cup_id" json:"cupId"`
	Round Round     `db:"round" json:"round"`
	// Bracket slot within the round, starting at 1
	Position int `db:"position" json:"position"`

	Project1ID uuid.UUID  `db:"project1_id" json:"project1Id"`
	Project2ID uuid.UUID  `db:"project2_id" json:"project2Id"`
	WinnerID   *uuid.UUID `db:"winner_id" json:"winnerId"`

	Status      MatchStatus `db:"status" json:"status"`
	EndDate     *time.Time  `db:"end_date" json:"endDate"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time  `db:"completed_at" json:"completedAt"`
}

// ProjectFor returns the project competing on the given side.
func (m *Match) ProjectFor(side Side) uuid.UUID {
	if side == SideProject2 {
		return m.Project2ID
	}
	return m.Project1ID
}

func (m *Match) HasWinner() bool {
	return m.WinnerID != nil && *m.WinnerID != uuid.Nil
}

func (m *Match) IsWinner(projectID uuid.UUID) bool {
	return m.HasWinner() && *m.WinnerID == projectID
}

type Vote struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	MatchID      uuid.UUID `db:"match_id" json:"matchId"`
	ProjectSide  Side      `db:"project_side" json:"projectSide"`
	VotingWeight int       `db:"voting_weight" json:"votingWeight"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Tally is the weighted vote sum of both sides of a match.
type Tally struct {
	Votes1 int64 `json:"votes1"`
	Votes2 int64 `json:"votes2"`
}

func (t Tally) For(side Side) int64 {
	if side == SideProject2 {
		return t.Votes2
	}
	return t.Votes1
}
