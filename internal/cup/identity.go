package cup

import (
	"time"

	"github.com/google/uuid"
)

// IdentityType is a purchased membership tier.
type IdentityType string

const (
	IdentityHominio IdentityType = "hominio"
	IdentityFounder IdentityType = "founder"
	IdentityAngel   IdentityType = "angel"
)

var votingWeights = map[IdentityType]int{
	IdentityHominio: 1,
	IdentityFounder: 5,
	IdentityAngel:   10,
}

// VotingWeight is the vote multiplier of the tier, 0 for unknown tiers.
func (t IdentityType) VotingWeight() int {
	return votingWeights[t]
}

func (t IdentityType) Valid() bool {
	_, ok := votingWeights[t]
	return ok
}

// Identity grants a user a voting weight. A nil CupID makes it universal.
type Identity struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	UserID       uuid.UUID    `db:"user_id" json:"userId"`
	IdentityType IdentityType `db:"identity_type" json:"identityType"`
	VotingWeight int          `db:"voting_weight" json:"votingWeight"`
	CupID        *uuid.UUID   `db:"cup_id" json:"cupId"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}
