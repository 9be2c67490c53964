package cup

import "strings"

// Round names one elimination stage. Rounds are named after the number of
// projects still in the cup, down to quarter, semi and final.
type Round string

const (
	Round128 Round = "round_128"
	Round64  Round = "round_64"
	Round32  Round = "round_32"
	Round16  Round = "round_16"
	Quarter  Round = "quarter"
	Semi     Round = "semi"
	Final    Round = "final"
)

// rounds is the fixed progression lattice, earliest first.
var rounds = []Round{Round128, Round64, Round32, Round16, Quarter, Semi, Final}

var firstRoundBySize = map[int]Round{
	128: Round128,
	64:  Round64,
	32:  Round32,
	16:  Round16,
	8:   Quarter,
	4:   Semi,
}

// Rounds returns the lattice in progression order.
func Rounds() []Round {
	out := make([]Round, len(rounds))
	copy(out, rounds)
	return out
}

func (r Round) Valid() bool {
	return r.Index() >= 0
}

// Index is the position of r in the lattice, -1 when unknown.
func (r Round) Index() int {
	for i, candidate := range rounds {
		if candidate == r {
			return i
		}
	}
	return -1
}

// FirstRound is the opening round for a cup of the given size.
func FirstRound(size int) (Round, bool) {
	r, ok := firstRoundBySize[size]
	return r, ok
}

// NextRound returns the round after r. The final has no successor.
func NextRound(r Round) (Round, bool) {
	i := r.Index()
	if i < 0 || i == len(rounds)-1 {
		return "", false
	}
	return rounds[i+1], true
}

// PreviousRound returns the round before r in the lattice.
func PreviousRound(r Round) (Round, bool) {
	i := r.Index()
	if i <= 0 {
		return "", false
	}
	return rounds[i-1], true
}

// MatchesIn is the number of matches a round holds.
func MatchesIn(r Round) int {
	i := r.Index()
	if i < 0 {
		return 0
	}
	return 1 << (len(rounds) - 1 - i)
}

func (r Round) Label() string {
	switch r {
	case Quarter:
		return "Quarter-finals"
	case Semi:
		return "Semi-finals"
	case Final:
		return "Final"
	case "":
		return ""
	}
	return "Round of " + strings.TrimPrefix(string(r), "round_")
}
