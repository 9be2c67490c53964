package cup

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// DecideWinner picks the project with the higher weighted vote sum. An exact
// tie goes to the project whose id string sorts last.
func DecideWinner(project1, project2 uuid.UUID, tally Tally) uuid.UUID {
	switch {
	case tally.Votes1 > tally.Votes2:
		return project1
	case tally.Votes2 > tally.Votes1:
		return project2
	}
	if project1.String() > project2.String() {
		return project1
	}
	return project2
}

// Pairing is one match of a generated round.
type Pairing struct {
	Position   int
	Project1ID uuid.UUID
	Project2ID uuid.UUID
}

// PairWinners pairs the winners of a finished round two at a time, in
// bracket position order.
func PairWinners(matches []Match) ([]Pairing, error) {
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	winners := make([]uuid.UUID, 0, len(sorted))
	for _, m := range sorted {
		if !m.HasWinner() {
			return nil, fmt.Errorf("match %d: %w", m.Position, ErrUndecidedMatches)
		}
		winners = append(winners, *m.WinnerID)
	}

	if len(winners)%2 != 0 {
		return nil, ErrOddWinners
	}

	pairings := make([]Pairing, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		pairings = append(pairings, Pairing{
			Position:   i/2 + 1,
			Project1ID: winners[i],
			Project2ID: winners[i+1],
		})
	}
	return pairings, nil
}

// SeedPairs returns the zero-based seed indices meeting in each first round
// match, so that seed 1 meets the last seed and the top seeds can only meet
// in the final.
func SeedPairs(size int) [][2]int {
	if size < 2 {
		return [][2]int{}
	}

	seeds := []int{0}
	for len(seeds) < size {
		next := make([]int, 0, len(seeds)*2)
		count := len(seeds) * 2

		for _, seed := range seeds {
			next = append(next, seed, (count-1)-seed)
		}
		seeds = next
	}

	pairs := make([][2]int, 0, size/2)
	for i := 0; i < len(seeds); i += 2 {
		pairs = append(pairs, [2]int{seeds[i], seeds[i+1]})
	}
	return pairs
}

// SeedFirstRound lays out the opening round for projects in seed order.
func SeedFirstRound(projects []uuid.UUID) []Pairing {
	pairs := SeedPairs(len(projects))
	pairings := make([]Pairing, 0, len(pairs))
	for i, pair := range pairs {
		pairings = append(pairings, Pairing{
			Position:   i + 1,
			Project1ID: projects[pair[0]],
			Project2ID: projects[pair[1]],
		})
	}
	return pairings
}
