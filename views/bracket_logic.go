package views

import (
	"sort"

	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/service"
)

type RoundColumn struct {
	Round   cup.Round
	Label   string
	Current bool
	Matches []service.MatchView
}

type CupData struct {
	Cup    *cup.Cup
	Rounds []RoundColumn
	Winner *cup.Project
}

// PrepareCupData groups the cup's matches into columns in lattice order, each
// sorted by bracket position.
func PrepareCupData(view *service.CupView) CupData {
	byRound := make(map[cup.Round][]service.MatchView)
	for _, m := range view.Matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}

	data := CupData{Cup: view.Cup, Winner: view.Winner}
	for _, r := range cup.Rounds() {
		matches, exists := byRound[r]
		if !exists {
			continue
		}
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Position < matches[j].Position
		})
		data.Rounds = append(data.Rounds, RoundColumn{
			Round:   r,
			Label:   r.Label(),
			Current: view.Cup.CurrentRound == r,
			Matches: matches,
		})
	}
	return data
}
