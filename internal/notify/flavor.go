package notify

import (
	"strconv"
	"strings"

	"github.com/hominio/cups/internal/cup"
)

type flavor struct {
	title   string
	message string
}

var flavors = map[cup.NotificationType][]flavor{
	cup.NotifyVoteReceived: {
		{"New vote!", "{project} just received {weight} vote(s). Keep going!"},
		{"The crowd is with you", "Someone backed {project} with {weight} vote(s)."},
		{"Momentum!", "{project} gained {weight} vote(s) in its match."},
	},
	cup.NotifyOpponentVote: {
		{"Your opponent scored", "{opponent} just received {weight} vote(s) against {project}."},
		{"Time to rally", "{opponent} is pulling ahead. Share {project} with your supporters!"},
		{"Heads up", "A vote just went to {opponent}. {project} needs your community."},
	},
	cup.NotifyOpponentRevealed: {
		{"Your next opponent", "{project} will face {opponent} in the next round."},
		{"The bracket moves on", "{project} advances and meets {opponent}. Voting is open!"},
		{"Match announced", "It's {project} against {opponent}. May the best project win."},
	},
	cup.NotifyCupWon: {
		{"Champion!", "{project} won the cup. Congratulations!"},
		{"Cup winner", "The votes are in and {project} takes the cup."},
	},
}

func (n *Notifier) compose(e Event) (string, string) {
	options := flavors[e.Type]
	if len(options) == 0 {
		return string(e.Type), ""
	}
	f := options[n.pick(len(options))]

	r := strings.NewReplacer(
		"{project}", e.Project,
		"{opponent}", e.Opponent,
		"{weight}", strconv.Itoa(e.Weight),
	)
	return f.title, r.Replace(f.message)
}
