package views

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/middleware"
	users "github.com/hominio/cups/internal/user"
)

func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

func statusLine(c *cup.Cup) string {
	switch c.Status {
	case cup.CupDraft:
		return "Not started yet"
	case cup.CupCompleted:
		return "Completed"
	}
	return "Now playing: " + c.CurrentRound.Label()
}

func votingEnds(t time.Time) string {
	return "Voting ends " + t.UTC().Format("Jan 2 15:04 MST")
}
