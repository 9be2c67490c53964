package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/hominio/cups/internal/cup"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	WriteJSON(w, status, errorBody{Error: msg, Details: details})
}

func InternalServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	writeError(w, http.StatusInternalServerError, "Internal Server Error", msg)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
		writeError(w, http.StatusBadRequest, msg, err.Error())
		return
	}
	slog.Warn("bad request", "message", msg)
	writeError(w, http.StatusBadRequest, msg, "")
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, http.StatusNotFound, msg, "")
}

func Unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Unauthorized", "")
}

func Forbidden(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusForbidden, msg, "")
}

func TooManyRequests(w http.ResponseWriter) {
	writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.", "")
}

var badRequests = []error{
	cup.ErrInvalidSide,
	cup.ErrNoIdentity,
	cup.ErrAlreadyVoted,
	cup.ErrVotingExpired,
	cup.ErrMatchClosed,
	cup.ErrWinnerDetermined,
	cup.ErrCupNotActive,
	cup.ErrCupNotDraft,
	cup.ErrFinalRound,
	cup.ErrNextRoundExists,
	cup.ErrUndecidedMatches,
	cup.ErrOddWinners,
	cup.ErrNoMatches,
	cup.ErrInvalidSize,
	cup.ErrInvalidProjects,
	cup.ErrDuplicateProject,
	cup.ErrInvalidEndDate,
	cup.ErrInvalidName,
	cup.ErrInvalidIdentity,
	cup.ErrInvalidSubscription,
}

// Error writes the response for an error returned by a service, falling back
// to a 500 for anything outside the cup error set.
func Error(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, cup.ErrNotFound):
		NotFound(w, capitalize(err.Error()), err)
		return
	case errors.Is(err, cup.ErrSelfVote):
		slog.Warn("forbidden", "message", msg, "error", err)
		Forbidden(w, capitalize(cup.ErrSelfVote.Error()))
		return
	}

	for _, target := range badRequests {
		if errors.Is(err, target) {
			BadRequest(w, capitalize(target.Error()), nil)
			return
		}
	}
	InternalServerError(w, r, msg, err)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
