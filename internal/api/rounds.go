package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/httputil"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/service"
)

type voteMatchRequest struct {
	MatchID     uuid.UUID `json:"matchId"`
	ProjectSide cup.Side  `json:"projectSide"`
}

func (a *API) voteMatch(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req voteMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}
	if req.MatchID == uuid.Nil {
		httputil.BadRequest(w, "matchId is required", nil)
		return
	}
	if !req.ProjectSide.Valid() {
		httputil.BadRequest(w, "Invalid projectSide", cup.ErrInvalidSide)
		return
	}

	result, err := a.Votes.CastVote(r.Context(), userID, req.MatchID, req.ProjectSide)
	if err != nil {
		httputil.Error(w, r, "Failed to cast vote", err)
		return
	}

	writeOK(w, struct {
		successResponse
		*service.VoteResult
	}{success, result})
}

type matchRequest struct {
	MatchID uuid.UUID `json:"matchId"`
}

func (a *API) determineMatchWinner(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}
	if req.MatchID == uuid.Nil {
		httputil.BadRequest(w, "matchId is required", nil)
		return
	}

	result, err := a.Rounds.DetermineMatchWinner(r.Context(), req.MatchID)
	if err != nil {
		httputil.Error(w, r, "Failed to determine winner", err)
		return
	}

	writeOK(w, struct {
		successResponse
		*service.WinnerResult
	}{success, result})
}

type cupRequest struct {
	CupID   uuid.UUID `json:"cupId"`
	EndDate time.Time `json:"endDate"`
}

func (a *API) endRound(w http.ResponseWriter, r *http.Request) {
	var req cupRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}
	if req.CupID == uuid.Nil {
		httputil.BadRequest(w, "cupId is required", nil)
		return
	}

	result, err := a.Rounds.EndRound(r.Context(), req.CupID)
	if err != nil {
		httputil.Error(w, r, "Failed to end round", err)
		return
	}

	writeOK(w, struct {
		successResponse
		*service.EndRoundResult
	}{success, result})
}

func (a *API) startNextRound(w http.ResponseWriter, r *http.Request) {
	var req cupRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}
	if req.CupID == uuid.Nil {
		httputil.BadRequest(w, "cupId is required", nil)
		return
	}

	result, err := a.Rounds.StartNextRound(r.Context(), req.CupID, req.EndDate)
	if err != nil {
		httputil.Error(w, r, "Failed to start next round", err)
		return
	}

	writeOK(w, struct {
		successResponse
		*service.NextRoundResult
	}{success, result})
}

func (a *API) checkExpiry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CupID uuid.UUID `json:"cupId"`
	}
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, "Invalid JSON body", err)
			return
		}
	} else if raw := r.URL.Query().Get("cupId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "Invalid cupId", err)
			return
		}
		req.CupID = id
	}

	var (
		result service.SweepResult
		err    error
	)
	if req.CupID == uuid.Nil {
		result, err = a.Expiry.SweepAll(r.Context())
	} else {
		result, err = a.Expiry.SweepCup(r.Context(), req.CupID)
	}
	if err != nil {
		httputil.Error(w, r, "Failed to check expiry", err)
		return
	}

	writeOK(w, struct {
		successResponse
		service.SweepResult
	}{success, result})
}

func (a *API) matchVotes(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(r.URL.Query().Get("matchId"))
	if err != nil {
		httputil.BadRequest(w, "Invalid matchId", err)
		return
	}

	// Anonymous callers get totals only
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	votes, err := a.Votes.MatchVotes(r.Context(), userID, matchID)
	if err != nil {
		httputil.Error(w, r, "Failed to get match votes", err)
		return
	}
	writeOK(w, votes)
}
