package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/httputil"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/service"
)

type createCupRequest struct {
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Size               int         `json:"size"`
	SelectedProjectIDs []uuid.UUID `json:"selectedProjectIds"`
	EndDate            *time.Time  `json:"endDate"`
}

func (a *API) createCup(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	var req createCupRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}

	c, err := a.Cups.CreateCup(r.Context(), adminID, service.CreateCupInput{
		Name:        req.Name,
		Description: req.Description,
		Size:        req.Size,
		ProjectIDs:  req.SelectedProjectIDs,
		EndDate:     req.EndDate,
	})
	if err != nil {
		httputil.Error(w, r, "Failed to create cup", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (a *API) startCup(w http.ResponseWriter, r *http.Request) {
	var req cupRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}
	if req.CupID == uuid.Nil {
		httputil.BadRequest(w, "cupId is required", nil)
		return
	}

	result, err := a.Cups.StartCup(r.Context(), req.CupID, req.EndDate)
	if err != nil {
		httputil.Error(w, r, "Failed to start cup", err)
		return
	}

	writeOK(w, struct {
		successResponse
		*service.StartCupResult
	}{success, result})
}

func (a *API) listCups(w http.ResponseWriter, r *http.Request) {
	status := cup.CupStatus(r.URL.Query().Get("status"))
	switch status {
	case "", cup.CupDraft, cup.CupActive, cup.CupCompleted:
	default:
		httputil.BadRequest(w, "Invalid status", nil)
		return
	}

	cups, err := a.Cups.ListCups(r.Context(), status)
	if err != nil {
		httputil.Error(w, r, "Failed to list cups", err)
		return
	}
	writeOK(w, cups)
}

func (a *API) getCup(w http.ResponseWriter, r *http.Request) {
	cupID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid cup ID", err)
		return
	}

	view, err := a.Cups.GetCup(r.Context(), cupID)
	if err != nil {
		httputil.Error(w, r, "Failed to get cup", err)
		return
	}
	writeOK(w, view)
}
