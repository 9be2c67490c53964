package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/httputil"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/service"
	users "github.com/hominio/cups/internal/user"
)

type grantIdentityRequest struct {
	UserID       uuid.UUID        `json:"userId"`
	IdentityType cup.IdentityType `json:"identityType"`
	CupID        *uuid.UUID       `json:"cupId"`
}

func (a *API) grantIdentity(w http.ResponseWriter, r *http.Request) {
	var req grantIdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}

	identity, err := a.Identities.Grant(r.Context(), service.GrantInput{
		UserID:       req.UserID,
		IdentityType: req.IdentityType,
		CupID:        req.CupID,
	})
	if err != nil {
		httputil.Error(w, r, "Failed to grant identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identity)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}

	project, err := a.Projects.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		httputil.Error(w, r, "Failed to create project", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	var owner *uuid.UUID
	if r.URL.Query().Get("mine") == "true" {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			httputil.Unauthorized(w)
			return
		}
		owner = &userID
	}

	projects, err := a.Projects.List(r.Context(), owner)
	if err != nil {
		httputil.Error(w, r, "Failed to list projects", err)
		return
	}
	writeOK(w, projects)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	notifications, err := a.Notifications.List(r.Context(), userID)
	if err != nil {
		httputil.Error(w, r, "Failed to list notifications", err)
		return
	}
	writeOK(w, notifications)
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid notification ID", err)
		return
	}

	if err := a.Notifications.MarkRead(r.Context(), userID, id); err != nil {
		httputil.Error(w, r, "Failed to mark notification read", err)
		return
	}
	writeOK(w, success)
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// subscribePush accepts the browser's PushSubscription.toJSON() body.
func (a *API) subscribePush(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, "Invalid JSON body", err)
		return
	}

	if err := a.Notifications.Subscribe(r.Context(), userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		httputil.Error(w, r, "Failed to subscribe", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, success)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if user == nil {
		httputil.Unauthorized(w)
		return
	}

	identities, err := a.Identities.List(r.Context(), user.ID)
	if err != nil {
		httputil.Error(w, r, "Failed to list identities", err)
		return
	}

	writeOK(w, struct {
		*users.User
		Identities []cup.Identity `json:"identities"`
	}{user, identities})
}
