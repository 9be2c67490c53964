package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/db/dbtest"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/middleware"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/service"
	"github.com/hominio/cups/internal/store"
	users "github.com/hominio/cups/internal/user"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	db     *sqlx.DB
	api    *API
	users  *store.UserStore
	admin  *users.User
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := dbtest.Setup(t)
	notifications := store.NewNotificationStore(db)
	c, err := cache.New(context.Background(), "", time.Minute)
	require.NoError(t, err)

	deps := service.NewDeps(db, notify.New(notifications), c, metrics.New())
	expiry := service.NewExpiryService(deps)
	userStore := store.NewUserStore(db)

	a := New(Services{
		Votes:         service.NewVoteService(deps, expiry),
		Rounds:        service.NewRoundService(deps, expiry),
		Cups:          service.NewCupService(deps, expiry),
		Expiry:        expiry,
		Identities:    service.NewIdentityService(db, deps.Identities, userStore, deps.Cups),
		Projects:      service.NewProjectService(deps.Projects),
		Notifications: service.NewNotificationService(notifications),
	}, nil)

	s := &testServer{db: db, api: a, users: userStore, router: a.Routes()}
	s.admin = s.user(t, dbtest.InsertUser(t, db, "admin", true))
	return s
}

func (s *testServer) user(t *testing.T, id uuid.UUID) *users.User {
	t.Helper()

	u, err := s.users.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

// do sends a request as the given user, anonymous when nil.
func (s *testServer) do(t *testing.T, as *users.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), as))
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// startedCup creates and starts a cup of four through the API and returns its
// id, project ids and opening matches.
func (s *testServer) startedCup(t *testing.T) (uuid.UUID, []uuid.UUID, []cup.Match) {
	t.Helper()

	projects := make([]uuid.UUID, 4)
	for i := range projects {
		owner := dbtest.InsertUser(t, s.db, "owner", false)
		projects[i] = dbtest.InsertProject(t, s.db, owner, "Project")
	}

	rec := s.do(t, s.admin, http.MethodPost, "/cups", map[string]any{
		"name":               "Spring Cup",
		"size":               4,
		"selectedProjectIds": projects,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cupID := uuid.MustParse(decode(t, rec)["id"].(string))

	rec = s.do(t, s.admin, http.MethodPost, "/start-cup", map[string]any{
		"cupId":   cupID,
		"endDate": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	matches, err := store.NewCupStore().GetRoundMatches(context.Background(), s.db, cupID, cup.Semi)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	return cupID, projects, matches
}

func (s *testServer) voter(t *testing.T, tier cup.IdentityType) *users.User {
	t.Helper()

	id := dbtest.InsertUser(t, s.db, "voter", false)
	dbtest.InsertIdentity(t, s.db, id, string(tier), tier.VotingWeight(), nil)
	return s.user(t, id)
}

func TestVoteMatch(t *testing.T) {
	s := newTestServer(t)
	_, _, matches := s.startedCup(t)
	voter := s.voter(t, cup.IdentityFounder)

	t.Run("records weighted vote", func(t *testing.T) {
		rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     matches[0].ID,
			"projectSide": "project2",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(5), body["newTotal"])
		assert.Equal(t, "project2", body["voted"])
		assert.Equal(t, float64(5), body["votingWeight"])
	})

	t.Run("rejects second vote", func(t *testing.T) {
		rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     matches[0].ID,
			"projectSide": "project1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "You have already voted on this match", decode(t, rec)["error"])
	})

	t.Run("rejects invalid side", func(t *testing.T) {
		rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     matches[1].ID,
			"projectSide": "both",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown match", func(t *testing.T) {
		rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     uuid.New(),
			"projectSide": "project1",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires identity", func(t *testing.T) {
		nobody := s.user(t, dbtest.InsertUser(t, s.db, "nobody", false))
		rec := s.do(t, nobody, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     matches[1].ID,
			"projectSide": "project1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No voting identity", decode(t, rec)["error"])
	})

	t.Run("requires login", func(t *testing.T) {
		rec := s.do(t, nil, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     matches[1].ID,
			"projectSide": "project1",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestVoteMatchSelfVote(t *testing.T) {
	s := newTestServer(t)
	_, _, matches := s.startedCup(t)

	var project cup.Project
	require.NoError(t, s.db.Get(&project, `SELECT * FROM projects WHERE id = ?`, matches[0].Project1ID.String()))
	owner := s.user(t, project.UserID)
	dbtest.InsertIdentity(t, s.db, owner.ID, "hominio", 1, nil)

	rec := s.do(t, owner, http.MethodPost, "/vote-match", map[string]any{
		"matchId":     matches[0].ID,
		"projectSide": "project1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMatchVotes(t *testing.T) {
	s := newTestServer(t)
	_, _, matches := s.startedCup(t)
	voter := s.voter(t, cup.IdentityAngel)

	rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
		"matchId":     matches[0].ID,
		"projectSide": "project1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, voter, http.MethodGet, "/match-votes?matchId="+matches[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(10), body["votes1"])
	assert.Equal(t, float64(0), body["votes2"])
	assert.Equal(t, "project1", body["userVote"])

	rec = s.do(t, nil, http.MethodGet, "/match-votes?matchId="+matches[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["userVote"])

	rec = s.do(t, nil, http.MethodGet, "/match-votes?matchId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	member := s.user(t, dbtest.InsertUser(t, s.db, "member", false))

	for _, path := range []string{"/determine-match-winner", "/end-round", "/start-next-round", "/cups", "/start-cup", "/identities"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(t, member, http.MethodPost, path, map[string]any{})
			assert.Equal(t, http.StatusForbidden, rec.Code)

			rec = s.do(t, nil, http.MethodPost, path, map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRoundLifecycle(t *testing.T) {
	s := newTestServer(t)
	cupID, _, matches := s.startedCup(t)
	voter := s.voter(t, cup.IdentityHominio)

	for _, m := range matches {
		rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
			"matchId":     m.ID,
			"projectSide": "project2",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, s.admin, http.MethodPost, "/determine-match-winner", map[string]any{"matchId": matches[0].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, matches[0].Project2ID.String(), body["winnerId"])
	assert.Equal(t, float64(0), body["votes1"])
	assert.Equal(t, float64(1), body["votes2"])

	rec = s.do(t, s.admin, http.MethodPost, "/determine-match-winner", map[string]any{"matchId": matches[0].ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, s.admin, http.MethodPost, "/end-round", map[string]any{"cupId": cupID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["winnersCount"])
	assert.Equal(t, "Semi-finals ended, 1 winner(s) determined", body["message"])

	rec = s.do(t, s.admin, http.MethodPost, "/start-next-round", map[string]any{
		"cupId":   cupID,
		"endDate": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "final", body["nextRound"])
	assert.Equal(t, float64(1), body["matchesCreated"])

	rec = s.do(t, s.admin, http.MethodPost, "/start-next-round", map[string]any{
		"cupId":   cupID,
		"endDate": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Next round already exists", decode(t, rec)["error"])

	rec = s.do(t, s.admin, http.MethodPost, "/end-round", map[string]any{"cupId": cupID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Final ended, cup completed", decode(t, rec)["message"])

	rec = s.do(t, nil, http.MethodGet, "/cups/"+cupID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)["cup"].(map[string]any)
	assert.Equal(t, "completed", view["status"])
}

func TestStartNextRoundRejectsPastEndDate(t *testing.T) {
	s := newTestServer(t)
	cupID, _, _ := s.startedCup(t)

	rec := s.do(t, s.admin, http.MethodPost, "/start-next-round", map[string]any{
		"cupId":   cupID,
		"endDate": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckExpiry(t *testing.T) {
	s := newTestServer(t)
	cupID, _, matches := s.startedCup(t)

	_, err := s.db.Exec(`UPDATE cup_matches SET end_date = ? WHERE id = ?`,
		time.Now().Add(-time.Minute).UTC(), matches[0].ID.String())
	require.NoError(t, err)

	rec := s.do(t, nil, http.MethodGet, "/check-expiry?cupId="+cupID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["matchesClosed"])
	assert.Equal(t, float64(0), body["cupsClosed"])

	rec = s.do(t, nil, http.MethodPost, "/check-expiry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(0), decode(t, rec)["matchesClosed"])

	rec = s.do(t, nil, http.MethodGet, "/check-expiry?cupId=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCups(t *testing.T) {
	s := newTestServer(t)

	t.Run("rejects invalid size", func(t *testing.T) {
		rec := s.do(t, s.admin, http.MethodPost, "/cups", map[string]any{"name": "Cup", "size": 5})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lists by status", func(t *testing.T) {
		cupID, _, _ := s.startedCup(t)

		rec := s.do(t, nil, http.MethodGet, "/cups?status=active", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var cups []cup.Cup
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cups))
		require.Len(t, cups, 1)
		assert.Equal(t, cupID, cups[0].ID)

		rec = s.do(t, nil, http.MethodGet, "/cups?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown cup", func(t *testing.T) {
		rec := s.do(t, nil, http.MethodGet, "/cups/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMembers(t *testing.T) {
	s := newTestServer(t)
	member := s.user(t, dbtest.InsertUser(t, s.db, "member", false))

	rec := s.do(t, s.admin, http.MethodPost, "/identities", map[string]any{
		"userId":       member.ID,
		"identityType": "founder",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), decode(t, rec)["votingWeight"])

	rec = s.do(t, s.admin, http.MethodPost, "/identities", map[string]any{
		"userId":       member.ID,
		"identityType": "emperor",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, member, http.MethodPost, "/projects", map[string]any{"name": "Garden", "description": "Shared plots"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, member, http.MethodGet, "/projects?mine=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []cup.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "Garden", projects[0].Name)

	rec = s.do(t, nil, http.MethodGet, "/projects?mine=true", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, member, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, member.ID.String(), body["id"])
	assert.Len(t, body["identities"], 1)
}

func TestNotifications(t *testing.T) {
	s := newTestServer(t)
	_, _, matches := s.startedCup(t)
	voter := s.voter(t, cup.IdentityHominio)

	rec := s.do(t, voter, http.MethodPost, "/vote-match", map[string]any{
		"matchId":     matches[0].ID,
		"projectSide": "project1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var project cup.Project
	require.NoError(t, s.db.Get(&project, `SELECT * FROM projects WHERE id = ?`, matches[0].Project1ID.String()))
	owner := s.user(t, project.UserID)

	rec = s.do(t, owner, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []cup.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))

	var received *cup.Notification
	for i := range notifications {
		if notifications[i].Type == cup.NotifyVoteReceived {
			received = &notifications[i]
		}
	}
	require.NotNil(t, received)

	rec = s.do(t, owner, http.MethodPost, "/notifications/"+received.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, voter, http.MethodPost, "/notifications/"+received.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, owner, http.MethodPost, "/push/subscribe", map[string]any{
		"endpoint": "https://push.example.com/abc",
		"keys":     map[string]string{"p256dh": "key", "auth": "secret"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, owner, http.MethodPost, "/push/subscribe", map[string]any{"endpoint": "http://insecure"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
