package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cache"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/db/dbtest"
	"github.com/hominio/cups/internal/metrics"
	"github.com/hominio/cups/internal/notify"
	"github.com/hominio/cups/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db            *sqlx.DB
	clock         *clock
	deps          Deps
	metrics       *metrics.Metrics
	notifications *store.NotificationStore
	expiry        *ExpiryService
	votes         *VoteService
	rounds        *RoundService
	cups          *CupService
	adminID       uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Setup(t)
	notifications := store.NewNotificationStore(db)
	notifier := notify.New(notifications, notify.WithPicker(func(int) int { return 0 }))

	c, err := cache.New(context.Background(), "", time.Minute)
	require.NoError(t, err)

	m := metrics.New()
	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}

	deps := NewDeps(db, notifier, c, m)
	deps.Now = clk.Now

	expiry := NewExpiryService(deps)
	return &testEnv{
		db:            db,
		clock:         clk,
		deps:          deps,
		metrics:       m,
		notifications: notifications,
		expiry:        expiry,
		votes:         NewVoteService(deps, expiry),
		rounds:        NewRoundService(deps, expiry),
		cups:          NewCupService(deps, expiry),
		adminID:       dbtest.InsertUser(t, db, "admin", true),
	}
}

type testCup struct {
	ID       uuid.UUID
	Projects []uuid.UUID
	Owners   []uuid.UUID
}

// createProjects makes n projects, each with its own owner.
func (e *testEnv) createProjects(t *testing.T, n int) ([]uuid.UUID, []uuid.UUID) {
	t.Helper()

	projects := make([]uuid.UUID, n)
	owners := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		owners[i] = dbtest.InsertUser(t, e.db, "owner", false)
		projects[i] = dbtest.InsertProject(t, e.db, owners[i], "Project")
	}
	return projects, owners
}

// startCup creates and starts a full cup whose opening round ends in a day.
func (e *testEnv) startCup(t *testing.T, size int) testCup {
	t.Helper()
	ctx := context.Background()

	projects, owners := e.createProjects(t, size)
	c, err := e.cups.CreateCup(ctx, e.adminID, CreateCupInput{
		Name:       "Test Cup",
		Size:       size,
		ProjectIDs: projects,
	})
	require.NoError(t, err)

	_, err = e.cups.StartCup(ctx, c.ID, e.clock.now.Add(24*time.Hour))
	require.NoError(t, err)

	return testCup{ID: c.ID, Projects: projects, Owners: owners}
}

// voter creates a user holding a universal identity of the given tier.
func (e *testEnv) voter(t *testing.T, tier cup.IdentityType) uuid.UUID {
	t.Helper()

	userID := dbtest.InsertUser(t, e.db, "voter", false)
	dbtest.InsertIdentity(t, e.db, userID, string(tier), tier.VotingWeight(), nil)
	return userID
}

// ballot stores a vote of the given weight from a fresh user.
func (e *testEnv) ballot(t *testing.T, matchID uuid.UUID, side cup.Side, weight int) {
	t.Helper()

	userID := dbtest.InsertUser(t, e.db, "ballot", false)
	require.NoError(t, e.deps.Votes.CreateVote(context.Background(), e.db, &cup.Vote{
		ID:           uuid.New(),
		UserID:       userID,
		MatchID:      matchID,
		ProjectSide:  side,
		VotingWeight: weight,
		CreatedAt:    e.clock.now,
	}))
}

func (e *testEnv) roundMatches(t *testing.T, cupID uuid.UUID, round cup.Round) []cup.Match {
	t.Helper()

	matches, err := e.deps.Cups.GetRoundMatches(context.Background(), e.db, cupID, round)
	require.NoError(t, err)
	return matches
}

func (e *testEnv) getCup(t *testing.T, cupID uuid.UUID) *cup.Cup {
	t.Helper()

	c, err := e.deps.Cups.GetCup(context.Background(), e.db, cupID)
	require.NoError(t, err)
	return c
}

func (e *testEnv) notificationsOf(t *testing.T, userID uuid.UUID, kind cup.NotificationType) []cup.Notification {
	t.Helper()

	all, err := e.notifications.GetNotifications(context.Background(), userID, 100)
	require.NoError(t, err)

	var out []cup.Notification
	for _, n := range all {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

// decideRound gives project1 of every match in the round a one-vote lead and
// ends the round.
func (e *testEnv) decideRound(t *testing.T, cupID uuid.UUID, round cup.Round) {
	t.Helper()

	for _, m := range e.roundMatches(t, cupID, round) {
		e.ballot(t, m.ID, cup.SideProject1, 1)
	}
	_, err := e.rounds.EndRound(context.Background(), cupID)
	require.NoError(t, err)
}
