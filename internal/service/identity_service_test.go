package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/db/dbtest"
	"github.com/hominio/cups/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	identities := NewIdentityService(env.db, env.deps.Identities, store.NewUserStore(env.db), env.deps.Cups)
	tc := env.startCup(t, 4)
	userID := dbtest.InsertUser(t, env.db, "member", false)

	identity, err := identities.Grant(ctx, GrantInput{UserID: userID, IdentityType: cup.IdentityFounder})
	require.NoError(t, err)
	assert.Equal(t, 5, identity.VotingWeight)
	assert.Nil(t, identity.CupID)

	scoped, err := identities.Grant(ctx, GrantInput{UserID: userID, IdentityType: cup.IdentityAngel, CupID: &tc.ID})
	require.NoError(t, err)
	assert.Equal(t, 10, scoped.VotingWeight)

	granted, err := identities.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, granted, 2)

	_, err = identities.Grant(ctx, GrantInput{UserID: userID, IdentityType: "whale"})
	assert.ErrorIs(t, err, cup.ErrInvalidIdentity)

	_, err = identities.Grant(ctx, GrantInput{UserID: uuid.New(), IdentityType: cup.IdentityHominio})
	assert.ErrorIs(t, err, cup.ErrNotFound)

	missingCup := uuid.New()
	_, err = identities.Grant(ctx, GrantInput{UserID: userID, IdentityType: cup.IdentityHominio, CupID: &missingCup})
	assert.ErrorIs(t, err, cup.ErrNotFound)
}

func TestProjectService(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	projects := NewProjectService(store.NewProjectStore(db))
	ownerID := dbtest.InsertUser(t, db, "owner", false)

	_, err := projects.Create(ctx, ownerID, " ", "")
	assert.ErrorIs(t, err, cup.ErrInvalidName)

	p, err := projects.Create(ctx, ownerID, "Solar Coop", " Panels for everyone ")
	require.NoError(t, err)
	assert.Equal(t, "Panels for everyone", p.Description)

	mine, err := projects.List(ctx, &ownerID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)
}

func TestNotificationService(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	notificationStore := store.NewNotificationStore(db)
	notifications := NewNotificationService(notificationStore)
	userID := dbtest.InsertUser(t, db, "owner", false)

	err := notifications.Subscribe(ctx, userID, "http://insecure.example", "k", "a")
	assert.ErrorIs(t, err, cup.ErrInvalidSubscription)
	require.NoError(t, notifications.Subscribe(ctx, userID, "https://push.example/1", "k", "a"))

	subs, err := notificationStore.GetSubscriptions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	n := &cup.Notification{ID: uuid.New(), UserID: userID, Type: cup.NotifyCupWon, Title: "t", Message: "m"}
	require.NoError(t, notificationStore.CreateNotification(ctx, n))

	list, err := notifications.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, notifications.MarkRead(ctx, userID, n.ID))
	assert.ErrorIs(t, notifications.MarkRead(ctx, userID, uuid.New()), cup.ErrNotFound)
}
