package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hominio/cups/internal/cup"
	"github.com/hominio/cups/internal/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotesAndTallies(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	cups := NewCupStore()
	votes := NewVoteStore()

	ownerID := dbtest.InsertUser(t, db, "owner", false)
	c := createTestCup(t, db, ownerID, 4)
	p1 := dbtest.InsertProject(t, db, ownerID, "A")
	p2 := dbtest.InsertProject(t, db, ownerID, "B")

	now := time.Now().UTC()
	m := cup.Match{ID: uuid.New(), CupID: c.ID, Round: cup.Semi, Position: 1, Project1ID: p1, Project2ID: p2, Status: cup.MatchVoting, CreatedAt: now, UpdatedAt: now}
	other := cup.Match{ID: uuid.New(), CupID: c.ID, Round: cup.Semi, Position: 2, Project1ID: p1, Project2ID: p2, Status: cup.MatchVoting, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, cups.CreateMatches(ctx, db, []cup.Match{m, other}))

	ballots := []struct {
		side   cup.Side
		weight int
	}{
		{cup.SideProject1, 5},
		{cup.SideProject1, 1},
		{cup.SideProject2, 10},
		{cup.SideProject1, 1},
	}
	var voters []uuid.UUID
	for i, b := range ballots {
		voter := dbtest.InsertUser(t, db, "voter"+string(rune('a'+i)), false)
		voters = append(voters, voter)
		require.NoError(t, votes.CreateVote(ctx, db, &cup.Vote{
			ID: uuid.New(), UserID: voter, MatchID: m.ID, ProjectSide: b.side, VotingWeight: b.weight, CreatedAt: now,
		}))
	}

	tally, err := votes.Tally(ctx, db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, cup.Tally{Votes1: 7, Votes2: 10}, tally)

	tallies, err := votes.Tallies(ctx, db, []uuid.UUID{m.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, cup.Tally{Votes1: 7, Votes2: 10}, tallies[m.ID])
	assert.Equal(t, cup.Tally{}, tallies[other.ID])

	voted, err := votes.HasVoted(ctx, db, voters[0], m.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	voted, err = votes.HasVoted(ctx, db, voters[0], other.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	v, err := votes.GetUserVote(ctx, db, voters[2], m.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, cup.SideProject2, v.ProjectSide)
	assert.Equal(t, 10, v.VotingWeight)

	v, err = votes.GetUserVote(ctx, db, voters[2], other.ID)
	require.NoError(t, err)
	assert.Nil(t, v)

	count, err := votes.CountVotes(ctx, db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestCreateVoteRejectsSecondBallot(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	cups := NewCupStore()
	votes := NewVoteStore()

	ownerID := dbtest.InsertUser(t, db, "owner", false)
	voterID := dbtest.InsertUser(t, db, "voter", false)
	c := createTestCup(t, db, ownerID, 4)
	p1 := dbtest.InsertProject(t, db, ownerID, "A")
	p2 := dbtest.InsertProject(t, db, ownerID, "B")

	now := time.Now().UTC()
	m := cup.Match{ID: uuid.New(), CupID: c.ID, Round: cup.Semi, Position: 1, Project1ID: p1, Project2ID: p2, Status: cup.MatchVoting, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, cups.CreateMatches(ctx, db, []cup.Match{m}))

	first := &cup.Vote{ID: uuid.New(), UserID: voterID, MatchID: m.ID, ProjectSide: cup.SideProject1, VotingWeight: 1, CreatedAt: now}
	require.NoError(t, votes.CreateVote(ctx, db, first))

	second := &cup.Vote{ID: uuid.New(), UserID: voterID, MatchID: m.ID, ProjectSide: cup.SideProject2, VotingWeight: 1, CreatedAt: now}
	assert.ErrorIs(t, votes.CreateVote(ctx, db, second), cup.ErrAlreadyVoted)

	tally, err := votes.Tally(ctx, db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, cup.Tally{Votes1: 1}, tally)
}

func TestCreateVoteOnDecidedMatch(t *testing.T) {
	db := dbtest.Setup(t)
	ctx := context.Background()
	cups := NewCupStore()
	votes := NewVoteStore()

	ownerID := dbtest.InsertUser(t, db, "owner", false)
	voterID := dbtest.InsertUser(t, db, "voter", false)
	c := createTestCup(t, db, ownerID, 4)
	p1 := dbtest.InsertProject(t, db, ownerID, "A")
	p2 := dbtest.InsertProject(t, db, ownerID, "B")

	now := time.Now().UTC()
	m := cup.Match{ID: uuid.New(), CupID: c.ID, Round: cup.Semi, Position: 1, Project1ID: p1, Project2ID: p2, Status: cup.MatchVoting, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, cups.CreateMatches(ctx, db, []cup.Match{m}))

	ok, err := cups.SetMatchWinner(ctx, db, m.ID, p1, now)
	require.NoError(t, err)
	require.True(t, ok)

	late := &cup.Vote{ID: uuid.New(), UserID: voterID, MatchID: m.ID, ProjectSide: cup.SideProject2, VotingWeight: 10, CreatedAt: now}
	assert.ErrorIs(t, votes.CreateVote(ctx, db, late), cup.ErrMatchClosed)

	tally, err := votes.Tally(ctx, db, m.ID)
	require.NoError(t, err)
	assert.Equal(t, cup.Tally{}, tally)
}
