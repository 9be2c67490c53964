package cup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundEndDate(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	early := now.Add(time.Hour)
	late := now.Add(2 * time.Hour)
	cupEnd := now.Add(24 * time.Hour)

	matches := []Match{
		{Round: Quarter, EndDate: &early},
		{Round: Quarter, EndDate: &late},
		{Round: Quarter},
		{Round: Semi},
	}

	assert.Equal(t, late, *RoundEndDate(matches, Quarter, &cupEnd))
	assert.Equal(t, cupEnd, *RoundEndDate(matches, Semi, &cupEnd))
	assert.Nil(t, RoundEndDate(matches, Semi, nil))
}

func TestEffectiveEndDate(t *testing.T) {
	now := time.Now()
	own := now.Add(-time.Minute)
	round := now.Add(time.Hour)

	assert.Equal(t, own, *EffectiveEndDate(&Match{EndDate: &own}, &round))
	assert.Equal(t, round, *EffectiveEndDate(&Match{}, &round))
	assert.Nil(t, EffectiveEndDate(&Match{}, nil))
}

func TestExpiredMatches(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	matches := []Match{
		{Position: 1, Round: Quarter, Status: MatchVoting, EndDate: &past},
		{Position: 2, Round: Quarter, Status: MatchVoting, EndDate: &future},
		{Position: 3, Round: Quarter, Status: MatchCompleted, EndDate: &past},
		// Falls back to the cup end date
		{Position: 1, Round: Semi, Status: MatchVoting},
	}

	expired := ExpiredMatches(matches, &past, now)
	require.Len(t, expired, 2)
	assert.Equal(t, 1, expired[0].Position)
	assert.Equal(t, Semi, expired[1].Round)

	assert.Empty(t, ExpiredMatches(matches[1:2], nil, now))
}

func TestCupExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)

	assert.True(t, CupExpired(&Cup{Status: CupActive, EndDate: &past}, now))
	assert.False(t, CupExpired(&Cup{Status: CupDraft, EndDate: &past}, now))
	assert.False(t, CupExpired(&Cup{Status: CupActive}, now))
}
