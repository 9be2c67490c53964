package cup

import "time"

// RoundEndDate is the shared end date of a round: the latest end date among
// its matches, falling back to the cup end date.
func RoundEndDate(matches []Match, round Round, cupEnd *time.Time) *time.Time {
	var latest *time.Time
	for i := range matches {
		m := &matches[i]
		if m.Round != round || m.EndDate == nil {
			continue
		}
		if latest == nil || m.EndDate.After(*latest) {
			latest = m.EndDate
		}
	}
	if latest != nil {
		return latest
	}
	return cupEnd
}

// EffectiveEndDate is when voting on the match stops: its own end date if set,
// otherwise the round end date.
func EffectiveEndDate(m *Match, roundEnd *time.Time) *time.Time {
	if m.EndDate != nil {
		return m.EndDate
	}
	return roundEnd
}

// IsExpired reports whether end has passed. A nil end date never expires.
func IsExpired(end *time.Time, now time.Time) bool {
	return end != nil && now.After(*end)
}

// ExpiredMatches returns the open matches whose effective end date passed.
func ExpiredMatches(matches []Match, cupEnd *time.Time, now time.Time) []Match {
	roundEnds := make(map[Round]*time.Time)
	var expired []Match
	for i := range matches {
		m := &matches[i]
		if m.Status == MatchCompleted {
			continue
		}
		roundEnd, ok := roundEnds[m.Round]
		if !ok {
			roundEnd = RoundEndDate(matches, m.Round, cupEnd)
			roundEnds[m.Round] = roundEnd
		}
		if IsExpired(EffectiveEndDate(m, roundEnd), now) {
			expired = append(expired, *m)
		}
	}
	return expired
}

// CupExpired reports whether an active cup is past its end date.
func CupExpired(c *Cup, now time.Time) bool {
	return c.Status == CupActive && IsExpired(c.EndDate, now)
}
