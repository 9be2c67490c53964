// Package metrics exposes Prometheus counters for cup activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	VotesCast      *prometheus.CounterVec
	VoteWeight     *prometheus.CounterVec
	VotesRejected  *prometheus.CounterVec
	WinnersDecided prometheus.Counter
	RoundsStarted  *prometheus.CounterVec
	CupsCompleted  prometheus.Counter
	MatchesExpired prometheus.Counter
	CupsExpired    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hominio_cup_votes_total",
			Help: "Votes accepted, by identity tier.",
		}, []string{"identity"}),
		VoteWeight: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hominio_cup_vote_weight_total",
			Help: "Voting weight accepted, by identity tier.",
		}, []string{"identity"}),
		VotesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hominio_cup_votes_rejected_total",
			Help: "Votes refused, by reason.",
		}, []string{"reason"}),
		WinnersDecided: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hominio_cup_match_winners_total",
			Help: "Match winners recorded.",
		}),
		RoundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hominio_cup_rounds_started_total",
			Help: "Rounds generated, by round name.",
		}, []string{"round"}),
		CupsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hominio_cups_completed_total",
			Help: "Cups finished with a winner.",
		}),
		MatchesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hominio_cup_matches_expired_total",
			Help: "Matches closed because voting ended.",
		}),
		CupsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hominio_cups_expired_total",
			Help: "Cups closed because their end date passed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.VotesCast,
		m.VoteWeight,
		m.VotesRejected,
		m.WinnersDecided,
		m.RoundsStarted,
		m.CupsCompleted,
		m.MatchesExpired,
		m.CupsExpired,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
