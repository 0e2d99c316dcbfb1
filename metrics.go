package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the bot.
type Metrics struct {
	UpdatesHandled  *prometheus.CounterVec
	SessionsStarted prometheus.Counter
	SessionsAborted prometheus.Counter
	ProfilesSaved   prometheus.Counter
	LikesRecorded   prometheus.Counter
	LikesThrottled  prometheus.Counter
	MatchesDetected prometheus.Counter
	ReportsRecorded prometheus.Counter
}

// NewMetrics creates and registers all instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdatesHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datingbot_updates_handled_total",
			Help: "Total number of inbound updates, by kind",
		}, []string{"kind"}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_sessions_started_total",
			Help: "Total number of onboarding sessions started",
		}),
		SessionsAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_sessions_aborted_total",
			Help: "Total number of onboarding sessions aborted at validation",
		}),
		ProfilesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_profiles_saved_total",
			Help: "Total number of profiles committed to the store",
		}),
		LikesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_likes_recorded_total",
			Help: "Total number of like events written to the ledger",
		}),
		LikesThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_likes_throttled_total",
			Help: "Total number of likes rejected by the daily limit",
		}),
		MatchesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_matches_detected_total",
			Help: "Total number of mutual matches detected",
		}),
		ReportsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "datingbot_reports_recorded_total",
			Help: "Total number of report events written to the ledger",
		}),
	}
}
