package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "atomicaudio"

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Total number of conversion attempts by target format and outcome",
		},
		[]string{"format", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of live conversion sessions",
		},
	)
)

// Abuse protection metrics
var (
	FloodBansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flood_bans_total",
			Help:      "Total number of users banned by the flood guardian",
		},
	)

	FloodRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flood_rejections_total",
			Help:      "Total number of events rejected for already-banned users",
		},
	)
)

// Business metrics
var (
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Total number of successful subscription payments by plan",
		},
		[]string{"plan"},
	)

	ReferralBonusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_bonuses_total",
			Help:      "Total number of referral bonuses granted",
		},
	)
)
