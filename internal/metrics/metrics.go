// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingAdmissions counts admission attempts by result (accepted, rejected, error).
	BookingAdmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyroom_booking_admissions_total",
		Help: "Booking admission attempts by result",
	}, []string{"result"})

	// BookingTransitions counts lifecycle transitions by target status.
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyroom_booking_transitions_total",
		Help: "Booking status transitions by target status",
	}, []string{"status"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyroom_sweep_runs_total",
		Help: "Expiration sweep runs by result",
	}, []string{"result"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studyroom_sweep_duration_seconds",
		Help:    "Expiration sweep duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyroom_reminders_sent_total",
		Help: "Booking reminders delivered",
	})

	// ReputationPenalties counts applied penalties by reason.
	ReputationPenalties = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyroom_reputation_penalties_total",
		Help: "Reputation penalties applied by reason",
	}, []string{"reason"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyroom_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)
