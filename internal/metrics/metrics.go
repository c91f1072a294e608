package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "housecup"

// Metrics groups the counters the election, attendance and broadcast
// components report. A nil Registerer builds unregistered collectors.
type Metrics struct {
	VotesCast            prometheus.Counter
	VotesRejected        *prometheus.CounterVec
	VotesReset           prometheus.Counter
	NominationsSubmitted prometheus.Counter
	NominationsModerated *prometheus.CounterVec
	WinnersDeclared      prometheus.Counter
	AttendanceMarks      *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	EventsDropped        *prometheus.CounterVec
	Subscribers          prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes accepted by the ledger",
		}),
		VotesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_rejected_total",
			Help:      "Vote casts refused, by reason",
		}, []string{"reason"}),
		VotesReset: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_reset_total",
			Help:      "Vote rows deleted by result resets",
		}),
		NominationsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nominations_submitted_total",
			Help:      "Nominations accepted as pending",
		}),
		NominationsModerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nominations_moderated_total",
			Help:      "Moderation decisions applied",
		}, []string{"decision"}),
		WinnersDeclared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winners_declared_total",
			Help:      "Winner declarations committed",
		}),
		AttendanceMarks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Attendance mark attempts, by outcome",
		}, []string{"outcome"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "events_published_total",
			Help:      "Events accepted by the broadcast bus",
		}, []string{"type"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a queue was full or the bus was stopped",
		}, []string{"type", "stage"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Currently attached subscribers",
		}),
	}
}
