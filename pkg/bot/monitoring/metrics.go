package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandDuration is the duration of each dispatched command.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bot_command_duration",
			Help: "Duration of dispatched commands",
		},
		[]string{"command"},
	)

	// CommandTotal is the total number of dispatched commands by outcome.
	CommandTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_command_total",
			Help: "Total number of dispatched commands",
		},
		[]string{"command", "outcome"},
	)
)
