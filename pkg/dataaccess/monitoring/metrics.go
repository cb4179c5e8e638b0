package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MongoLatency observes how long each store query takes, per DAL and query.
	MongoLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataaccess_mongo_latency",
			Help: "Latency of MongoDB queries",
		},
		[]string{"dal", "query", "database", "collection"},
	)

	// MongoTotalRequests counts every store query issued, per DAL and query.
	MongoTotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataaccess_mongo_total_requests",
			Help: "Total number of MongoDB queries",
		},
		[]string{"dal", "query", "database", "collection"},
	)
)
