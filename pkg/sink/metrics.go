package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsWritten tracks records written by sink ("redis", "nats")
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jdy_sink_records_written_total",
			Help: "Total number of records written to sinks",
		},
		[]string{"sink"},
	)

	// SinkErrors tracks failed sink operations
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jdy_sink_errors_total",
			Help: "Total number of failed sink operations",
		},
		[]string{"sink", "operation"}, // "write", "load", "count", "publish", "flush"
	)
)
