package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docbase", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docbase", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docbase", Name: "operations_total", Help: "Record operations by name and outcome."},
		[]string{"operation", "result"},
	)
	// RecordBytes moves by the fixed record size on every create and delete
	// committed by this process.
	RecordBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "docbase", Name: "record_bytes", Help: "Bytes of record storage allocated by this process, by record kind."},
		[]string{"kind"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(RecordBytes)
}
