package crpt

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Submissions *prometheus.CounterVec
	Latency     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crpt_submissions_total",
			Help: "Finished document submissions by result code",
		}, []string{"code"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crpt_submission_duration_seconds",
			Help:    "Submission wall time, permit wait included",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Submissions, m.Latency)
	return m
}
