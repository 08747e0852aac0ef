package messenger

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch and submission outcomes, used as the "result" label.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDiscarded = "discarded"
	ResultRejected  = "rejected"
)

// Metrics counts scheduler and gateway activity.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	Submissions   *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portalchat",
				Subsystem: "sync",
				Name:      "fetches_total",
				Help:      "Fetch cycles by result (ok, error, discarded).",
			},
			[]string{"result"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "portalchat",
				Subsystem: "sync",
				Name:      "fetch_duration_seconds",
				Help:      "Time spent listing records from the message store.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portalchat",
				Subsystem: "gateway",
				Name:      "submissions_total",
				Help:      "Message submissions by result (ok, rejected).",
			},
			[]string{"result"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Fetches, m.FetchDuration, m.Submissions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) fetch(result string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) observeFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) submission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}
