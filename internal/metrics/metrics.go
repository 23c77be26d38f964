package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	quotesIssued      *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	rateFetchFailures prometheus.Counter
	rateCache         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_quotes_issued_total",
			Help: "Quotes issued by currency pair.",
		}, []string{"from", "to"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_redemptions_total",
			Help: "Sell requests by outcome.",
		}, []string{"result"}),
		rateFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exchange_rate_fetch_failures_total",
			Help: "Failed calls to the upstream rate source.",
		}),
		rateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_rate_cache_total",
			Help: "Rate cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.quotesIssued, m.redemptions, m.rateFetchFailures, m.rateCache)
	}
	return m
}

func (m *Metrics) QuoteIssued(from, to string) {
	if m == nil {
		return
	}
	m.quotesIssued.WithLabelValues(from, to).Inc()
}

// Redemption records a sell outcome such as "ok", "not_found" or "already_redeemed".
func (m *Metrics) Redemption(result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) RateFetchFailed() {
	if m == nil {
		return
	}
	m.rateFetchFailures.Inc()
}

func (m *Metrics) RateCacheHit() {
	if m == nil {
		return
	}
	m.rateCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) RateCacheMiss() {
	if m == nil {
		return
	}
	m.rateCache.WithLabelValues("miss").Inc()
}
