package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuoteIssued("eth", "btc")
	m.QuoteIssued("eth", "btc")
	m.Redemption("ok")
	m.Redemption("")
	m.RateFetchFailed()
	m.RateCacheHit()
	m.RateCacheMiss()
	m.RateCacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.quotesIssued.WithLabelValues("eth", "btc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateFetchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateCache.WithLabelValues("miss")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.QuoteIssued("eth", "btc")
		m.Redemption("ok")
		m.RateFetchFailed()
		m.RateCacheHit()
		m.RateCacheMiss()
	})
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RateFetchFailed()

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "exchange_rate_fetch_failures_total")
}
