package rates

import (
	"context"
	"time"

	"ExchangeQuotesService/internal/metrics"
	"ExchangeQuotesService/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CachedSource serves rates from a cache and collapses concurrent misses for
// the same pair into one upstream call.
type CachedSource struct {
	source  Source
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewCachedSource(source Source, cache Cache, ttl time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl, metrics: m, log: log}
}

func pairKey(from, to model.Currency) string {
	return from.String() + ":" + to.String()
}

func (c *CachedSource) GetRate(ctx context.Context, from, to model.Currency) (float64, error) {
	key := pairKey(from, to)
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).WithField("pair", key).Warn("rate cache read failed")
	}
	if ok {
		c.metrics.RateCacheHit()
		return v, nil
	}
	c.metrics.RateCacheMiss()
	return c.Refresh(ctx, from, to)
}

// Refresh fetches the pair upstream, bypassing the cache, and stores the result.
// Callers collapsed onto one fetch each stop waiting when their own ctx is done;
// the fetch itself is not cancelled by any single caller.
func (c *CachedSource) Refresh(ctx context.Context, from, to model.Currency) (float64, error) {
	key := pairKey(from, to)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		r, err := c.source.GetRate(fetchCtx, from, to)
		if err != nil {
			c.metrics.RateFetchFailed()
			return 0.0, err
		}
		if err := c.cache.Set(fetchCtx, key, r, c.ttl); err != nil {
			c.log.WithError(err).WithField("pair", key).Warn("rate cache write failed")
		}
		return r, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}
