package worker

import (
	"context"
	"time"

	"ExchangeQuotesService/internal/model"

	"github.com/sirupsen/logrus"
)

type RefreshJob struct {
	From model.Currency
	To   model.Currency
}

// Refresher re-reads a pair from upstream and updates the rate cache.
type Refresher interface {
	Refresh(ctx context.Context, from, to model.Currency) (float64, error)
}

// StartWorker processes jobs until ctx is done or jobs is closed.
func StartWorker(ctx context.Context, jobs <-chan RefreshJob, r Refresher, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			log.Debug("[Worker] stopped by context")
			return
		case job, ok := <-jobs:
			if !ok {
				log.Debug("[Worker] job channel closed")
				return
			}
			entry := log.WithFields(logrus.Fields{"from": job.From, "to": job.To})
			rate, err := r.Refresh(ctx, job.From, job.To)
			if err != nil {
				entry.WithError(err).Warn("[Worker] rate refresh failed")
				continue
			}
			entry.WithField("rate", rate).Debug("[Worker] rate refreshed")
		}
	}
}

// Pairs returns every ordered pair of distinct currencies.
func Pairs(currencies []model.Currency) []RefreshJob {
	jobs := make([]RefreshJob, 0, len(currencies)*(len(currencies)-1))
	for _, from := range currencies {
		for _, to := range currencies {
			if from != to {
				jobs = append(jobs, RefreshJob{From: from, To: to})
			}
		}
	}
	return jobs
}

// Schedule enqueues every pair immediately and then once per interval until ctx is done.
// A tick is skipped for pairs that do not fit in the queue.
func Schedule(ctx context.Context, jobs chan<- RefreshJob, pairs []RefreshJob, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for _, p := range pairs {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			default:
				log.WithFields(logrus.Fields{"from": p.From, "to": p.To}).Warn("[Worker] refresh queue full, skipping")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
