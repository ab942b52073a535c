package workers

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// SubscriberCounter is implemented by *repositories.Store.
type SubscriberCounter interface {
	SubscriberCounts() map[string]int
}

// SubscriberReportWorker periodically logs how many live subscriptions each collection has.
// Counts are sampled, a subscription opened and closed between two ticks is never seen.
type SubscriberReportWorker struct {
	log      *slog.Logger
	counter  SubscriberCounter
	interval time.Duration
}

func NewSubscriberReportWorker(log *slog.Logger, counter SubscriberCounter, interval time.Duration) *SubscriberReportWorker {
	return &SubscriberReportWorker{log: log, counter: counter, interval: interval}
}

func (w *SubscriberReportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping subscriber report")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *SubscriberReportWorker) report() {
	counts := w.counter.SubscriberCounts()
	total := 0
	for _, collection := range slices.Sorted(maps.Keys(counts)) {
		total += counts[collection]
		w.log.Debug("Live subscribers", "collection", collection, "count", counts[collection])
	}
	w.log.Info("Subscriber report", "collections", len(counts), "subscribers", total)
}
