package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics are the relay's Prometheus collectors.
type Metrics struct {
	Published prometheus.Counter
	Failed    prometheus.Counter
	Parked    prometheus.Counter
	Pending   prometheus.Gauge
}

// NewMetrics registers relay collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orders",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox records published to Kafka.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orders",
			Subsystem: "outbox",
			Name:      "publish_failures_total",
			Help:      "Outbox batches that failed to publish.",
		}),
		Parked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orders",
			Subsystem: "outbox",
			Name:      "parked_total",
			Help:      "Outbox records that reached the attempt limit and are no longer retried.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orders",
			Subsystem: "outbox",
			Name:      "pending",
			Help:      "Outbox records waiting to be published.",
		}),
	}
	reg.MustRegister(m.Published, m.Failed, m.Parked, m.Pending)
	return m
}

// maxBackoff caps the poll delay after consecutive failed flushes.
const maxBackoff = time.Minute

// RelayConfig controls batching and polling.
type RelayConfig struct {
	BatchSize int
	Interval  time.Duration
	// MaxAttempts is the number of failed single-record publishes after
	// which a record is parked.
	MaxAttempts int
}

// Relay moves pending outbox records to a Publisher. Several relays may run
// against one database; claimed rows are skipped by the others.
type Relay struct {
	store   Store
	pub     Publisher
	metrics *Metrics
	lg      *zap.Logger
	cfg     RelayConfig
}

// NewRelay creates a Relay.
func NewRelay(store Store, pub Publisher, metrics *Metrics, lg *zap.Logger, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Relay{store: store, pub: pub, metrics: metrics, lg: lg, cfg: cfg}
}

// Run polls until ctx is done. Publish failures are logged and retried with
// a doubling delay.
func (r *Relay) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			failures++
			r.lg.Warn("Outbox flush failed", zap.Int("failures", failures), zap.Error(err))
		} else {
			failures = 0
		}
		timer.Reset(r.backoff(failures))
	}
}

// backoff returns the delay before the next poll.
func (r *Relay) backoff(failures int) time.Duration {
	limit := max(maxBackoff, r.cfg.Interval)
	d := r.cfg.Interval
	for i := 0; i < failures && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

// Flush publishes batches until fewer than BatchSize records are pending,
// and returns the number of records sent. When a batch fails, the rest of
// the flush publishes one record at a time so that only the failing record
// is charged an attempt.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	limit := r.cfg.BatchSize
	for {
		var claimed []Record
		n, err := r.store.Claim(ctx, limit, r.cfg.MaxAttempts, func(ctx context.Context, recs []Record) error {
			claimed = recs
			return r.pub.Publish(ctx, recs)
		})
		total += n
		r.metrics.Published.Add(float64(n))
		if err != nil {
			if len(claimed) == 0 {
				return total, errors.Wrap(err, "claim")
			}
			r.metrics.Failed.Inc()
			if len(claimed) > 1 {
				limit = 1
				continue
			}
			if rec := claimed[0]; rec.Attempts+1 >= r.cfg.MaxAttempts {
				r.metrics.Parked.Inc()
				r.lg.Error("Outbox record parked",
					zap.Int64("outbox_id", rec.ID),
					zap.Stringer("event_id", rec.EventID),
					zap.String("event_type", rec.Type),
					zap.Int("attempts", rec.Attempts+1),
					zap.Error(err),
				)
			}
			return total, errors.Wrap(err, "publish record")
		}
		if n < limit {
			break
		}
	}
	if total > 0 {
		r.lg.Debug("Outbox flushed", zap.Int("records", total))
	}

	pending, err := r.store.Pending(ctx)
	if err != nil {
		return total, errors.Wrap(err, "count pending")
	}
	r.metrics.Pending.Set(float64(pending))
	return total, nil
}
