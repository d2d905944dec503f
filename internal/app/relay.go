package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-desk/internal/outbox"
	"github.com/xenking/order-desk/internal/repository"
)

// RunRelay publishes outbox records to Kafka until ctx is done, serving
// Prometheus metrics alongside.
func RunRelay(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	writer := outbox.NewKafkaWriter(cfg.Outbox.Brokers, cfg.Outbox.Topic)
	defer func() {
		if err := writer.Close(); err != nil {
			lg.Warn("Close kafka writer", zap.Error(err))
		}
	}()

	relay := outbox.NewRelay(
		repository.NewOutboxRepository(pool),
		outbox.NewKafkaPublisher(writer),
		outbox.NewMetrics(reg),
		lg.Named("relay"),
		outbox.RelayConfig{
			BatchSize:   cfg.Outbox.BatchSize,
			Interval:    cfg.Outbox.Interval,
			MaxAttempts: cfg.Outbox.MaxAttempts,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{
		Addr:              cfg.Outbox.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Relay started",
			zap.Strings("brokers", cfg.Outbox.Brokers),
			zap.String("topic", cfg.Outbox.Topic),
		)
		return relay.Run(ctx)
	})
	g.Go(func() error {
		lg.Info("Metrics listening", zap.String("addr", cfg.Outbox.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "metrics server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
