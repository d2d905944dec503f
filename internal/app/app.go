package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-desk/internal/auth"
	"github.com/xenking/order-desk/internal/domain/address"
	"github.com/xenking/order-desk/internal/domain/order"
	"github.com/xenking/order-desk/internal/domain/product"
	"github.com/xenking/order-desk/internal/domain/user"
	"github.com/xenking/order-desk/internal/handler"
	"github.com/xenking/order-desk/internal/repository"
	"github.com/xenking/order-desk/pkg/health"
	"github.com/xenking/order-desk/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "validate config")
	}
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Domain services.
	passwords := auth.Bcrypt{Cost: cfg.Auth.BcryptCost}
	tokens := auth.NewTokens([]byte(cfg.Auth.Secret), cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	orderService, err := order.NewService(orderRepo, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.New(handler.Config{ImageBaseURL: cfg.ImageBaseURL}, handler.Services{
		Resolver:  auth.NewResolver(tokens, userRepo),
		Accounts:  auth.NewAccounts(userRepo, passwords, tokens),
		Users:     user.NewService(userRepo, passwords),
		Products:  product.NewService(productRepo),
		Addresses: address.NewService(addressRepo),
		Orders:    orderService,
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(routes(ctx, cfg.RateLimit, h, healthSvc),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("order-desk", m.TracerProvider(), m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	healthSvc.SetReady(true)
	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// routes builds the API handler. Each client IP is limited before the bearer
// token is resolved, and each caller after it.
func routes(ctx context.Context, rl RateLimitConfig, h *handler.Handler, healthSvc *health.Health) http.Handler {
	router := h.Router(
		httpmiddleware.Labeler(),
		httpmiddleware.LogRequests(),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     rl.Max,
			Window:  rl.Window,
			KeyFunc: handler.RateLimitKey,
		}),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	return httpmiddleware.Wrap(router,
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    rl.IPMax,
			Window: rl.Window,
		}),
	)
}
