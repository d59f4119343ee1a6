package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	version       = "1.0.0"
	renderTimeout = 10 * time.Second
	cacheNone     = "no-cache"
)

// newDashboardHandler renders the page shell with the filter form seeded
// from the loaded data.
func newDashboardHandler(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		domains, err := analytics.Domains(ctx)
		if err != nil {
			errors.WriteError(w, logger,
				errors.ServiceUnavailableWrap(err, "Sales data is not available"),
				observability.GetRequestID(r.Context()))
			return
		}

		w.Header().Set("Cache-Control", cacheNone)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// Part of the page may already be on the wire, so a failure is only logged.
		if err := templates.Dashboard(templates.DashboardProps{Domains: domains}).Render(ctx, w); err != nil {
			observability.RequestLogger(r.Context(), logger).Error("render dashboard", "error", err)
		}
	}
}

func dashboardOptions(cfg config.DashboardConfig) services.Options {
	return services.Options{
		TopN:           cfg.TopN,
		TopCustomers:   cfg.TopCustomers,
		PreviewRows:    cfg.PreviewRows,
		AgeBucketWidth: cfg.AgeBucketWidth,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"addr", cfg.Address(),
		"data_file", cfg.Data.File,
	)

	analytics := services.NewAnalytics(cfg.Data.File, dataset.NewCache(nil), dashboardOptions(cfg.Dashboard), logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	err = analytics.Load(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load sales data", "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: newDashboardHandler(analytics, logger),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("analytics-stats", func(ctx context.Context) error {
		logger.Info("final analytics stats", "stats", analytics.Stats())
		return nil
	})
	gracefulServer.RegisterShutdownHook("rate-limiter", func(ctx context.Context) error {
		logger.Info("rate limiter stopped", "visitors", rateLimiter.Visitors())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
