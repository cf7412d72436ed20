package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/brightsmile-clinic/claims-platform/cmd/mainconfig"
	"github.com/brightsmile-clinic/claims-platform/internal/api/router"
	"github.com/brightsmile-clinic/claims-platform/internal/archive"
	"github.com/brightsmile-clinic/claims-platform/internal/claims"
	appconfig "github.com/brightsmile-clinic/claims-platform/internal/config"
	"github.com/brightsmile-clinic/claims-platform/internal/http/handlers"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance/httptransport"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance/jubilee"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance/nhif"
	"github.com/brightsmile-clinic/claims-platform/internal/observability/metrics"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// ledgerPreauths narrows the claim ledger to the lookup the NHIF resolver
// needs.
type ledgerPreauths struct {
	ledger claims.Ledger
}

func (p ledgerPreauths) FindPreauth(ctx context.Context, encounterID string) (*insurance.AuthorizationContext, error) {
	record, err := p.ledger.FindPreauth(ctx, encounterID, insurance.ProviderNHIF)
	if err != nil {
		if errors.Is(err, claims.ErrClaimNotFound) {
			return nil, nil
		}
		return nil, err
	}
	status := insurance.AuthPending
	if record.AuthorizationNumber != "" {
		status = insurance.AuthApproved
	}
	return &insurance.AuthorizationContext{
		ProviderID:          insurance.ProviderNHIF,
		AuthorizationNumber: record.AuthorizationNumber,
		SubmissionID:        record.SubmissionID,
		Status:              status,
	}, nil
}

func main() {
	// Best effort; production injects env directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting claims-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Ledger: postgres in production, in-memory when no database is
	// configured (local development against fake gateways).
	var ledger claims.Ledger
	var reportsDB *sql.DB
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		ledger = claims.NewPostgresLedger(pool)

		reportsDB, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open reporting connection", "error", err)
			os.Exit(1)
		}
		defer reportsDB.Close()
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory claim ledger")
		ledger = claims.NewMemoryLedger()
	}

	// Auth/session cache.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	authCache := claims.NewAuthCache(redisClient, cfg.AuthCacheTTL)

	// Claim audit archive, disabled when no bucket is configured.
	var archiveStore *archive.Store
	if cfg.ArchiveBucket != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		archiveStore = archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger.Logger)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	claimsMetrics := metrics.NewClaimsMetrics(promRegistry)

	// Provider integrations.
	registry := insurance.NewRegistry()

	nhifTransport := httptransport.New(httptransport.Config{
		BaseURL:  cfg.NHIFBaseURL,
		TokenURL: cfg.NHIFBaseURL + "/token",
		Username: cfg.NHIFUsername,
		Password: cfg.NHIFPassword,
	}, logger)
	registry.Register(insurance.ProviderNHIF, insurance.Registration{
		Adapter:   nhif.NewAdapter(nhifTransport, logger),
		Resolver:  nhif.NewResolver(nhifTransport, ledgerPreauths{ledger: ledger}, authCache, cfg.NHIFFacilityCode, logger),
		Transport: nhifTransport,
	})

	jubileeTransport := httptransport.New(httptransport.Config{
		BaseURL:  cfg.JubileeBaseURL,
		TokenURL: cfg.JubileeBaseURL + "/token",
		Username: cfg.JubileeProviderCode,
		Password: cfg.JubileeAPIKey,
	}, logger)
	for _, id := range []insurance.ProviderID{insurance.ProviderJubilee, insurance.ProviderStrategis} {
		registry.Register(id, insurance.Registration{
			Adapter:   jubilee.NewAdapter(jubileeTransport, logger),
			Resolver:  jubilee.NewResolver(jubileeTransport, authCache, logger),
			Transport: jubileeTransport,
		})
	}
	registry.Register(insurance.ProviderCash, insurance.Registration{
		Adapter:   insurance.CashAdapter{},
		Transport: insurance.NoTransport{},
	})

	orchestrator := claims.NewOrchestrator(claims.OrchestratorConfig{
		Registry:   registry,
		Ledger:     ledger,
		Cache:      authCache,
		Archive:    archiveStore,
		Metrics:    claimsMetrics,
		Logger:     logger,
		RetryDelay: cfg.TransientRetryDelay,
	})

	routerCfg := &router.Config{
		Logger:              logger,
		ClaimsHandler:       handlers.NewClaimsHandler(orchestrator, registry, logger),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  splitOrigins(cfg.CORSAllowedOrigins),
		SubmitRatePerSecond: 5,
		SubmitBurst:         10,
	}
	if reportsDB != nil {
		routerCfg.AdminReports = handlers.NewAdminReportsHandler(reportsDB, logger)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
