package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/agents"
	"github.com/banking/kyc-service/internal/api"
	"github.com/banking/kyc-service/internal/audit"
	"github.com/banking/kyc-service/internal/cache"
	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/document"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/events"
	"github.com/banking/kyc-service/internal/kyc"
	"github.com/banking/kyc-service/internal/metrics"
	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/repository/postgres"
	"github.com/banking/kyc-service/internal/risk"
	"github.com/banking/kyc-service/internal/screening"
	"github.com/banking/kyc-service/internal/storage"
	"github.com/banking/kyc-service/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kyc-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 2. Initialize Logger
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := telemetry.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	// 4. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 5. Storage backends
	db, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	log.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))

	objects, err := storage.NewS3Store(ctx, &cfg.Storage)
	if err != nil {
		return err
	}

	qt := cfg.Database.QueryTimeout
	documents := postgres.NewDocumentRepository(db, qt)
	customers := postgres.NewCustomerRepository(db, qt)
	consents := postgres.NewConsentRepository(db, qt)
	auditRepo := postgres.NewAuditRepository(db, qt)

	// 6. Agent gateway
	gateway := agents.NewClient(&cfg.Agents, &http.Client{}, log)

	// 7. Redis: distributed lock, context cache, shared watchlists
	var watchlist screening.WatchlistSource = screening.FileSource{
		SanctionsPath: cfg.Screening.SanctionsList,
		PEPPath:       cfg.Screening.PEPList,
	}
	var (
		locker    kyc.Locker            = kyc.NewKeyedMutex()
		retriever risk.ContextRetriever = gateway
		rdb       *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb, err = cache.NewClient(ctx, &cfg.Redis, log)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		locker = cache.NewRedisLocker(rdb, cfg.Redis.LockTTL, cfg.Redis.LockRetryDelay, log)
		retriever = cache.NewContextCache(rdb, gateway, cfg.Redis.ContextCacheTTL, log)
		watchlist = cache.NewWatchlistSource(rdb, watchlist, log)
	} else {
		log.Warn("Redis disabled, customer locks are process-local")
	}

	// 8. Kafka: alerts and audit stream
	var alerts kyc.AlertPublisher
	auditSinks := []audit.NamedSink{{Name: "postgres", Sink: auditRepo}}
	if cfg.Kafka.Enabled {
		publisher, err := events.NewPublisher(&cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		alerts = publisher
		auditSinks = append(auditSinks, audit.NamedSink{Name: "kafka", Sink: publisher})
	} else {
		log.Warn("Kafka disabled, compliance alerts are logged only")
	}
	recorder := audit.NewRecorder(auditSinks...)

	// 9. Screening
	screener := screening.NewScreener(watchlist, &cfg.Screening, log)
	if err := screener.Refresh(ctx); err != nil {
		log.Warn("Initial watchlist load failed, screening with empty lists", zap.Error(err))
	}
	go screener.Run(ctx)

	// 10. Risk engine
	oracle := risk.NewBreakerOracle(gateway, risk.BreakerSettings{
		MaxRequests:      cfg.Risk.BreakerMaxRequests,
		Interval:         cfg.Risk.BreakerInterval,
		Timeout:          cfg.Risk.BreakerTimeout,
		FailureThreshold: cfg.Risk.BreakerFailureThreshold,
	}, log)
	assessor := risk.NewAssessor(oracle, retriever, m, &cfg.Agents, &cfg.Risk, log)
	profiles := risk.NewProfileBuilder(customers, customers, customers, screener, &cfg.Patterns, log)

	// 11. Document pipeline and orchestrator
	processor := document.NewProcessor(objects, gateway, gateway, documents, m, document.ProcessorConfig{
		ConfidenceThreshold: cfg.Risk.ConfidenceThreshold,
		RetentionDays:       cfg.Compliance.RetentionDays,
		StorageTimeout:      cfg.Storage.Timeout,
		ExtractionTimeout:   cfg.Agents.ExtractionTimeout,
		AnalysisTimeout:     cfg.Agents.DocumentTimeout,
	}, log)

	orchestrator := kyc.NewOrchestrator(kyc.Deps{
		Consent:   consents,
		Router:    gateway,
		Processor: processor,
		Documents: documents,
		Profiles:  profiles,
		Assessor:  assessor,
		Audit:     recorder,
		Alerts:    alerts,
		Locker:    locker,
		Observer:  m,
	}, kyc.Config{
		ConsentPurpose:      cfg.Compliance.ConsentPurpose,
		ConfidenceThreshold: cfg.Risk.ConfidenceThreshold,
		LockWaitTimeout:     cfg.Compliance.LockWaitTimeout,
		RoutingTimeout:      cfg.Agents.RoutingTimeout,
	}, log)

	// 12. HTTP servers
	checks := map[string]api.HealthCheck{
		"postgres": db.PingContext,
		"storage":  objects.Ping,
		"oracle":   oracle.Check,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	handler := api.NewHandler(orchestrator, auditRepo, checks, log)
	if cfg.Compliance.DefaultLegalBasis != "" {
		basis, err := domain.ParseLegalBasis(cfg.Compliance.DefaultLegalBasis)
		if err != nil {
			return fmt.Errorf("compliance.default_legal_basis: %w", err)
		}
		handler.WithDefaultLegalBasis(basis)
	}

	e := api.NewServer(handler, m, api.Config{
		MaxUploadBytes: cfg.Server.MaxRequestSize,
		RequestTimeout: cfg.Server.RequestTimeout,
		Security:       cfg.Security,
	}, log)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	me := echo.New()
	me.HideBanner = true
	me.HidePort = true
	me.GET("/metrics", echo.WrapHandler(m.Handler()))

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	metricsAddr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)

	errCh := make(chan error, 2)
	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		if err := me.Start(metricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	log.Info("Server started",
		zap.String("addr", serverAddr),
		zap.String("metrics_addr", metricsAddr),
		zap.Bool("auth_enabled", cfg.Security.AuthEnabled),
	)

	// Wait for interrupt signal or a server failure
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		log.Error("Server failed", zap.Error(runErr))
	}

	log.Info("Shutting down server...")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if serr := e.Shutdown(sctx); serr != nil {
		log.Error("API server shutdown failed", zap.Error(serr))
	}
	if serr := me.Shutdown(sctx); serr != nil {
		log.Error("Metrics server shutdown failed", zap.Error(serr))
	}

	log.Info("Server exited properly")
	return runErr
}
