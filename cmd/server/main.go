package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"vetting/internal/credentialing/adapters/events"
	credhandler "vetting/internal/credentialing/handler"
	credmetrics "vetting/internal/credentialing/metrics"
	"vetting/internal/credentialing/models"
	"vetting/internal/credentialing/service"
	"vetting/internal/credentialing/store"
	"vetting/internal/credentialing/worker"
	docmodels "vetting/internal/documents/models"
	docservice "vetting/internal/documents/service"
	"vetting/internal/documents/storage"
	"vetting/internal/evidence/exclusion"
	evidencemetrics "vetting/internal/evidence/metrics"
	"vetting/internal/evidence/npi"
	"vetting/internal/evidence/npi/registry"
	npistore "vetting/internal/evidence/npi/store"
	jwttoken "vetting/internal/jwt_token"
	"vetting/internal/platform/config"
	"vetting/internal/platform/httpserver"
	"vetting/internal/platform/kafka"
	"vetting/internal/platform/logger"
	"vetting/internal/platform/metrics"
	"vetting/internal/platform/postgres"
	"vetting/internal/platform/redis"
	"vetting/internal/platform/router"
	"vetting/internal/platform/tracing"
	"vetting/internal/ratelimit"
	"vetting/internal/review"
	"vetting/pkg/platform/circuit"
	"vetting/pkg/platform/outbox"
	"vetting/pkg/platform/outbox/relay"
	outboxmemory "vetting/pkg/platform/outbox/store/memory"
	outboxpostgres "vetting/pkg/platform/outbox/store/postgres"
)

func main() {
	cfg, problems := config.Load()
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	for _, p := range problems {
		log.Warn("configuration problem, using default", "problem", p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// infra holds the process-wide connections. Nil fields select the
// in-process fallbacks.
type infra struct {
	db    *sql.DB
	redis *redis.Client
}

func (i *infra) close(log *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
}

// run wires dependencies, serves HTTP and runs the sweeper and outbox relay
// until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	inf, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.close(log)

	objects, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	evidenceMetrics := evidencemetrics.New()
	verifier, err := newNPIVerifier(cfg.NPIRegistry, inf.redis, log, evidenceMetrics)
	if err != nil {
		return err
	}
	checker, err := newExclusionChecker(cfg.Exclusion, log, evidenceMetrics)
	if err != nil {
		return err
	}
	tracker, err := docservice.New(objects,
		docservice.WithLogger(log),
		docservice.WithPolicy(docservice.Policy{
			MaxBytes:     cfg.Policy.MaxUploadBytes,
			AllowedMIME:  cfg.Policy.AllowedContentTypes,
			ExpiringLead: cfg.Policy.ExpiringSoonLead,
		}),
	)
	if err != nil {
		return err
	}
	policy, err := credentialingPolicy(cfg.Policy)
	if err != nil {
		return err
	}

	var (
		profiles    service.Store
		profileTx   service.ProviderTx
		outboxStore outbox.Store
	)
	if inf.db != nil {
		pg := store.NewPostgres(inf.db)
		profiles, profileTx, outboxStore = pg, store.NewPostgresTx(inf.db, pg), outboxpostgres.New(inf.db)
	} else {
		log.Warn("DATABASE_URL not set, credentialing state is kept in memory")
		mem := store.NewInMemory()
		profiles, profileTx, outboxStore = mem, service.NewShardedTx(mem), outboxmemory.NewInMemoryStore()
	}

	publisher, err := events.NewOutboxPublisher(outboxStore)
	if err != nil {
		return err
	}
	credMetrics := credmetrics.New()
	svc, err := service.New(profiles, profileTx, tracker, verifier, checker,
		service.WithLogger(log),
		service.WithMetrics(credMetrics),
		service.WithPolicy(policy),
		service.WithEventPublisher(publisher),
		service.WithVerifyOnSubmit(cfg.Policy.AutoVerify),
	)
	if err != nil {
		return err
	}
	reviews, err := review.New(profiles, policy, cfg.Policy.ExpiringSoonLead, review.WithLogger(log))
	if err != nil {
		return err
	}
	sweeper, err := worker.New(svc, profiles,
		worker.WithInterval(cfg.Policy.SweepInterval),
		worker.WithConcurrency(cfg.Policy.SweepConcurrency),
		worker.WithLogger(log),
		worker.WithMetrics(credMetrics),
	)
	if err != nil {
		return err
	}

	broker, closeBroker, err := newBroker(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeBroker()
	relayer, err := relay.New(outboxStore, broker,
		relay.WithInterval(cfg.Kafka.RelayInterval),
		relay.WithBatchSize(cfg.Kafka.RelayBatch),
		relay.WithLogger(log),
		relay.WithMetrics(relay.NewMetrics()),
	)
	if err != nil {
		return err
	}

	handler := router.New(router.Options{
		Logger:      log,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.Server.CORSOrigins,
		Reviewers:   jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer),
		ServiceName: cfg.Tracing.ServiceName,
		Health:      healthChecks(inf),
		RateLimit:   rateLimiter(cfg.Server, inf.redis, log),
	}, credhandler.New(svc, reviews, log, cfg.Policy.MaxUploadBytes))
	srv := httpserver.New(cfg.Server.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting vetting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCancel(sweeper.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCancel(relayer.Run(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	inf := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		inf.db = db
	}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		inf.close(log)
		return nil, err
	}
	inf.redis = rc
	return inf, nil
}

func healthChecks(inf *infra) []router.HealthCheck {
	var checks []router.HealthCheck
	if inf.db != nil {
		checks = append(checks, router.HealthCheck{Name: "postgres", Check: inf.db.PingContext})
	}
	if inf.redis != nil {
		checks = append(checks, router.HealthCheck{Name: "redis", Check: inf.redis.Health})
	}
	return checks
}

// rateLimiter returns nil when limiting is disabled. Windows are shared
// through Redis when it is configured.
func rateLimiter(cfg config.Server, rc *redis.Client, log *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RateLimit <= 0 {
		return nil
	}
	var store ratelimit.Store = ratelimit.NewInMemoryStore()
	if rc != nil {
		store = ratelimit.NewRedisStore(rc.Client)
	}
	return ratelimit.Middleware(store, cfg.RateLimit, cfg.RateWindow, log)
}

func newObjectStore(ctx context.Context, cfg config.Storage) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return storage.NewMemory(), nil
	case "minio":
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Region:      cfg.S3Region,
			Bucket:      cfg.Bucket,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
			EndpointURL: cfg.S3EndpointURL,
		})
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}

func newNPIVerifier(cfg config.NPIRegistry, rc *redis.Client, log *slog.Logger, m *evidencemetrics.Metrics) (*npi.Verifier, error) {
	client := registry.New(cfg.BaseURL, cfg.Timeout,
		registry.WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
		registry.WithBreaker(circuit.New("nppes",
			circuit.WithFailureThreshold(cfg.BreakerLimit),
			circuit.WithCooldown(cfg.BreakerWait),
		)),
		registry.WithLogger(log),
		registry.WithMetrics(m),
	)
	var cache npi.Cache = npistore.NewInMemoryCache()
	if rc != nil {
		cache = npistore.NewRedisCache(rc.Client)
	}
	return npi.NewVerifier(client, cache,
		npi.WithLogger(log),
		npi.WithMetrics(m),
		npi.WithLookupTimeout(cfg.Timeout),
	)
}

func newExclusionChecker(cfg config.Exclusion, log *slog.Logger, m *evidencemetrics.Metrics) (*exclusion.Checker, error) {
	var sources []exclusion.Source
	if cfg.OIGURL != "" {
		sources = append(sources, exclusion.NewHTTPSource("oig", cfg.OIGURL, "", cfg.SourceTimeout))
	}
	if cfg.SAMURL != "" {
		sources = append(sources, exclusion.NewHTTPSource("sam", cfg.SAMURL, cfg.SAMAPIKey, cfg.SourceTimeout))
	}
	if cfg.LEIEFile != "" {
		f, err := os.Open(cfg.LEIEFile)
		if err != nil {
			return nil, fmt.Errorf("open LEIE export: %w", err)
		}
		defer f.Close()
		entries, err := exclusion.ParseLEIE(f)
		if err != nil {
			return nil, err
		}
		log.Info("loaded LEIE export", "entries", len(entries))
		sources = append(sources, exclusion.NewListSource("oig-leie", entries))
	}
	if len(sources) == 0 {
		return nil, errors.New("no exclusion sources configured: set EXCLUSION_OIG_URL, EXCLUSION_SAM_URL or EXCLUSION_LEIE_FILE")
	}
	return exclusion.NewChecker(sources,
		exclusion.WithLogger(log),
		exclusion.WithMetrics(m),
		exclusion.WithSourceTimeout(cfg.SourceTimeout),
	)
}

func credentialingPolicy(cfg config.Policy) (models.Policy, error) {
	policy := models.Policy{ExclusionFreshness: cfg.ExclusionFreshness}
	for _, raw := range cfg.RequiredDocTypes {
		t, err := docmodels.ParseDocumentType(raw)
		if err != nil {
			return models.Policy{}, fmt.Errorf("REQUIRED_DOCUMENT_TYPES: %q: %w", raw, err)
		}
		policy.RequiredTypes = append(policy.RequiredTypes, t)
	}
	return policy, nil
}

// newBroker returns the Kafka producer, or a logging publisher when no
// brokers are configured.
func newBroker(ctx context.Context, cfg config.Kafka, log *slog.Logger) (outbox.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, credentialing events are logged only")
		return relay.LogPublisher{Logger: log}, func() {}, nil
	}
	producer, err := kafka.NewProducer(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return producer, func() { producer.Close(context.Background()) }, nil
}
