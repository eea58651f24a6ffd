// cmd/report-engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"carematch-engine/internal/api"
	awsclients "carematch-engine/internal/common/aws"
	"carematch-engine/internal/common/config"
	"carematch-engine/internal/common/database"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/common/observability"
	"carematch-engine/internal/engine/scoring"
	"carematch-engine/internal/engine/weights"
	"carematch-engine/internal/enrichment"
	"carematch-engine/internal/jobs"
	"carematch-engine/internal/notify"
	"carematch-engine/internal/retry"
	"carematch-engine/internal/sources/careregistry"
	"carematch-engine/internal/sources/companyfinance"
	"carematch-engine/internal/sources/foodhygiene"
	"carematch-engine/internal/sources/places"
	"carematch-engine/internal/sources/webcontent"

	candidatespkg "carematch-engine/internal/candidates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting report engine...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Source clients ---
	var sourceClients []enrichment.SourceClient
	if config.IsSourceEnabled(cfg, "care_registry") {
		sourceClients = append(sourceClients, careregistry.NewClient(config.GetSourceConfig(cfg, "care_registry"), log))
	}
	if config.IsSourceEnabled(cfg, "food_hygiene") {
		sourceClients = append(sourceClients, foodhygiene.NewClient(config.GetSourceConfig(cfg, "food_hygiene"), log))
	}
	if config.IsSourceEnabled(cfg, "company_finance") {
		sourceClients = append(sourceClients, companyfinance.NewClient(config.GetSourceConfig(cfg, "company_finance"), log))
	}
	if config.IsSourceEnabled(cfg, "places") {
		sourceClients = append(sourceClients, places.NewClient(config.GetSourceConfig(cfg, "places"), log))
	}
	if config.IsSourceEnabled(cfg, "web_content") {
		sourceClients = append(sourceClients, webcontent.NewClient(config.GetSourceConfig(cfg, "web_content"), log))
	}
	zapLog.Info("Source clients initialized", zap.Int("count", len(sourceClients)))

	// --- Engine wiring ---
	resolver := weights.NewDefaultResolver()
	if len(cfg.Rules.Supersedes) > 0 {
		resolver = weights.NewResolver(
			weights.ApplySupersedeOverrides(weights.DefaultRules(), cfg.Rules.Supersedes),
		)
	}
	if err := resolver.Validate(); err != nil {
		zapLog.Fatal("weight rule table invalid", zap.Error(err))
	}

	scorer := scoring.NewScorer(cfg.Scoring.Scale)
	orch := enrichment.NewOrchestrator(
		sourceClients,
		cfg.Enrichment.MaxInFlight,
		config.GetDuration(cfg.Enrichment.PerSourceTimeout),
		log,
	)

	store := jobs.NewRedisStore(redisClient.Client, config.GetDuration(cfg.Jobs.Retention))
	repo := candidatespkg.NewRepository(pg.DB, redisClient.Client, log)
	search := candidatespkg.NewSearch(esClient.Client, cfg.Database.Elasticsearch.Index)

	// --- Notifications ---
	var notifier jobs.Notifier
	if cfg.Notify.Email.Enabled || cfg.Notify.SMS.Enabled {
		var email notify.EmailSender
		var sms notify.SMSSender
		if cfg.Notify.Email.Enabled {
			sesClient, err := awsclients.NewSESClient(ctx, cfg.Notify)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			email = sesClient
		}
		if cfg.Notify.SMS.Enabled {
			snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notify)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			sms = snsClient
		}
		notifier = notify.NewNotifier(email, sms, cfg.Notify, log)
		zapLog.Info("Notifications enabled",
			zap.Bool("email", cfg.Notify.Email.Enabled),
			zap.Bool("sms", cfg.Notify.SMS.Enabled),
		)
	}

	manager := jobs.NewManager(jobs.ManagerOptions{
		Store:    store,
		Resolver: resolver,
		Scorer:   scorer,
		Orch:     orch,
		Loader:   repo,
		Notifier: notifier,
		Obs:      obs,
		Logger:   log,
		Deadline: config.GetDuration(cfg.Jobs.Deadline),
		TopK:     cfg.Jobs.TopK,
	})

	// --- Retry scheduler ---
	scheduler := retry.NewScheduler(retry.SchedulerOptions{
		Store:  store,
		Orch:   orch,
		Scorer: scorer,
		Policy: retry.Policy{
			BaseDelay:   config.GetDuration(cfg.Retry.BaseDelay),
			Multiplier:  cfg.Retry.BackoffMultiplier,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
		SweepInterval: config.GetDuration(cfg.Retry.SweepInterval),
		TopK:          cfg.Jobs.TopK,
		Logger:        log,
	})

	schedCtx, stopScheduler := context.WithCancel(ctx)
	go scheduler.Start(schedCtx)

	// --- HTTP API ---
	server := api.NewServer(manager, scheduler, search, map[string]api.HealthCheck{
		"postgres": pg.Ping,
		"redis":    redisClient.Ping,
		"elasticsearch": func(ctx context.Context) error {
			return esClient.Ping()
		},
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Report engine stopped gracefully")
}
