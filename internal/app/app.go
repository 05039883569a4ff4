// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/omamori-dev/omamori-linebot-go/internal/bot"
	"github.com/omamori-dev/omamori-linebot-go/internal/buildinfo"
	"github.com/omamori-dev/omamori-linebot-go/internal/config"
	"github.com/omamori-dev/omamori-linebot-go/internal/genai"
	"github.com/omamori-dev/omamori-linebot-go/internal/lineutil"
	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
	"github.com/omamori-dev/omamori-linebot-go/internal/metrics"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/culture"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/family"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/heir"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/help"
	"github.com/omamori-dev/omamori-linebot-go/internal/modules/savings"
	"github.com/omamori-dev/omamori-linebot-go/internal/r2client"
	"github.com/omamori-dev/omamori-linebot-go/internal/ratelimit"
	"github.com/omamori-dev/omamori-linebot-go/internal/responder"
	"github.com/omamori-dev/omamori-linebot-go/internal/sentry"
	"github.com/omamori-dev/omamori-linebot-go/internal/snapshot"
	"github.com/omamori-dev/omamori-linebot-go/internal/sticker"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
	"github.com/omamori-dev/omamori-linebot-go/internal/webhook"
)

const serviceName = "omamori-linebot-go"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	store          storage.Store
	snapshotSrc    storage.Snapshotter // nil unless the backend can snapshot
	snapshots      *snapshot.Manager   // nil when R2 is disabled
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	webhookHandler *webhook.Handler
	deposits       *depositHandler
	intentClient   *genai.Client
	llmLimiter     *ratelimit.KeyedLimiter
	userLimiter    *ratelimit.KeyedLimiter
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls pick up user, chat and request IDs through
	// the context handler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	release := cfg.SentryRelease
	if release == "" {
		release = buildinfo.Version
	}
	if err := sentry.Initialize(sentry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		Release:          release,
		SampleRate:       cfg.SentrySampleRate,
		TracesSampleRate: cfg.SentryTracesSampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error tracking enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	snapshots, err := newSnapshotManager(ctx, cfg, m)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	// The store (after an optional snapshot restore) and the LLM chain are
	// independent, so they start in parallel.
	var (
		rawStore storage.Store
		parser   *genai.FallbackIntentParser
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := openStore(gctx, cfg, snapshots, log)
		rawStore = s
		return err
	})
	if cfg.HasLLMProvider() {
		g.Go(func() error {
			p, err := genai.CreateIntentParser(gctx, buildLLMConfig(cfg), m)
			if err != nil {
				log.WithError(err).Warn("Intent parser initialization failed")
				return nil
			}
			parser = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	intentClient := genai.NewClient(nil)
	if parser != nil {
		intentClient = genai.NewClient(parser)
		log.WithField("providers", parser.Len()).Info("NLU fallback enabled")
	}

	store := storage.Instrument(rawStore, m)
	snapshotSrc, _ := rawStore.(storage.Snapshotter)

	filler := responder.New()
	stickerMgr := sticker.NewManager(cfg.Bot.SenderIconURLs, cfg.Bot.SenderName, log)

	llmLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "llm",
		Burst:         cfg.Bot.LLMRateBurst,
		RefillRate:    cfg.Bot.LLMRateRefill / 3600.0, // hourly to per-second
		DailyLimit:    cfg.Bot.LLMRateDaily,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Observer:      m,
	})
	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.Bot.UserRateBurst,
		RefillRate:    cfg.Bot.UserRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Observer:      m,
	})

	families := family.NewService(store)

	botRegistry := bot.NewRegistry()
	botRegistry.Use(
		bot.RecoveryMiddleware(log),
		bot.LoggingMiddleware(log),
		bot.MetricsMiddleware(m),
	)
	botRegistry.Register(savings.NewHandler(store, store, filler, cfg.DefaultGoalDays, log))
	botRegistry.Register(family.NewHandler(families, filler, log))
	botRegistry.Register(heir.NewHandler(store, filler, log))
	botRegistry.Register(culture.NewHandler(filler))
	botRegistry.Register(help.NewHandler(filler, help.QuotaConfig{
		UserLimiter: userLimiter,
		UserBurst:   cfg.Bot.UserRateBurst,
		LLMLimiter:  llmLimiter,
		LLMBurst:    cfg.Bot.LLMRateBurst,
		NLUEnabled:  intentClient.IsEnabled(),
	}))

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:       botRegistry,
		IntentParser:   intentClient,
		UserLimiter:    userLimiter,
		LLMRateLimiter: llmLimiter,
		Filler:         filler,
		StickerManager: stickerMgr,
		Logger:         log,
		Metrics:        m,
		BotConfig:      &cfg.Bot,
	})

	lineAPI, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken,
		messaging_api.WithHTTPClient(newLineHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("messaging API client: %w", err)
	}

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret:  cfg.LineChannelSecret,
		Client:         lineAPI,
		BotConfig:      &cfg.Bot,
		Metrics:        m,
		Logger:         log,
		Processor:      processor,
		StickerManager: stickerMgr,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		store:          store,
		snapshotSrc:    snapshotSrc,
		snapshots:      snapshots,
		metrics:        m,
		registry:       registry,
		webhookHandler: webhookHandler,
		deposits: &depositHandler{
			families:  families,
			filler:    filler,
			line:      lineAPI,
			metrics:   m,
			logger:    log.WithModule("deposit"),
			maxAmount: cfg.DepositMaxAmount,
			sender: func() *messaging_api.Sender {
				return lineutil.GetSender(cfg.Bot.SenderName, stickerMgr)
			},
		},
		intentClient: intentClient,
		llmLimiter:   llmLimiter,
		userLimiter:  userLimiter,
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("store", cfg.StoreBackend).
		WithField("nlu", intentClient.IsEnabled()).
		WithField("snapshots", snapshots != nil).
		WithField("version", buildinfo.Version).
		Info("Initialization complete")
	return app, nil
}

func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled(), a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.cfg.DepositAPIEnabled() {
		api := router.Group("/api/v1", bearerAuthMiddleware(a.cfg.DepositAPIToken))
		api.POST("/families/:groupID/deposits", a.deposits.handle)
	} else {
		a.logger.Info("Deposit API disabled: no token configured")
	}
	return router
}

// newSnapshotManager returns nil when R2 snapshots are disabled.
// newLineHTTPClient bounds each LINE API call. The SDK methods take no context.
func newLineHTTPClient() *http.Client {
	return &http.Client{Timeout: config.LINEAPICall}
}

func newSnapshotManager(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*snapshot.Manager, error) {
	if !cfg.R2Enabled {
		return nil, nil //nolint:nilnil // snapshots are optional
	}
	client, err := r2client.New(ctx, r2client.Config{
		AccountID:   cfg.R2AccountID,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, err
	}
	return snapshot.New(client, snapshot.Config{SnapshotKey: cfg.R2SnapshotKey}, m), nil
}

// openStore restores the SQLite snapshot when there is no local database,
// then opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config, snapshots *snapshot.Manager, log *logger.Logger) (storage.Store, error) {
	if snapshots != nil && cfg.StoreBackend == config.StoreSQLite {
		restoreCtx, cancel := context.WithTimeout(ctx, config.SnapshotDownload)
		restored, err := snapshots.Restore(restoreCtx, cfg.SQLitePath())
		cancel()
		if err != nil {
			log.WithError(err).Warn("Snapshot restore failed; starting with an empty database")
		} else if restored {
			log.WithField("path", cfg.SQLitePath()).Info("Database restored from snapshot")
		}
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend:    cfg.StoreBackend,
		SQLitePath: cfg.SQLitePath(),
		RedisURL:   cfg.RedisURL,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("backend", cfg.StoreBackend).Info("Store connected")
	return store, nil
}

// buildLLMConfig creates an LLMConfig from the application config.
func buildLLMConfig(cfg *config.Config) genai.LLMConfig {
	llmCfg := genai.DefaultLLMConfig()

	llmCfg.Gemini.APIKey = cfg.GeminiAPIKey
	llmCfg.Groq.APIKey = cfg.GroqAPIKey

	if len(cfg.GeminiIntentModels) > 0 {
		llmCfg.Gemini.IntentModels = cfg.GeminiIntentModels
	}
	if len(cfg.GroqIntentModels) > 0 {
		llmCfg.Groq.IntentModels = cfg.GroqIntentModels
	}
	if len(cfg.LLMProviders) > 0 {
		providers := make([]genai.Provider, 0, len(cfg.LLMProviders))
		for _, p := range cfg.LLMProviders {
			switch p {
			case "gemini":
				providers = append(providers, genai.ProviderGemini)
			case "groq":
				providers = append(providers, genai.ProviderGroq)
			default:
				slog.Warn("ignoring unknown provider", "name", p)
			}
		}
		if len(providers) > 0 {
			llmCfg.Providers = providers
		}
	}

	return llmCfg
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"nlu":         a.intentClient.IsEnabled(),
		"snapshots":   a.snapshots != nil,
		"deposit_api": a.cfg != nil && a.cfg.DepositAPIEnabled(),
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "store unavailable",
		})
		return
	}

	resp := gin.H{
		"status":   "ready",
		"store":    "connected",
		"features": a.getFeatures(),
	}
	if stats, err := a.store.Stats(ctx); err == nil {
		resp["records"] = stats
	} else {
		a.logger.WithError(err).Warn("Failed to read store stats")
	}
	c.JSON(http.StatusOK, resp)
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM.
//
// Background jobs finish before resources close so a periodic snapshot
// never races the final one or a closed database.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.updateStoreMetrics(ctx)
	})
	if a.snapshots != nil && a.snapshotSrc != nil {
		interval := a.cfg.R2SnapshotInterval
		if interval <= 0 {
			interval = config.SnapshotUploadInterval
		}
		a.wg.Go(func() {
			a.logger.WithField("interval", interval.String()).Info("Snapshot upload job started")
			a.snapshots.Run(ctx, a.snapshotSrc, interval)
		})
	}
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server, drains webhook events, uploads a final
// snapshot and closes resources, in that order.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	if a.snapshots != nil && a.snapshotSrc != nil {
		uploadCtx, uploadCancel := context.WithTimeout(shutdownCtx, config.SnapshotUpload)
		if etag, err := a.snapshots.Upload(uploadCtx, a.snapshotSrc); err != nil {
			a.logger.WithError(err).Error("Final snapshot upload failed")
		} else {
			a.logger.WithField("etag", etag).Info("Final snapshot uploaded")
		}
		uploadCancel()
	}

	a.logger.Info("Closing resources...")

	if err := a.intentClient.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "intent_parser").Error("Component close error")
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "store").Error("Component close error")
	}
	a.llmLimiter.Stop()
	a.userLimiter.Stop()

	sentry.Flush(2 * time.Second)

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// updateStoreMetrics periodically records store record counts.
func (a *Application) updateStoreMetrics(ctx context.Context) {
	a.logger.Debug("Store metrics job started")
	defer a.logger.Debug("Store metrics job stopped")

	a.recordStoreMetrics(ctx)

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordStoreMetrics(ctx)
		}
	}
}

func (a *Application) recordStoreMetrics(ctx context.Context) {
	start := time.Now()
	stats, err := a.store.Stats(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to collect store stats")
		a.metrics.RecordJob("store_stats", "error", time.Since(start))
		return
	}
	a.metrics.SetStoreRecords(stats.Profiles, stats.Families)
	a.metrics.RecordJob("store_stats", "success", time.Since(start))
}
