// Package main is the entrypoint for the Sink API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/cache"
	"github.com/sinkapp/sink/internal/cleanup"
	"github.com/sinkapp/sink/internal/config"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/handler"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/metrics"
	"github.com/sinkapp/sink/internal/middleware"
	"github.com/sinkapp/sink/internal/realtime"
	"github.com/sinkapp/sink/internal/repository"
	"github.com/sinkapp/sink/internal/server"
	"github.com/sinkapp/sink/internal/service"
	"github.com/sinkapp/sink/internal/storage"
)

// scoped is a store holding apartment-scoped records.
type scoped interface {
	membership.ScopedStore
	identity.Migrator
	cleanup.CodeLister
}

// backend is the set of stores behind one STORE_DRIVER.
type backend struct {
	apartments directory.Store
	users      auth.UserStore
	events interface {
		service.EventStore
		scoped
	}
	messages interface {
		service.MessageStore
		scoped
	}
	tasks interface {
		service.TaskStore
		scoped
	}
	notifications interface {
		service.NotificationStore
		scoped
	}
	profiles interface {
		service.ProfileStore
		membership.ProfileStore
		scoped
	}
	database handler.HealthChecker
	close    func()
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder := metrics.NewInMemory()

	stores, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			stores.close()
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return errors.New("redis unavailable")
		}
		logger.Info("connected to Redis")
	}

	// Sessions live in Redis when it is configured.
	var sessions auth.SessionStore = memstore.NewSessionStore()
	dirOpts := []directory.Option{directory.WithMetrics(recorder)}
	var (
		limiter middleware.RateLimiter
		pub     realtime.Publisher
		sub     realtime.Subscriber
		redisHC handler.HealthChecker
	)
	if cacheClient != nil {
		sessions = cacheClient
		dirOpts = append(dirOpts, directory.WithCache(cacheClient))
		limiter = cacheClient
		pubsub := realtime.NewRedisPubSub(cacheClient.Client(), logger)
		pub, sub = pubsub, pubsub
		redisHC = cacheClient
	}

	dir := directory.New(stores.apartments, logger, dirOpts...)
	provider := auth.NewProvider(stores.users, sessions, logger, cfg.SessionTTL)

	hub := realtime.NewHub(logger, pub, sub)
	hub.SetAllowedOrigins(cfg.GetCORSAllowedOrigins())

	scopedStores := []membership.ScopedStore{
		stores.events, stores.messages, stores.tasks, stores.notifications, stores.profiles,
	}
	listers := []cleanup.CodeLister{
		stores.events, stores.messages, stores.tasks, stores.notifications, stores.profiles,
	}

	// A nil interface, not a typed nil, disables attachments.
	var presigner service.Presigner
	if cfg.AttachmentsEnabled() {
		objects, err := storage.New(ctx, cfg.S3(), logger)
		if err != nil {
			stores.close()
			return err
		}
		presigner = objects
		scopedStores = append(scopedStores, objects)
		listers = append(listers, objects)
		logger.Info("attachments enabled", "bucket", cfg.S3Bucket)
	}

	managerOpts := []membership.Option{
		membership.WithConfig(membership.Config{
			MaxMembers:    cfg.MaxRoommates,
			CodeAttempts:  cfg.CodeAllocationAttempts,
			PurgeAttempts: membership.DefaultConfig().PurgeAttempts,
			PurgeBackoff:  membership.DefaultConfig().PurgeBackoff,
		}),
		membership.WithObserver(hub),
		membership.WithMetrics(recorder),
	}
	var publisher *cleanup.Publisher
	if cacheClient != nil && cfg.PurgeWorkerEnabled {
		publisher = cleanup.NewPublisher(cacheClient.Client(), logger, recorder)
		managerOpts = append(managerOpts, membership.WithRetrier(publisher))
	}
	manager := membership.NewManager(dir, stores.profiles, scopedStores, logger, managerOpts...)

	resolver := identity.NewResolver(logger, recorder,
		dir, stores.profiles, stores.messages, stores.tasks, stores.events, stores.notifications,
	)

	notifications := service.NewNotificationService(stores.notifications)
	accounts := service.NewAccountService(provider, manager, resolver, dir, logger)

	r := handler.NewRouter(handler.RouterConfig{
		Logger: logger,
		Root:   handler.NewRootHandler(presigner != nil),
		Health: handler.NewHealthHandler(logger,
			handler.HealthCheck{Name: "postgres", Checker: stores.database},
			handler.HealthCheck{Name: "redis", Checker: redisHC},
		),
		Metrics:       handler.NewMetricsHandler(recorder),
		Account:       handler.NewAccountHandler(accounts, logger),
		Apartment:     handler.NewApartmentHandler(manager, dir, cfg.MaxRoommates, logger),
		Calendar:      handler.NewCalendarHandler(service.NewCalendarService(stores.events, logger), logger),
		Chat:          handler.NewChatHandler(service.NewChatService(stores.messages, hub, logger), logger),
		Tasks:         handler.NewTaskHandler(service.NewTaskService(stores.tasks, notifications, logger), logger),
		Notifications: handler.NewNotificationHandler(notifications, logger),
		Profiles:      handler.NewProfileHandler(service.NewProfileService(stores.profiles), logger),
		Attachments:   handler.NewAttachmentHandler(service.NewAttachmentService(presigner), logger),
		ChatSocket:    hub.ServeWS,
		Sessions:      provider,
		Apartments:    dir,
		RateLimit: middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: limiter,
			Enabled: cfg.RateLimitEnabled,
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
		},
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		CORS: corsConfig(cfg),
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run last-registered first: sockets and workers stop before
	// the stores they use are closed.
	srv.OnShutdown("stores", func(context.Context) error {
		stores.close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}

	if publisher != nil {
		worker := cleanup.NewWorker(cacheClient.Client(), publisher, manager, logger, cleanup.NewConsumerID(), recorder)
		worker.SetMaxRetries(cfg.PurgeMaxRetries)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("cleanup worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("cleanup_worker", worker.Shutdown)
	}

	sweeper := cleanup.NewSweeper(manager, listers, logger)
	if err := sweeper.Start(cfg.OrphanSweepSchedule); err != nil {
		stores.close()
		return err
	}
	srv.OnShutdown("orphan_sweeper", sweeper.Shutdown)
	srv.OnShutdown("realtime_hub", hub.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"redis", cacheClient != nil,
	)

	return srv.Run()
}

// openBackend connects the stores selected by STORE_DRIVER.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memstore.New()
		return &backend{
			apartments:    store.Apartments(),
			users:         store.Users(),
			events:        store.Events(),
			messages:      store.Messages(),
			tasks:         store.Tasks(),
			notifications: store.Notifications(),
			profiles:      store.Profiles(),
			close:         func() {},
		}, nil
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, errors.New("database unavailable")
	}
	logger.Info("connected to database")

	return &backend{
		apartments:    repo.Apartments(),
		users:         repo.Users(),
		events:        repo.Events(),
		messages:      repo.Messages(),
		tasks:         repo.Tasks(),
		notifications: repo.Notifications(),
		profiles:      repo.Profiles(),
		database:      repo,
		close:         repo.Close,
	}, nil
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
