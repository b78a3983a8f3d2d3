package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelhealth/radpoint/pkg/api"
	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/config"
	"github.com/kestrelhealth/radpoint/pkg/observability"
	"github.com/kestrelhealth/radpoint/pkg/orgs"
	"github.com/kestrelhealth/radpoint/pkg/radiology"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
	"github.com/kestrelhealth/radpoint/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting radpoint")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return err
	}
	logger.WithField("driver", cfg.Database.Driver).Info("Database connected")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unavailable, rate limits apply per process")
			redisClient = nil
		}
	}

	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := observability.ShutdownTelemetry(shutdownCtx, telemetry, logger); err != nil {
			logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	blobs, err := storage.New(storage.Config{
		Type:           cfg.Blob.Type,
		FilesystemRoot: cfg.Blob.FilesystemRoot,
		S3Endpoint:     cfg.Blob.S3Endpoint,
		S3Region:       cfg.Blob.S3Region,
		S3Bucket:       cfg.Blob.S3Bucket,
		S3AccessKey:    cfg.Blob.S3AccessKey,
		S3SecretKey:    cfg.Blob.S3SecretKey,
		S3UsePathStyle: cfg.Blob.S3UsePathStyle,
	})
	if err != nil {
		return err
	}

	users := auth.NewStore(db)
	tokens := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	var evaluator rbac.Evaluator = rbac.NewMembershipEvaluator(db)
	if cfg.Auth.PermissionCache {
		var hits, misses prometheus.Counter
		if metrics != nil {
			hits = metrics.PermissionCacheHits
			misses = metrics.PermissionCacheMisses
		}
		evaluator = rbac.NewCachingEvaluator(evaluator, cfg.Auth.PermissionCacheTTL, hits, misses)
		logger.WithField("ttl", cfg.Auth.PermissionCacheTTL.String()).Info("Permission cache enabled")
	}

	server := api.NewServer(api.Options{
		DB:             db,
		Users:          users,
		Auth:           auth.NewService(users, tokens),
		Tokens:         tokens,
		Orgs:           orgs.NewPostgresService(db),
		Radiology:      radiology.NewPostgresService(db),
		Blobs:          blobs,
		Evaluator:      evaluator,
		Metrics:        metrics,
		Logger:         logger,
		Redis:          redisClient,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	var apiHandler http.Handler = server
	if cfg.Observability.OTelEnabled {
		apiHandler = otelhttp.NewHandler(server, "radpoint.api")
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := users.SweepTempPasswords(sweepCtx)
		if err != nil {
			logger.WithError(err).Warn("Temp password sweep failed")
			return
		}
		if n > 0 {
			logger.WithField("cleared", n).Info("Swept completed temp passwords")
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					metrics.CollectDBStats(db)
					if n, err := users.CountUsers(ctx); err == nil {
						metrics.ActiveUsersTotal.Set(float64(n))
					}
				}
			}
		}()
	}

	if path := os.Getenv("RADPOINT_CONFIG_FILE"); path != "" {
		go func() {
			if err := config.WatchLogLevel(ctx, path, logger); err != nil {
				logger.WithError(err).Warn("Config watcher stopped")
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Health server shutdown failed")
		}
		return nil
	})

	return g.Wait()
}
