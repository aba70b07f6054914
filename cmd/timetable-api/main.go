package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable generation engine for college departments
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	var (
		db        *sqlx.DB
		rosters   service.RosterLoader
		schedules service.ScheduleStore
	)
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := database.EnsureSchema(ctx, db); err != nil {
				logr.Fatal("failed to apply schema", zap.Error(err))
			}
		}
		rosters = repository.NewRosterRepository(db)
		schedules = repository.NewScheduleRepository(db)
		checks["postgres"] = db.PingContext
	} else if cfg.Generator.StoredRoster {
		logr.Warn("stored roster enabled without a database; requests using it will fail")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Generator.RunTTL, logr, redisClient != nil)

	runs := service.NewRunStore(cfg.Generator.RunTTL)
	worker := service.NewGenerationWorker(runs, schedules, cacheSvc, metrics, logr, service.GenerationWorkerConfig{
		RunTTL:             cfg.Generator.RunTTL,
		QualityThreshold:   cfg.Generator.QualityThreshold,
		PersistProvisional: cfg.Generator.PersistProvisional,
	})
	queue := jobs.NewQueue("generation", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Generator.Workers,
		MaxRetries: cfg.Generator.Retries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	metrics.TrackQueue(queue)

	generationSvc := service.NewGenerationService(runs, queue, rosters, schedules, cacheSvc, metrics, validator.New(), logr, service.GenerationConfig{
		StoredRoster:           cfg.Generator.StoredRoster,
		DefaultAlgorithm:       engine.Algorithm(cfg.Generator.DefaultAlgorithm),
		MaxTime:                cfg.Generator.MaxTime,
		RunTTL:                 cfg.Generator.RunTTL,
		ExclusivePriorityRooms: cfg.Generator.ExclusivePriorityRooms,
		StartHour:              cfg.Generator.StartHour,
		EndHour:                cfg.Generator.EndHour,
		Days:                   cfg.Generator.Days,
	})

	fileStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(fileStorage, signer, metrics, logr, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		MaxAge:    cfg.Exports.MaxAge,
	})

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	go runMaintenance(ctx, logr, runs, exportSvc, cfg.Exports)

	generationHandler := handler.NewGenerationHandler(generationSvc, exportSvc, cfg.APIPrefix)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/:token", generationHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)

	generations := secured.Group("/generations")
	generations.GET("/algorithms", readers, generationHandler.Algorithms)
	generations.POST("/readiness", adminOnly, generationHandler.Readiness)
	generations.POST("", adminOnly, generationHandler.Create)
	generations.GET("/:id", readers, generationHandler.Get)
	generations.POST("/:id/stop", adminOnly, generationHandler.Stop)
	generations.GET("/:id/export", readers, generationHandler.Export)
	generations.POST("/:id/exports", adminOnly, generationHandler.StoreExport)

	secured.POST("/roster/refresh", adminOnly, generationHandler.RefreshRoster)
	secured.GET("/metrics/summary", adminOnly, metricsHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runMaintenance evicts expired runs and prunes old stored exports.
func runMaintenance(ctx context.Context, logr *zap.Logger, runs *service.RunStore, exports *service.ExportService, cfg config.ExportsConfig) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := runs.Sweep(); evicted > 0 {
				logr.Debug("expired runs evicted", zap.Int("count", evicted))
			}
			removed, err := exports.Cleanup(cfg.MaxAge)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("old exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
