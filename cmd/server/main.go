// Package main runs the course registration HTTP server with WebSocket feed and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/config"
	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/qr"
	"github.com/qrcourses/backend/internal/realtime"
	"github.com/qrcourses/backend/internal/server"
	"github.com/qrcourses/backend/internal/worker"
	"github.com/qrcourses/backend/pkg/database"
	"github.com/qrcourses/backend/pkg/logger"
	"github.com/qrcourses/backend/pkg/queue"
	"github.com/qrcourses/backend/pkg/redis"
	"github.com/qrcourses/backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	var stores server.Stores
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		stores = server.MemoryStores(memstore.New())
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), log)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		stores = server.PostgresStores(pool)
	}

	if err := auth.EnsureAdmin(ctx, stores.Admins, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, log); err != nil {
		log.Fatal("bootstrap admin", zap.Error(err))
	}

	deps := server.Deps{
		Stores:             stores,
		JWT:                auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		QR:                 qr.NewIssuer(cfg.Registration.PublicBaseURL, cfg.Registration.QRSize),
		Logger:             log,
		RateLimit:          cfg.Registration.RateLimit,
		RateWindow:         cfg.Registration.RateWindow,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registry = registry

	// Redis is optional: without it the feed is single-instance, registration
	// is not rate limited and archived exports are off.
	var jobQueue *queue.Queue
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("redis disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := realtime.NewRedisPubSub(rdb.Client, log)
			deps.Hub = realtime.NewHub(log, pubsub, pubsub)
			deps.Limiter = rdb
			jobQueue = queue.NewQueue(rdb.Client, log)
		}
	}
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub(log, nil, nil)
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, log)
		if err != nil {
			log.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	// Background worker (attendee export archive to S3) when both Redis and S3 are up
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil && s3Client != nil {
		deps.Queue = jobQueue
		deps.Archive = s3Client
		if cfg.Storage.Driver == config.DriverMemory {
			processor := worker.NewExportProcessor(stores.Exports, stores.Courses, stores.Attendees, s3Client, jobQueue, log)
			go processor.Run(workerCtx)
			log.Info("in-process export worker started")
		}
	}

	router := server.NewRouter(deps)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
