// Package main runs the background job worker (attendee export archive to S3).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qrcourses/backend/config"
	"github.com/qrcourses/backend/internal/attendees"
	"github.com/qrcourses/backend/internal/courses"
	"github.com/qrcourses/backend/internal/exports"
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

	if cfg.Storage.Driver != config.DriverPostgres {
		log.Fatal("the standalone worker needs STORAGE_DRIVER=postgres; memory storage runs its worker inside the server")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ExportsBucket:        cfg.AWS.ExportsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, log)
	if err != nil {
		log.Fatal("s3", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, log)
	processor := worker.NewExportProcessor(
		exports.NewRepository(pool),
		courses.NewRepository(pool),
		attendees.NewRepository(pool),
		s3Client, jobQueue, log,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	log.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	log.Info("worker stopped")
}
