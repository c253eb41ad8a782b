package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltworks/portal/pkg/config"
	"github.com/voltworks/portal/pkg/database"
	"github.com/voltworks/portal/pkg/logger"

	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/queue/tasks"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/services"
)

// idleTimer satisfies services.Timer; the API process owns the cron schedule.
type idleTimer struct{}

func (idleTimer) Start(string) error { return nil }
func (idleTimer) Stop()              {}
func (idleTimer) Running() bool      { return false }

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.QueueEnabled() {
		log.Fatal("REDIS_ADDR is required to run the worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	authOpts := services.AuthOptions{InitialAdminEmail: cfg.InitialAdminEmail}
	if cfg.MicrosoftEnabled() {
		authOpts.OAuth = auth.MicrosoftConfig(cfg)
	}
	authSvc := services.NewAuthService(userRepo, auth.NewSessionManager(cfg.SessionSecret), authOpts)

	backupSvc := services.NewBackupService(db, services.BackupConfig{
		DatabasePath: cfg.SQLitePath(),
		Dir:          cfg.BackupDir,
		DriveID:      cfg.SharePointDriveID,
		Folder:       cfg.SharePointBackupFolder,
		Secret:       cfg.BackupSecret,
		AdminEmail:   cfg.BackupAdminEmail,
	}, userRepo, authSvc)
	scheduleSvc := services.NewScheduleService(db, repository.NewScheduleRepository(db), idleTimer{})

	mux := asynq.NewServeMux()
	handler := tasks.NewBackupTaskHandler(backupSvc, scheduleSvc)
	mux.HandleFunc(tasks.TypeScheduledBackup, handler.HandleScheduledBackup)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// let the in-flight backup finish
	srv.Shutdown()
}
