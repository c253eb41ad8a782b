package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltworks/portal/internal/api"
	"github.com/voltworks/portal/internal/api/handlers"
	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/integrations/msgraph"
	"github.com/voltworks/portal/internal/integrations/places"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/scheduler"
	"github.com/voltworks/portal/internal/services"
	"github.com/voltworks/portal/internal/storage"
	"github.com/voltworks/portal/pkg/config"
	"github.com/voltworks/portal/pkg/database"
	"github.com/voltworks/portal/pkg/logger"

	_ "github.com/voltworks/portal/docs"
)

// @title           Voltworks Portal API
// @version         1.0
// @description     Project, inventory and backup management for an electrical contractor.

// @contact.name   Voltworks Portal Support

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session token; the browser sends it as the "session" cookie instead.

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting portal",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DatabaseDriver),
		zap.String("storage_driver", cfg.StorageDriver),
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialise file storage", zap.Error(err))
	}
	local, _ := store.(*storage.Local)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	jobTypeRepo := repository.NewJobTypeRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	// Auth
	sessions := auth.NewSessionManager(cfg.SessionSecret)
	authOpts := services.AuthOptions{InitialAdminEmail: cfg.InitialAdminEmail}
	var appGraph *msgraph.Client
	if cfg.MicrosoftEnabled() {
		authOpts.OAuth = auth.MicrosoftConfig(cfg)
		appGraph = msgraph.New(auth.AppOnlyConfig(cfg).Client(ctx))
	} else {
		log.Info("Azure AD not configured; Microsoft sign-in disabled")
	}
	authSvc := services.NewAuthService(userRepo, sessions, authOpts)

	userSvc := services.NewUserService(db, userRepo)
	if err := userSvc.EnsureBootstrapAdmin(ctx, cfg.InitialAdminEmail, cfg.InitialAdminPass); err != nil {
		log.Fatal("bootstrap admin failed", zap.Error(err))
	}

	addressLookup, err := places.New(cfg.GooglePlacesAPIKey)
	if err != nil {
		log.Fatal("failed to initialise places client", zap.Error(err))
	}

	// Services
	calendarSvc := services.NewCalendarService(db)
	inventorySvc := services.NewInventoryService(db, inventoryRepo)
	backupSvc := services.NewBackupService(db, services.BackupConfig{
		DatabasePath: cfg.SQLitePath(),
		Dir:          cfg.BackupDir,
		DriveID:      cfg.SharePointDriveID,
		Folder:       cfg.SharePointBackupFolder,
		Secret:       cfg.BackupSecret,
		AdminEmail:   cfg.BackupAdminEmail,
	}, userRepo, authSvc)

	// Scheduled backups fire through the queue when redis is configured,
	// otherwise the API calls its own secret-gated endpoint.
	var trigger scheduler.Trigger = scheduler.NewHTTPTrigger(cfg.AppBaseURL, cfg.BackupSecret)
	var queueClient *asynq.Client
	if cfg.QueueEnabled() {
		queueClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		trigger = &scheduler.QueueTrigger{Client: queueClient}
	}
	var scheduleSvc services.ScheduleService
	sched := scheduler.New(trigger, scheduler.WithSuccessHook(func(ctx context.Context, ranAt, _ time.Time) {
		if err := scheduleSvc.RecordRun(ctx, ranAt, nil); err != nil {
			logger.L().Warn("record backup run failed", zap.Error(err))
		}
	}))
	scheduleSvc = services.NewScheduleService(db, scheduleRepo, sched)
	if err := scheduleSvc.Resume(ctx); err != nil {
		log.Error("failed to resume backup schedule", zap.Error(err))
	}

	router := api.NewRouter(api.Dependencies{
		Authenticator:  authSvc,
		AllowedOrigins: []string{cfg.AppBaseURL},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,

		Health:         handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		Auth:           handlers.NewAuthHandler(authSvc, cfg.AppBaseURL),
		Users:          handlers.NewUsersHandler(userSvc, authSvc),
		Projects:       handlers.NewProjectsHandler(services.NewProjectService(db, projectRepo, store)),
		Milestones:     handlers.NewMilestonesHandler(services.NewMilestoneService(db, store)),
		Tasks:          handlers.NewTasksHandler(services.NewTaskService(db, store)),
		Comments:       handlers.NewCommentsHandler(services.NewCommentService(db)),
		Communications: handlers.NewCommunicationsHandler(services.NewCommunicationService(db)),
		Files:          handlers.NewFilesHandler(services.NewFileService(db, store), local),
		Calendar:       handlers.NewCalendarHandler(calendarSvc),
		JobTypes:       handlers.NewJobTypesHandler(services.NewJobTypeService(jobTypeRepo)),
		Inventory:      handlers.NewInventoryHandler(inventorySvc, cfg.AppBaseURL),
		Packages:       handlers.NewPackagesHandler(inventorySvc),
		Templates:      handlers.NewTemplatesHandler(services.NewTemplateService(db, templateRepo)),
		Backup:         handlers.NewBackupHandler(backupSvc, scheduleSvc),
		SharePoint:     handlers.NewSharePointHandler(appGraph, cfg.SharePointSiteID),
		Places:         handlers.NewPlacesHandler(addressLookup),
		Dashboard:      handlers.NewDashboardHandler(services.NewDashboardService(db, calendarSvc)),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // restore uploads
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	closeDB(db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
