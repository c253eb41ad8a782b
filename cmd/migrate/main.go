package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/services"
	"github.com/voltworks/portal/pkg/config"
	"github.com/voltworks/portal/pkg/database"
	"github.com/voltworks/portal/pkg/logger"
)

func main() {
	bootstrap := flag.Bool("bootstrap-admin", true, "create INITIAL_ADMIN_EMAIL when the user table is empty")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	if *bootstrap {
		users := services.NewUserService(db, repository.NewUserRepository(db))
		if err := users.EnsureBootstrapAdmin(ctx, cfg.InitialAdminEmail, cfg.InitialAdminPass); err != nil {
			log.Fatal("bootstrap admin failed", zap.Error(err))
		}
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
