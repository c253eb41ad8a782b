package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/pkg/logger"
)

// migrate brings every table up to date with the models, one model at a time
// so a failure names the table it stopped on.
func migrate(db *gorm.DB) error {
	for _, m := range models.All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("parse model %T: %w", m, err)
		}
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %s: %w", stmt.Schema.Table, err)
		}
		logger.L().Debug("table migrated", zap.String("table", stmt.Schema.Table))
	}
	return nil
}
