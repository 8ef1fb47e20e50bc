package migrate

import (
	"context"
	"fmt"

	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db"
	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// EnsureSchema brings the local store schema up to date. The on-device
// sqlite store runs the goose migrations; hosted postgres agents fall back
// to GORM auto-migration since the SQL files are written for sqlite.
func EnsureSchema(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.Driver == "postgres" {
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrating postgres schema: %w", err)
		}
		logg.Info(ctx, "schema auto-migration completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "dir", DefaultDir)
	if err := Run(ctx, sqlDB, cfg.DB.Driver, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
