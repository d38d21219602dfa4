package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	datapublishing "pagecraft/app/internal/data/publishing"
	applog "pagecraft/app/internal/platform/log"
)

// MigratePublishing applies the publishing schema using Gorm's AutoMigrate and logs progress.
// The projects table is owned by the editor; only the columns this service reads are ensured.
func MigratePublishing(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	if logger != nil {
		applog.Component(logger, "publishing.migrate").Info("applying publishing schema")
	}

	models := []any{
		&datapublishing.PageRecord{},
		&datapublishing.VisitRecord{},
		&datapublishing.DomainRecord{},
		&datapublishing.ProjectRecord{},
	}

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		applog.ComponentError(logger, "publishing.migrate", nil, err, "publishing schema migration failed")
		return eris.Wrap(err, "auto migrating publishing schema")
	}

	if logger != nil {
		applog.Component(logger, "publishing.migrate").Info("publishing schema migration complete")
	}

	return nil
}
