package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/reviewdesk/review-engine/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embedded embed.FS

// MigrateStore applies the goose migrations to the postgres database. The
// embedded sql files are used unless a migration folder is configured.
func MigrateStore(db *gorm.DB, cfg *config.Config) error {
	goose.SetLogger(&logger{})

	migrations, err := migrationFS(cfg.Service.MigrationFolder)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, ".")
}

// Status logs the applied state of every migration.
func Status(db *gorm.DB, cfg *config.Config) error {
	goose.SetLogger(&logger{})

	migrations, err := migrationFS(cfg.Service.MigrationFolder)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return goose.Status(sqlDB, ".")
}

func migrationFS(folder string) (fs.FS, error) {
	if folder == "" {
		return fs.Sub(embedded, "sql")
	}

	fi, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsDir() {
		return nil, fmt.Errorf("failed to open migration folder: %s is not a folder", folder)
	}
	return os.DirFS(folder), nil
}

// logger routes goose output through zap.
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) {
	zap.S().Named("migrations").Infof(format, v...)
}
func (m *logger) Fatalf(format string, v ...interface{}) {
	zap.S().Named("migrations").Fatalf(format, v...)
}
