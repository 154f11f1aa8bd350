package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"stepup/internal/models"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// InitDB opens the configured database and applies pending migrations.
func InitDB(config models.DatabaseConfiguration) *gorm.DB {
	db, err := Open(config)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.String("type", config.Type), zap.Error(err))
	}

	if err = Migrate(db, config.Type); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}

	return db
}

func Open(config models.DatabaseConfiguration) (*gorm.DB, error) {
	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch config.Type {
	case "sqlite":
		return gorm.Open(sqlite.Open(config.Name+"?_foreign_keys=on"), gormConfig)
	case "postgres":
		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			config.Host, config.User, config.Password, config.Name, config.Port, sslMode,
		)
		return gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database type %q", config.Type)
	}
}

// Migrate runs the embedded goose migrations for dbType.
func Migrate(db *gorm.DB, dbType string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	dialect := goose.DialectPostgres
	if dbType == "sqlite" {
		dialect = goose.DialectSQLite3
	}

	return migrate(sqlDB, dialect, "migrations/"+dbType)
}

func migrate(sqlDB *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	for _, result := range results {
		zap.L().Info("Applied migration",
			zap.String("source", result.Source.Path),
			zap.Duration("duration", result.Duration))
	}
	return nil
}
