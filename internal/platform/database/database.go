// Package database opens the configured relational store and migrates the schema.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/model"
	mysqlClient "gopherai-docqa/internal/platform/mysql"
	postgresClient "gopherai-docqa/internal/platform/postgres"
	sqliteClient "gopherai-docqa/internal/platform/sqlite"
)

func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.IsProd() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlClient.New(ctx, cfg.MySQLDSN(), gormLogger)
	case "postgres":
		db, err = postgresClient.New(ctx, cfg.Database.Postgres.DSN, cfg.Index.Backend == "pgvector", gormLogger)
	case "sqlite":
		db, err = sqliteClient.New(ctx, cfg.Database.SQLite.Path, gormLogger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, cfg.Index.Backend); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the core tables plus the chunk table of the chosen index backend.
func Migrate(db *gorm.DB, indexBackend string) error {
	tables := []interface{}{
		&model.Session{},
		&model.Document{},
		&model.SessionDocument{},
		&model.Message{},
		&model.ProviderCredential{},
	}
	switch indexBackend {
	case "sql":
		tables = append(tables, &model.IndexChunk{})
	case "pgvector":
		tables = append(tables, &model.VectorChunk{})
	}
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

// NewTestDB opens a fresh SQLite file under dir with every table migrated.
func NewTestDB(ctx context.Context, dir string) (*gorm.DB, error) {
	db, err := sqliteClient.New(ctx, fmt.Sprintf("%s/test-%d.db", dir, time.Now().UnixNano()), logger.Discard)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, "sql"); err != nil {
		return nil, err
	}
	return db, nil
}
