package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/nudge/internal/config"
	"github.com/phrazzld/nudge/internal/platform/postgres"
	"github.com/phrazzld/nudge/internal/platform/sqlite"
	"github.com/phrazzld/nudge/internal/store"
)

// storage bundles the stores of one backend with the connection they share.
type storage struct {
	db            *sql.DB
	users         store.UserStore
	tasks         store.TaskStore
	notifications store.NotificationStore
}

func (s *storage) Close() error {
	return s.db.Close()
}

// openStorage connects to the configured backend and brings its schema up
// to date.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established", "driver", cfg.Driver)
		return &storage{
			db:            db.DB,
			users:         sqlite.NewUserStore(db, logger),
			tasks:         sqlite.NewTaskStore(db, logger),
			notifications: sqlite.NewNotificationStore(db, logger),
		}, nil

	case "postgres":
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("database connection established", "driver", cfg.Driver)
		return &storage{
			db:            db,
			users:         postgres.NewPostgresUserStore(db, logger),
			tasks:         postgres.NewPostgresTaskStore(db, logger),
			notifications: postgres.NewPostgresNotificationStore(db, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
