package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

type RunDB struct {
	DB  *sql.DB
	Log *zerolog.Logger
}

// NewRunDB opens the audit database and checks it is reachable
func NewRunDB(driver, source string, log *zerolog.Logger) (*RunDB, error) {
	if source == "" {
		log.Error().Msg("database source is not set")
		return nil, fmt.Errorf("database source is not set")
	}
	if driver == "" {
		driver = "postgres"
	}

	// Open the database connection
	db, err := sql.Open(driver, source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return &RunDB{
		DB:  db,
		Log: log,
	}, nil
}

func (r *RunDB) Close() error {
	if err := r.DB.Close(); err != nil {
		return err
	}
	r.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate applies the embedded goose migrations
func (r *RunDB) Migrate() error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(r.DB, "migrations"); err != nil {
		r.Log.Error().Err(err).Msg("error running migrations")
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.Log.Debug().Msg("Migrations applied")
	return nil
}
