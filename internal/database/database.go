package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rebuttal-io/rebuttal/internal/config"
)

// Open connects to the configured database, applies pool settings and runs
// pending migrations. It returns the connection and the resolved driver type
// ("postgres" or "sqlite").
func Open(cfg *config.Config) (*sql.DB, string, error) {
	var (
		db     *sql.DB
		dbType string
		err    error
	)

	switch cfg.Database.Type {
	case "postgres":
		dbType = "postgres"
		db, err = openPostgres(cfg)
	case "sqlite", "":
		dbType = "sqlite"
		db, err = openSQLite(cfg)
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
	if err != nil {
		return nil, "", err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db, dbType); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, dbType, nil
}

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if cfg.Database.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConns)
	}
	if cfg.Database.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
	}

	return db, nil
}

func openSQLite(cfg *config.Config) (*sql.DB, error) {
	dsn := cfg.Database.Path
	if dsn == "" {
		dsn = "rebuttal.db"
	}
	// Foreign keys are off by default in SQLite; cascade deletes need them.
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}
	return db, nil
}
