package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all database migrations
func GetMigrations(dbType string) []Migration {
	if dbType == "postgres" {
		return getPostgresMigrations()
	}
	return getSQLiteMigrations()
}

func getPostgresMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				username VARCHAR(64) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				rating INTEGER NOT NULL DEFAULT 1000,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token VARCHAR(255) UNIQUE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`,
		},
		{
			Version:     3,
			Description: "Create debates and messages tables",
			SQL: `CREATE TABLE IF NOT EXISTS debates (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				topic TEXT NOT NULL,
				stance VARCHAR(16) NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'active',
				score INTEGER,
				verdict TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY,
				debate_id UUID NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
				role VARCHAR(16) NOT NULL,
				content TEXT NOT NULL,
				position INTEGER NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create rooms tables",
			SQL: `CREATE TABLE IF NOT EXISTS rooms (
				id UUID PRIMARY KEY,
				code VARCHAR(16) UNIQUE NOT NULL,
				host_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				topic TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS room_participants (
				room_id UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (room_id, user_id)
			)`,
		},
		{
			Version:     5,
			Description: "Create waitlist table",
			SQL: `CREATE TABLE IF NOT EXISTS waitlist (
				id UUID PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
				CREATE INDEX IF NOT EXISTS idx_debates_user_id ON debates(user_id);
				CREATE INDEX IF NOT EXISTS idx_messages_debate_id ON messages(debate_id);
				CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(code);`,
		},
	}
}

func getSQLiteMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				username TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				rating INTEGER NOT NULL DEFAULT 1000,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     2,
			Description: "Create sessions table",
			SQL: `CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     3,
			Description: "Create debates and messages tables",
			SQL: `CREATE TABLE IF NOT EXISTS debates (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				topic TEXT NOT NULL,
				stance TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'active',
				score INTEGER,
				verdict TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE TABLE IF NOT EXISTS messages (
				id TEXT PRIMARY KEY,
				debate_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				position INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (debate_id) REFERENCES debates(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     4,
			Description: "Create rooms tables",
			SQL: `CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				code TEXT UNIQUE NOT NULL,
				host_id TEXT NOT NULL,
				topic TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (host_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE TABLE IF NOT EXISTS room_participants (
				room_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				joined_at DATETIME NOT NULL,
				PRIMARY KEY (room_id, user_id),
				FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			)`,
		},
		{
			Version:     5,
			Description: "Create waitlist table",
			SQL: `CREATE TABLE IF NOT EXISTS waitlist (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				created_at DATETIME NOT NULL
			)`,
		},
		{
			Version:     6,
			Description: "Create indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
				CREATE INDEX IF NOT EXISTS idx_debates_user_id ON debates(user_id);
				CREATE INDEX IF NOT EXISTS idx_messages_debate_id ON messages(debate_id);
				CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms(code);`,
		},
	}
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *sql.DB, dbType string) error {
	var query string
	if dbType == "postgres" {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	} else {
		query = `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}

	_, err := db.Exec(query)
	return err
}

// getAppliedMigrations returns the list of applied migration versions
func getAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return applied, err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return applied, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// recordMigration records that a migration has been applied
func recordMigration(db *sql.DB, dbType string, version int) error {
	var query string
	if dbType == "postgres" {
		query = "INSERT INTO schema_migrations (version) VALUES ($1)"
	} else {
		query = "INSERT INTO schema_migrations (version) VALUES (?)"
	}
	_, err := db.Exec(query, version)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, dbType string) error {
	if err := createMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range GetMigrations(dbType) {
		if applied[migration.Version] {
			continue
		}

		// Split SQL by semicolon and execute each statement
		statements := strings.Split(migration.SQL, ";")
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
		}

		if err := recordMigration(db, dbType, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
