package store

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	pg := NewSQLStore(nil, "postgres")
	lite := NewSQLStore(nil, "sqlite")

	query := "SELECT id FROM users WHERE email = ? AND username = ?"

	assert.Equal(t,
		"SELECT id FROM users WHERE email = $1 AND username = $2",
		pg.rebind(query))

	// SQLite keeps "?" placeholders untouched.
	assert.Equal(t, query, lite.rebind(query))

	assert.Equal(t, "SELECT 1", pg.rebind("SELECT 1"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))

	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrBusy}))

	assert.False(t, isUniqueViolation(errors.New("some other error")))
	assert.False(t, isUniqueViolation(nil))
}
