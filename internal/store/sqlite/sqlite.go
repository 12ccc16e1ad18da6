// Package sqlite is the local store driver backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/goibibo/mem0/internal/store/sqlstore"
)

//go:embed schema.sql
var schemaDDL string

// timeLayout is fixed width so text comparison matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (or creates) a SQLite database at path with WAL and foreign keys.
// ":memory:" opens a private in-memory database.
func Open(path string) (*sql.DB, error) {
	const pragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?" + pragmas
	} else {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?%s", path, pragmas)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens path and applies the schema.
func New(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	st := sqlstore.New(db, Dialect{})
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// Dialect implements sqlstore.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Name() string               { return "sqlite" }
func (Dialect) Rebind(query string) string { return query }
func (Dialect) ContainsOp() string         { return "LIKE" }
func (Dialect) ForUpdate() string          { return "" }
func (Dialect) Schema() []string           { return sqlstore.SplitStatements(schemaDDL) }

func (Dialect) Time(t time.Time) interface{} {
	return t.UTC().Format(timeLayout)
}

func (Dialect) MetadataEquals(key string, value interface{}) (string, []interface{}) {
	path := `$."` + key + `"`
	if b, ok := value.(bool); ok {
		if b {
			value = 1
		} else {
			value = 0
		}
	}
	return "json_extract(m.metadata, ?) = ?", []interface{}{path, value}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
