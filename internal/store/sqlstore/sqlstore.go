// Package sqlstore implements store.Store on database/sql. Driver packages supply a
// Dialect that papers over placeholder syntax, time encoding, JSON access and
// error codes.
package sqlstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/goibibo/mem0/internal/store"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect interface {
	Name() string
	// Rebind rewrites ? placeholders into the engine's native form.
	Rebind(query string) string
	// Time converts a timestamp into a bind argument.
	Time(t time.Time) interface{}
	// ContainsOp is the case-insensitive LIKE operator.
	ContainsOp() string
	// MetadataEquals returns a predicate on m.metadata[key] == value and its args.
	MetadataEquals(key string, value interface{}) (string, []interface{})
	// ForUpdate is appended to row reads that precede an update in a transaction.
	ForUpdate() string
	IsUniqueViolation(err error) bool
	Schema() []string
}

// Store is the shared SQL implementation of store.Store.
type Store struct {
	db *sql.DB
	d  Dialect
}

// New wraps an open connection. Call Migrate before first use on an empty database.
func New(db *sql.DB, d Dialect) *Store { return &Store{db: db, d: d} }

func (s *Store) Users() store.Users                 { return &users{s} }
func (s *Store) Apps() store.Apps                   { return &apps{s} }
func (s *Store) Categories() store.Categories       { return &categories{s} }
func (s *Store) Memories() store.Memories           { return &memories{s} }
func (s *Store) AccessLogs() store.AccessLogs       { return &accessLogs{s} }
func (s *Store) StatusHistory() store.StatusHistory { return &statusHistory{s} }

// DB exposes the underlying connection for health probes.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the engine dialect.
func (s *Store) Dialect() Dialect { return s.d }

func (s *Store) Close() error { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the dialect schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate: %w", s.d.Name(), err)
		}
	}
	return nil
}

func (s *Store) q(query string) string { return s.d.Rebind(query) }

// SplitStatements splits an embedded schema file on semicolons.
func SplitStatements(ddl string) []string {
	var out []string
	for _, p := range strings.Split(ddl, ";") {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newULID returns a time-sortable id for append-only rows.
func newULID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}
