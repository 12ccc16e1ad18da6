// Package postgres is the production store driver using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/goibibo/mem0/internal/store/sqlstore"
)

//go:embed schema.sql
var schemaDDL string

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres-backed store on an existing connection.
func NewWithDB(db *sql.DB) *sqlstore.Store { return sqlstore.New(db, Dialect{}) }

// Bootstrap applies the schema. Statements are idempotent so it runs on every start.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	return NewWithDB(db).Migrate(ctx)
}

// Dialect implements sqlstore.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string                 { return "postgres" }
func (Dialect) ContainsOp() string           { return "ILIKE" }
func (Dialect) ForUpdate() string            { return " FOR UPDATE" }
func (Dialect) Time(t time.Time) interface{} { return t.UTC() }
func (Dialect) Schema() []string             { return sqlstore.SplitStatements(schemaDDL) }

// Rebind converts ? placeholders into $1..$n.
func (Dialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (Dialect) MetadataEquals(key string, value interface{}) (string, []interface{}) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprint(v)
	}
	return "m.metadata ->> CAST(? AS TEXT) = CAST(? AS TEXT)", []interface{}{key, s}
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
