package sqlstore

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("CREATE TABLE a (x INT);\n\n CREATE INDEX i ON a(x);\n")
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (x INT)", got[0])
	assert.Equal(t, "CREATE INDEX i ON a(x)", got[1])
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_off\\`, escapeLike(`100%_off\`))
}

func TestNewULIDIsSortable(t *testing.T) {
	now := time.Now()
	a := newULID(now)
	b := newULID(now)
	c := newULID(now.Add(time.Millisecond))
	assert.Len(t, a, 26)
	assert.Less(t, a, b, "same-millisecond ids must stay monotonic")
	assert.Less(t, b, c)
}

func TestDBTimeScan(t *testing.T) {
	var ts time.Time
	require.NoError(t, dbTime{&ts}.Scan("2025-01-02T03:04:05.000000006Z"))
	assert.Equal(t, 6, ts.Nanosecond())

	var p *time.Time
	require.NoError(t, nullTime{&p}.Scan(nil))
	assert.Nil(t, p)
	require.NoError(t, nullTime{&p}.Scan([]byte("2025-01-02T03:04:05Z")))
	require.NotNil(t, p)
	assert.Equal(t, 2025, p.Year())
}

func TestJSONHelpers(t *testing.T) {
	s, err := encodeJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	m := decodeJSON(sql.NullString{String: `{"a":1}`, Valid: true})
	assert.Equal(t, float64(1), m["a"])
	assert.Empty(t, decodeJSON(sql.NullString{}))
}
