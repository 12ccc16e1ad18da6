package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// dbTime scans timestamps stored natively (postgres) or as RFC3339 text (sqlite).
type dbTime struct{ t *time.Time }

func (d dbTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
	case time.Time:
		*d.t = v.UTC()
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func (d dbTime) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*d.t = t.UTC()
	return nil
}

// nullTime scans a nullable timestamp into a *time.Time.
type nullTime struct{ t **time.Time }

func (n nullTime) Scan(src interface{}) error {
	if src == nil {
		*n.t = nil
		return nil
	}
	var t time.Time
	if err := (dbTime{&t}).Scan(src); err != nil {
		return err
	}
	*n.t = &t
	return nil
}

func encodeJSON(m map[string]interface{}) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(s sql.NullString) map[string]interface{} {
	out := map[string]interface{}{}
	if !s.Valid || s.String == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s.String), &out)
	return out
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
