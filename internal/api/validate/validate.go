// Package validate parses and checks request parameters before they reach the
// services. Failures are model.ValidationError values so handlers map them to 400.
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/model"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from body into dst. Unknown fields are
// tolerated so older and newer clients keep working.
func DecodeJSON(body io.Reader, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return model.NewValidationError("body", "request body is required")
		}
		return model.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return model.NewValidationError(field, "is required")
	}
	return nil
}

// UUID checks that v parses as a UUID.
func UUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return model.NewValidationError(field, fmt.Sprintf("invalid id %q", v))
	}
	return nil
}

// UUIDs checks every element of vs.
func UUIDs(field string, vs []string) error {
	for _, v := range vs {
		if err := UUID(field, v); err != nil {
			return err
		}
	}
	return nil
}

// Int parses an optional integer query parameter, returning def when raw is empty.
func Int(field, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// IntPtr is Int for parameters whose absence must stay distinguishable.
func IntPtr(field, raw string) (*int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	n, err := Int(field, raw, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Int64Ptr parses an optional unix timestamp.
func Int64Ptr(field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, model.NewValidationError(field, "must be a unix timestamp in seconds")
	}
	return &n, nil
}

// Bool parses an optional boolean query parameter.
func Bool(field, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, model.NewValidationError(field, "must be true or false")
	}
	return &b, nil
}

// CSV splits a comma separated list, dropping blanks.
func CSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
