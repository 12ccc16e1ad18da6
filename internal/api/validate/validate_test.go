package validate

import (
	"strings"
	"testing"

	"github.com/goibibo/mem0/internal/model"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		UserID string `json:"user_id"`
	}
	if err := DecodeJSON(strings.NewReader(`{"user_id":"alice","extra":1}`), &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.UserID != "alice" {
		t.Fatalf("got %q", dst.UserID)
	}

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"user_id":`},
		{"wrong type", `{"user_id": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeJSON(strings.NewReader(tt.body), &dst)
			if !model.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUUID(t *testing.T) {
	if err := UUID("app_id", "7d6c1a1e-0f3e-4c41-9d0b-3a1b2c3d4e5f"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := UUIDs("category_ids", []string{"7d6c1a1e-0f3e-4c41-9d0b-3a1b2c3d4e5f", "nope"}); !model.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 7, false},
		{" 3 ", 3, false},
		{"-1", -1, false},
		{"x", 0, true},
		{"1.5", 0, true},
	}
	for _, tt := range tests {
		got, err := Int("page", tt.raw, 7)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Int(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("Int(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}

	if p, err := IntPtr("size", ""); err != nil || p != nil {
		t.Fatalf("IntPtr empty = %v, %v", p, err)
	}
	if p, err := IntPtr("size", "20"); err != nil || p == nil || *p != 20 {
		t.Fatalf("IntPtr 20 = %v, %v", p, err)
	}
}

func TestInt64Ptr(t *testing.T) {
	v, err := Int64Ptr("from_date", "1700000000")
	if err != nil || v == nil || *v != 1700000000 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := Int64Ptr("from_date", "yesterday"); !model.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBool(t *testing.T) {
	b, err := Bool("is_active", "false")
	if err != nil || b == nil || *b {
		t.Fatalf("got %v, %v", b, err)
	}
	if b, _ := Bool("is_active", ""); b != nil {
		t.Fatalf("expected nil for empty value")
	}
	if _, err := Bool("is_active", "maybe"); !model.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCSV(t *testing.T) {
	got := CSV(" a, ,b,,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("got %v", got)
	}
	if CSV("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
