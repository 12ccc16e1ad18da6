package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProvider_Embed(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "Lives in SF" {
			t.Fatalf("unexpected body: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.5, -1, 2}})
	}))
	defer srv.Close()

	p := New(srv.URL, "nomic-embed-text")
	vec, err := p.Embed(context.Background(), "Lives in SF")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 || vec[2] != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestProvider_EmbedErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	p := New(srv.URL, "missing")
	if _, err := p.Embed(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on non-200")
	}
	if _, err := p.Embed(context.Background(), "  "); err == nil {
		t.Fatalf("expected error on empty text")
	}
}

func TestProvider_HealthPing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer srv.Close()

	if err := New(srv.URL, "nomic-embed-text").HealthPing(context.Background()); err != nil {
		t.Fatalf("expected healthy: %v", err)
	}
	if err := New(srv.URL, "mxbai-embed-large").HealthPing(context.Background()); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestNew_AddsScheme(t *testing.T) {
	p := New("localhost:11434/", "m")
	if got := p.client.BaseURL; got != "http://localhost:11434" {
		t.Fatalf("unexpected base url %q", got)
	}
}
