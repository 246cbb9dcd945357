package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any)            {}
func (nopLogger) Infof(format string, args ...any)             {}
func (nopLogger) Warnf(format string, args ...any)             {}
func (nopLogger) Errorf(err error, format string, args ...any) {}

func newTestEmbedder(t *testing.T, handler http.Handler, maxRetries int) (*Embedder, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	embedder := NewEmbedder(&cfg.EmbedderCfg{
		Addr:          srv.URL,
		Timeout:       5 * time.Second,
		MaxConcurrent: 2,
		MaxRetries:    maxRetries,
	}, nopLogger{})

	return embedder, srv
}

func embedHandler(t *testing.T, vector []float32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(r.MultipartForm.File["image"]) == 0 {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"vector":        vector,
			"model_version": "v1",
		})
	}
}

func TestVectorize(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3}
	embedder, _ := newTestEmbedder(t, embedHandler(t, want), 1)

	images := []usecase.ProductImage{{Data: []byte{1, 2, 3}, Name: "a.jpg"}}
	vectors, err := embedder.Vectorize(context.Background(), usecase.NewVectorizeReq(images))
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}

	if len(vectors) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vectors))
	}
	for i := range want {
		if vectors[0].Vector[i] != want[i] {
			t.Fatalf("vector mismatch: %v", vectors[0].Vector)
		}
	}
	if vectors[0].ModelVersion != "v1" {
		t.Fatalf("model version: %q", vectors[0].ModelVersion)
	}
}

func TestVectorizeBatch(t *testing.T) {
	embedder, _ := newTestEmbedder(t, embedHandler(t, []float32{1, 0}), 1)

	images := []usecase.ProductImage{
		{Data: []byte{1}, Name: "a.jpg"},
		{Data: []byte{2}, Name: "b.jpg"},
		{Data: []byte{3}, Name: "c.jpg"},
	}
	vectors, err := embedder.Vectorize(context.Background(), usecase.NewVectorizeReq(images))
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if len(vectors) != len(images) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(images))
	}
}

func TestVectorizeRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Холодный старт модели: первая попытка падает
			http.Error(w, "model is loading", http.StatusServiceUnavailable)
			return
		}
		embedHandler(t, []float32{1, 0}).ServeHTTP(w, r)
	})
	embedder, _ := newTestEmbedder(t, handler, 3)

	images := []usecase.ProductImage{{Data: []byte{1}, Name: "a.jpg"}}
	vectors, err := embedder.Vectorize(context.Background(), usecase.NewVectorizeReq(images))
	if err != nil {
		t.Fatalf("Vectorize after retry: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vectors))
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a retry, got %d calls", calls.Load())
	}
}

func TestVectorizeAllAttemptsFail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	embedder, _ := newTestEmbedder(t, handler, 1)

	images := []usecase.ProductImage{{Data: []byte{1}, Name: "a.jpg"}}
	if _, err := embedder.Vectorize(context.Background(), usecase.NewVectorizeReq(images)); err == nil {
		t.Fatalf("expected error when every attempt fails")
	}
}

func TestVectorizeUnavailableKeepsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // закрываем заранее: сервис недоступен

	embedder := NewEmbedder(&cfg.EmbedderCfg{
		Addr:          srv.URL,
		Timeout:       time.Second,
		MaxConcurrent: 1,
		MaxRetries:    1,
	}, nopLogger{})

	images := []usecase.ProductImage{{Data: []byte{1}, Name: "a.jpg"}}
	_, err := embedder.Vectorize(context.Background(), usecase.NewVectorizeReq(images))
	if !errors.Is(err, e.ErrEmbedderUnavailable) {
		t.Fatalf("expected ErrEmbedderUnavailable after exhausted retries, got %v", err)
	}
}

func TestModelInfo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model_name": "clip-vit-b32",
			"dimension":  512,
			"loaded":     true,
		})
	})
	embedder, _ := newTestEmbedder(t, handler, 1)

	info, err := embedder.ModelInfo(context.Background())
	if err != nil {
		t.Fatalf("ModelInfo: %v", err)
	}
	if info.ModelName != "clip-vit-b32" || info.Dimension != 512 || !info.Loaded {
		t.Fatalf("info mismatch: %+v", info)
	}
}

func TestModelInfoUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // закрываем заранее: сервис недоступен

	embedder := NewEmbedder(&cfg.EmbedderCfg{
		Addr:          srv.URL,
		Timeout:       time.Second,
		MaxConcurrent: 1,
		MaxRetries:    1,
	}, nopLogger{})

	if _, err := embedder.ModelInfo(context.Background()); err == nil {
		t.Fatalf("expected error for unreachable service")
	}
}
