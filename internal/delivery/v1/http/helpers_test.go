package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

func TestToHTTPResponse(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad_request", e.ErrStatusBadRequest, http.StatusBadRequest},
		{"expected_multipart", e.ErrExpectedMultipart, http.StatusBadRequest},
		{"dimension_mismatch", e.ErrDimensionMismatch, http.StatusBadRequest},
		{"invalid_vector", e.ErrInvalidVector, http.StatusBadRequest},
		{"invalid_search_params", e.ErrInvalidSearchParams, http.StatusBadRequest},
		{"empty_vector", e.ErrEmptyVector, http.StatusBadRequest},
		{"empty_id", e.ErrEmptyID, http.StatusBadRequest},
		{"no_image", e.ErrNoImage, http.StatusBadRequest},
		{"not_found", e.ErrNotFound, http.StatusNotFound},
		{"duplicate_id", e.ErrDuplicateID, http.StatusConflict},
		{"file_too_large", e.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"unsupported_media", e.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"embedder_unavailable", e.ErrEmbedderUnavailable, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := ToHTTPResponse(tc.err)
			if code != tc.want {
				t.Fatalf("got %d, want %d", code, tc.want)
			}
		})
	}
}

func TestToHTTPResponseWrapped(t *testing.T) {
	// Обёрнутая ошибка отображается так же, как исходная
	code, msg := ToHTTPResponse(e.Wrap("SearchUseCase.Search", e.ErrDimensionMismatch))
	if code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", code)
	}
	if msg != e.ErrDimensionMismatch.Error() {
		t.Fatalf("got %q, want sentinel message", msg)
	}
}

func TestParseSearchParams(t *testing.T) {
	values := map[string]string{"limit": "7", "min_similarity": "0.35"}
	params, err := parseSearchParams(func(k string) string { return values[k] })
	if err != nil {
		t.Fatalf("parseSearchParams: %v", err)
	}
	if params.Limit != 7 || params.MinSimilarity != 0.35 {
		t.Fatalf("params mismatch: %+v", params)
	}
}

func TestParseSearchParamsDefaults(t *testing.T) {
	// Отсутствующие значения остаются нулевыми, клампинг выполняет usecase
	params, err := parseSearchParams(func(string) string { return "" })
	if err != nil {
		t.Fatalf("parseSearchParams: %v", err)
	}
	if params.Limit != 0 || params.MinSimilarity != 0 {
		t.Fatalf("expected zero params, got %+v", params)
	}
}

func TestParseSearchParamsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
	}{
		{"bad_limit", map[string]string{"limit": "seven"}},
		{"bad_min_similarity", map[string]string{"min_similarity": "high"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSearchParams(func(k string) string { return tc.values[k] })
			if !errors.Is(err, e.ErrInvalidSearchParams) {
				t.Fatalf("expected ErrInvalidSearchParams, got %v", err)
			}
		})
	}
}
