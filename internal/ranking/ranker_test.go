package ranking

import (
	"errors"
	"math"
	"testing"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

const epsilon = 1e-6

func product(id string, emb ...float32) domain.Product {
	return *domain.NewProduct(id, "name-"+id, "brand", 1000, "category", "", "", emb)
}

func TestRankOrdering(t *testing.T) {
	// Ненормированные векторы: ранжирование обязано считать полный косинус,
	// а не скалярное произведение.
	items := []domain.Product{
		product("A", 1, 0),
		product("B", 0, 1),
		product("C", 0.9, 0.1),
	}
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, items, 10, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	wantOrder := []string{"A", "C", "B"}
	for i, id := range wantOrder {
		if got[i].ProductID != id {
			t.Fatalf("position %d: got %q want %q", i, got[i].ProductID, id)
		}
		if got[i].Rank != i+1 {
			t.Fatalf("rank at position %d: got %d want %d", i, got[i].Rank, i+1)
		}
	}

	if math.Abs(got[0].Similarity-1) > epsilon {
		t.Fatalf("score A: got %v want 1", got[0].Similarity)
	}
	wantC := 0.9 / math.Sqrt(0.82)
	if math.Abs(got[1].Similarity-wantC) > epsilon {
		t.Fatalf("score C: got %v want %v", got[1].Similarity, wantC)
	}
	if math.Abs(got[2].Similarity) > epsilon {
		t.Fatalf("score B: got %v want 0", got[2].Similarity)
	}
}

func TestRankTieBreakByID(t *testing.T) {
	// Одинаковые векторы — одинаковый score, порядок определяет ID
	items := []domain.Product{
		product("z", 1, 0),
		product("a", 1, 0),
		product("m", 1, 0),
	}
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, items, 10, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	wantOrder := []string{"a", "m", "z"}
	for i, id := range wantOrder {
		if got[i].ProductID != id {
			t.Fatalf("position %d: got %q want %q", i, got[i].ProductID, id)
		}
	}
}

func TestRankMinSimilarityFilter(t *testing.T) {
	items := []domain.Product{
		product("close", 1, 0),
		product("far", 0, 1),
	}
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, items, 10, 0.5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if len(got) != 1 || got[0].ProductID != "close" {
		t.Fatalf("expected only %q above threshold, got %+v", "close", got)
	}
}

func TestRankLimitTruncation(t *testing.T) {
	items := []domain.Product{
		product("a", 1, 0),
		product("b", 0.9, 0.1),
		product("c", 0.8, 0.2),
	}
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, items, 2, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].ProductID != "a" || got[1].ProductID != "b" {
		t.Fatalf("truncation kept wrong candidates: %+v", got)
	}
	if got[0].Rank != 1 || got[1].Rank != 2 {
		t.Fatalf("ranks must restart from 1: %+v", got)
	}
}

func TestRankDeterministic(t *testing.T) {
	// Повторный вызов на том же каталоге обязан дать идентичную выдачу,
	// включая равные score, порядок которых решает ID
	items := []domain.Product{
		product("b", 0.9, 0.1),
		product("d", 0, 1),
		product("a", 1, 0),
		product("c", 1, 0),
	}
	ranker := NewRanker()
	query := []float32{1, 0}

	first, err := ranker.Rank(query, items, 10, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	second, err := ranker.Rank(query, items, 10, 0)
	if err != nil {
		t.Fatalf("repeat Rank: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("position %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRankThresholdMonotonic(t *testing.T) {
	// Рост порога не может увеличить число результатов
	items := []domain.Product{
		product("a", 1, 0),
		product("b", 0.9, 0.1),
		product("c", 0.5, 0.5),
		product("d", 0, 1),
	}
	ranker := NewRanker()
	query := []float32{1, 0}

	prev := len(items)
	for _, threshold := range []float64{0, 0.3, 0.6, 0.9, 1} {
		got, err := ranker.Rank(query, items, 10, threshold)
		if err != nil {
			t.Fatalf("Rank at threshold %v: %v", threshold, err)
		}
		if len(got) > prev {
			t.Fatalf("threshold %v returned %d results, more than %d at a lower threshold", threshold, len(got), prev)
		}
		prev = len(got)
	}
}

func TestRankEmptyCatalog(t *testing.T) {
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, nil, 5, 0)
	if err != nil {
		t.Fatalf("Rank on empty catalog: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestRankCatalogDimensionMismatch(t *testing.T) {
	// Битый вектор в каталоге — системная ошибка всей операции, а не пропуск элемента
	items := []domain.Product{
		product("ok", 1, 0),
		product("broken", 1, 0, 0),
	}
	ranker := NewRanker()

	if _, err := ranker.Rank([]float32{1, 0}, items, 5, 0); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRankZeroNormCatalogVector(t *testing.T) {
	items := []domain.Product{
		product("zero", 0, 0),
		product("unit", 1, 0),
	}
	ranker := NewRanker()

	got, err := ranker.Rank([]float32{1, 0}, items, 5, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	// Нулевой вектор получает score 0 и уходит в конец выдачи
	if got[1].ProductID != "zero" || got[1].Similarity != 0 {
		t.Fatalf("zero-norm vector misplaced: %+v", got)
	}
}
