package ranking

import (
	"errors"
	"testing"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

func TestAssemble(t *testing.T) {
	items := []domain.Product{
		product("a", 1, 0),
		product("b", 0, 1),
	}
	byID := SnapshotIndex(items)

	candidates := []domain.ScoredCandidate{
		{ProductID: "b", Similarity: 0.9, Rank: 1},
		{ProductID: "a", Similarity: 0.5, Rank: 2},
	}

	records, err := Assemble(candidates, byID)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Product.ID != "b" || records[0].Rank != 1 || records[0].Similarity != 0.9 {
		t.Fatalf("record 0 mismatch: %+v", records[0])
	}
	if records[1].Product.Name != "name-a" {
		t.Fatalf("attributes not joined: %+v", records[1])
	}
}

func TestAssembleMissingProduct(t *testing.T) {
	byID := SnapshotIndex([]domain.Product{product("a", 1, 0)})

	candidates := []domain.ScoredCandidate{
		{ProductID: "ghost", Similarity: 1, Rank: 1},
	}

	if _, err := Assemble(candidates, byID); !errors.Is(err, e.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}
