package semantic

import (
	"context"
	"testing"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
)

func record(docID string, position int, text string, vec []float32) VectorRecord {
	return VectorRecord{
		ID:        text,
		Embedding: vec,
		Payload: map[string]any{
			"doc_id":   docID,
			"position": position,
			"text":     text,
			"corpus":   string(domain.CorpusBills),
		},
	}
}

func TestMemoryStoreSearchRanksByCosine(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	err := m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{
		record("hr1", 0, "orthogonal", []float32{0, 1}),
		record("hr1", 1, "aligned", []float32{1, 0}),
		record("hr1", 2, "diagonal", []float32{1, 1}),
	})
	if err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}

	results, err := m.Search(ctx, domain.CorpusBills, []float32{1, 0}, 2, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Text != "aligned" {
		t.Errorf("best match = %q, want the aligned vector", results[0].Text)
	}
	if results[1].Text != "diagonal" {
		t.Errorf("second match = %q", results[1].Text)
	}
}

func TestMemoryStoreScopedSearch(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{record("hr1", 0, "from hr1", []float32{1, 0})})
	m.ReplaceDocument(ctx, domain.CorpusBills, "hr2", []VectorRecord{record("hr2", 0, "from hr2", []float32{1, 0})})

	results, err := m.Search(ctx, domain.CorpusBills, []float32{1, 0}, 10, "hr2")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].DocID != "hr2" {
		t.Fatalf("scoped search leaked other documents: %v", results)
	}
}

func TestMemoryStoreCorporaAreIsolated(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{record("hr1", 0, "a bill", []float32{1})})

	results, err := m.Search(ctx, domain.CorpusExecutiveOrders, []float32{1}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("executive order search returned bill entries: %v", results)
	}
}

func TestMemoryStoreReplaceDoesNotAccumulate(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{
		record("hr1", 0, "old a", []float32{1, 0}),
		record("hr1", 1, "old b", []float32{0, 1}),
		record("hr1", 2, "old c", []float32{1, 1}),
	})
	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{
		record("hr1", 0, "new only", []float32{1, 0}),
	})

	if got := m.Count(domain.CorpusBills); got != 1 {
		t.Fatalf("Count = %d after replace, want 1", got)
	}
	results, _ := m.Search(ctx, domain.CorpusBills, []float32{1, 0}, 10, "hr1")
	if len(results) != 1 || results[0].Text != "new only" {
		t.Fatalf("stale entries survived replace: %v", results)
	}
}

func TestMemoryStoreReplaceKeepsOtherDocuments(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", []VectorRecord{record("hr1", 0, "one", []float32{1})})
	m.ReplaceDocument(ctx, domain.CorpusBills, "hr2", []VectorRecord{record("hr2", 0, "two", []float32{1})})
	m.ReplaceDocument(ctx, domain.CorpusBills, "hr1", nil)

	ids, err := m.ListDocumentIDs(ctx, domain.CorpusBills)
	if err != nil {
		t.Fatalf("ListDocumentIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "hr2" {
		t.Fatalf("ids = %v, want only hr2", ids)
	}
}

func TestMemoryStoreListDocumentIDsSorted(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		m.ReplaceDocument(ctx, domain.CorpusBills, id, []VectorRecord{record(id, 0, id, []float32{1})})
	}

	ids, _ := m.ListDocumentIDs(ctx, domain.CorpusBills)
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, c := range cases {
		got := cosine(c.a, c.b)
		if diff := got - c.want; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("cosine(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
