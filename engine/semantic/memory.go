package semantic

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
)

// MemoryStore is a brute-force cosine-similarity index with the same search
// surface as VectorStore. It backs tests and the in-memory ingest mode. A
// single RWMutex gives writer-exclusive, multi-reader-shared access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]memEntry // keyed by collection name
}

type memEntry struct {
	vector []float32
	result SearchResult
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]memEntry)}
}

// ReplaceDocument swaps all entries for (corpus, docID) with the new set.
func (m *MemoryStore) ReplaceDocument(_ context.Context, corpus domain.Corpus, docID string, records []VectorRecord) error {
	collection := CollectionFor(corpus)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[collection][:0]
	for _, e := range m.entries[collection] {
		if e.result.DocID != docID {
			kept = append(kept, e)
		}
	}
	for _, r := range records {
		kept = append(kept, memEntry{
			vector: r.Embedding,
			result: resultFromPayload(r.ID, r.Payload),
		})
	}
	m.entries[collection] = kept
	return nil
}

// Search ranks entries by cosine similarity to vector. Unknown corpora or
// documents yield an empty result.
func (m *MemoryStore) Search(_ context.Context, corpus domain.Corpus, vector []float32, topK int, docID string) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, e := range m.entries[CollectionFor(corpus)] {
		if docID != "" && e.result.DocID != docID {
			continue
		}
		r := e.result
		r.Score = cosine(e.vector, vector)
		results = append(results, r)
	}

	SortDeterministic(results)
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListDocumentIDs returns the unique, sorted document ids in a corpus.
func (m *MemoryStore) ListDocumentIDs(_ context.Context, corpus domain.Corpus) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, e := range m.entries[CollectionFor(corpus)] {
		seen[e.result.DocID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of entries indexed for a corpus.
func (m *MemoryStore) Count(corpus domain.Corpus) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[CollectionFor(corpus)])
}

func resultFromPayload(id string, payload map[string]any) SearchResult {
	sr := SearchResult{ID: id}
	if v, ok := payload["text"].(string); ok {
		sr.Text = v
	}
	if v, ok := payload["doc_id"].(string); ok {
		sr.DocID = v
	}
	if v, ok := payload["corpus"].(string); ok {
		sr.Corpus = v
	}
	switch v := payload["position"].(type) {
	case int:
		sr.Position = v
	case int64:
		sr.Position = int(v)
	}
	return sr
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
