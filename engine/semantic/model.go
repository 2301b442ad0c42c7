package semantic

import "github.com/LegisQA/legisqa-mvp/engine/domain"

// SearchResult represents a single vector search hit.
type SearchResult struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
	Corpus   string  `json:"corpus"`
	DocID    string  `json:"doc_id"`
	Position int     `json:"position"`
}

// VectorRecord represents a single passage vector to store.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // corpus, doc_id, position, text, chunk_id
}

// CollectionFor maps a corpus to its collection name.
func CollectionFor(corpus domain.Corpus) string {
	switch corpus {
	case domain.CorpusBills:
		return "bill_chunks"
	case domain.CorpusExecutiveOrders:
		return "executive_order_chunks"
	default:
		return string(corpus) + "_chunks"
	}
}
