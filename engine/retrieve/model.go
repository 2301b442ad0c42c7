package retrieve

import (
	"context"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
)

// Query is one retrieval request.
type Query struct {
	Corpus     domain.Corpus `json:"corpus"`
	DocumentID string        `json:"document_id,omitempty"` // restricts search to one document
	Text       string        `json:"text"`
	TopK       int           `json:"top_k,omitempty"` // 0 means the corpus default
}

// Entry is one retrieved passage with its similarity score and origin.
type Entry struct {
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	DocID    string  `json:"doc_id"`
	Position int     `json:"position"`
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index abstracts the passage index (Qdrant or in-memory).
type Index interface {
	Search(ctx context.Context, corpus domain.Corpus, vector []float32, topK int, docID string) ([]semantic.SearchResult, error)
}
