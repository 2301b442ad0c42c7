// Package domain defines core domain types, constants, and validation for the
// LegisQA engine. It acts as the validation gate at pipeline entry points.
package domain

import "time"

// Corpus names a collection of documents sharing a schema.
type Corpus string

const (
	// CorpusBills holds congressional bill texts.
	CorpusBills Corpus = "bills"
	// CorpusExecutiveOrders holds executive order texts.
	CorpusExecutiveOrders Corpus = "executive_orders"
)

// ValidCorpora is the set of recognised corpora.
var ValidCorpora = map[Corpus]bool{
	CorpusBills:           true,
	CorpusExecutiveOrders: true,
}

// Document is one legal document as ingested: identifier unique within its
// corpus, raw text, corpus membership. Immutable once ingested; re-ingestion
// replaces it wholesale.
type Document struct {
	Corpus    Corpus    `json:"corpus"`
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Title     string    `json:"title,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Passage is a bounded, structurally aligned unit of a document's text, the
// unit of retrieval. Position is 0-based and defines display order.
type Passage struct {
	Corpus   Corpus `json:"corpus"`
	DocID    string `json:"doc_id"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// DefaultTopK returns the default result bound: 3 when the search is scoped
// to a single document, 5 for cross-document search.
func DefaultTopK(docID string) int {
	if docID != "" {
		return 3
	}
	return 5
}
