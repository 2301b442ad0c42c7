package ingest

import "github.com/LegisQA/legisqa-mvp/engine/domain"

// SegmentedDoc is a document split into ordered passages.
type SegmentedDoc struct {
	domain.Document
	Passages []string
}

// EmbeddedDoc is a segmented document with one vector per passage.
type EmbeddedDoc struct {
	SegmentedDoc
	Embeddings [][]float32
}
