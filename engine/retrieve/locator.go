package retrieve

import (
	"context"
	"fmt"
	"regexp"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
)

// locatorRe detects explicit structural references like "Section 5" or
// "SEC. 5" in a query, case-insensitively.
var locatorRe = regexp.MustCompile(`(?i)\b(?:sec\.?|section)\s+(\d+[a-z]?)\b`)

// Locator resolves explicit structural references in a query to a passage.
// Numeric section identifiers carry little weight in general-purpose
// embeddings, so an explicit reference is handled by a targeted top-1 lookup
// with a synthetic "Section N" query instead of relying on similarity ranking
// alone. This is a heuristic: it can mismatch when two sections embed
// similarly near the word "Section".
type Locator struct {
	embed Embedder
	index Index
}

// NewLocator creates a Locator.
func NewLocator(embed Embedder, index Index) *Locator {
	return &Locator{embed: embed, index: index}
}

// SectionRef returns the section number referenced in query text, or "".
func SectionRef(query string) string {
	m := locatorRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return m[1]
}

// Resolve returns the best-matching passage for an explicit section reference
// in query, scoped to one document, or nil when the query carries no such
// reference or nothing is indexed for the document.
func (l *Locator) Resolve(ctx context.Context, query string, corpus domain.Corpus, docID string) (*semantic.SearchResult, error) {
	ref := SectionRef(query)
	if ref == "" {
		return nil, nil
	}

	synthetic := fmt.Sprintf("Section %s", ref)
	vector, err := l.embed.Embed(ctx, synthetic)
	if err != nil {
		return nil, domain.NewDependencyError("embedding", corpus, docID, err)
	}

	hits, err := l.index.Search(ctx, corpus, vector, 1, docID)
	if err != nil {
		return nil, domain.NewDependencyError("index", corpus, docID, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}
