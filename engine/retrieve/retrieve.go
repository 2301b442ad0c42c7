// Package retrieve orchestrates passage retrieval: locator resolution for
// explicit section references, semantic similarity search, and merging the
// two into an ordered, deduplicated result.
package retrieve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/pkg/fn"
)

// Retriever answers queries against the passage index.
type Retriever struct {
	embed   Embedder
	index   Index
	locator *Locator
	logger  *slog.Logger
}

// New creates a Retriever.
func New(embed Embedder, index Index, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embed:   embed,
		index:   index,
		locator: NewLocator(embed, index),
		logger:  logger,
	}
}

// Retrieve resolves a query into an ordered, deduplicated passage list.
//
// When the query is scoped to one document, an explicit "Section N" reference
// seeds the result before semantic merging. Duplicate passages (exact trimmed
// text equality) are suppressed; the result is truncated to top_k. A document
// id with nothing indexed yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]Entry, error) {
	if err := domain.ValidateCorpus(q.Corpus); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuestion(q.Text); err != nil {
		return nil, err
	}
	topK := q.TopK
	if topK == 0 {
		topK = domain.DefaultTopK(q.DocumentID)
	}
	if topK < 0 {
		return nil, domain.NewValidationError("top_k", "", domain.ErrNonPositiveTopK)
	}

	var entries []Entry
	seen := make(map[string]bool)

	// Locator resolution only applies within a single known document.
	if q.DocumentID != "" {
		seed, err := r.locator.Resolve(ctx, q.Text, q.Corpus, q.DocumentID)
		if err != nil {
			return nil, err
		}
		if seed != nil {
			entries = append(entries, entryFrom(*seed))
			seen[strings.TrimSpace(seed.Text)] = true
			r.logger.Debug("locator seeded result",
				"corpus", q.Corpus, "doc_id", q.DocumentID, "position", seed.Position)
		}
	}

	vector, err := r.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, domain.NewDependencyError("embedding", q.Corpus, q.DocumentID, err)
	}

	// Over-fetch by the seed count so enough semantic candidates survive
	// deduplication.
	hits, err := r.index.Search(ctx, q.Corpus, vector, topK+len(entries), q.DocumentID)
	if err != nil {
		return nil, domain.NewDependencyError("index", q.Corpus, q.DocumentID, err)
	}

	fresh := fn.Filter(hits, func(h semantic.SearchResult) bool {
		key := strings.TrimSpace(h.Text)
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
	entries = append(entries, fn.Map(fresh, entryFrom)...)

	if len(entries) > topK {
		entries = entries[:topK]
	}
	return entries, nil
}

func entryFrom(sr semantic.SearchResult) Entry {
	return Entry{
		Text:     sr.Text,
		Score:    sr.Score,
		DocID:    sr.DocID,
		Position: sr.Position,
	}
}
