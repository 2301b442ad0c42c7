// Package qa orchestrates question answering over indexed legal documents.
// It retrieves the most relevant passages, optionally enriches them with
// cross-reference context, builds a grounded prompt, and calls the generation
// backend for the final answer.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/retrieve"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
	"github.com/LegisQA/legisqa-mvp/pkg/fn"
)

// Searcher abstracts the Retriever.
type Searcher interface {
	Retrieve(ctx context.Context, q retrieve.Query) ([]retrieve.Entry, error)
}

// Generator abstracts the chat-completion backend.
type Generator interface {
	Chat(ctx context.Context, system, user string) (*Completion, error)
}

// Completion is the generation backend's reply.
type Completion struct {
	Text       string
	TokensUsed int32
	Model      string
}

// Enricher resolves section headings for cross-reference context.
type Enricher interface {
	SectionHeadings(ctx context.Context, corpus domain.Corpus, docID string, numbers []string) (map[string]string, error)
}

// Options configures the QA pipeline behaviour.
type Options struct {
	TopK            int
	MaxContextChars int // combined excerpt length cap; 0 means unlimited
	SystemPrompt    string
	UseXref         bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:            0, // corpus default
		MaxContextChars: 12000,
		SystemPrompt:    defaultSystemPrompt,
		UseXref:         true,
	}
}

const defaultSystemPrompt = `You are an expert assistant for answering questions about U.S. congressional bills and executive orders.
Your task is to answer questions based ONLY on the provided excerpts.
Follow these rules strictly:
1. Only use information from the provided excerpts
2. If the answer isn't in the excerpts, say "I cannot find this information in the provided excerpts"
3. When quoting the document, use exact quotes and cite the relevant section if available
4. If multiple excerpts are relevant, synthesize them but maintain accuracy
5. If a section number is mentioned in the question, prioritize information from that section
6. Be direct and concise in your answers
7. If there's ambiguity in the text, acknowledge it
8. Do not make assumptions beyond what's explicitly stated`

// Service answers questions using retrieval-grounded generation.
type Service struct {
	search Searcher
	gen    Generator
	xrefs  Enricher
	opts   Options
	logger *slog.Logger
}

// New creates a QA Service. xrefs may be nil.
func New(search Searcher, gen Generator, xrefs Enricher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{search: search, gen: gen, xrefs: xrefs, opts: opts, logger: logger}
}

// Answer is the structured response.
type Answer struct {
	Text       string            `json:"text"`
	Excerpts   []retrieve.Entry  `json:"excerpts"`
	TokensUsed int32             `json:"tokens_used,omitempty"`
	Model      string            `json:"model,omitempty"`
}

// Ask retrieves passages for the question and generates a grounded answer.
// An empty retrieval (nothing indexed for the scope) returns an Answer with
// no excerpts and no generation call, so the caller can message "no data".
func (s *Service) Ask(ctx context.Context, corpus domain.Corpus, docID, question string, topK int) (*Answer, error) {
	if topK == 0 {
		topK = s.opts.TopK
	}
	entries, err := s.search.Retrieve(ctx, retrieve.Query{
		Corpus:     corpus,
		DocumentID: docID,
		Text:       question,
		TopK:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("qa: retrieve: %w", err)
	}
	if len(entries) == 0 {
		return &Answer{Excerpts: []retrieve.Entry{}}, nil
	}

	entries = limitExcerpts(entries, s.opts.MaxContextChars)

	var xrefContext string
	if s.opts.UseXref && s.xrefs != nil && docID != "" {
		xrefContext = s.enrichWithXrefs(ctx, corpus, docID, entries)
	}

	user := buildUserMessage(corpus, docID, question, entries, xrefContext)
	completion, err := s.gen.Chat(ctx, s.opts.SystemPrompt, user)
	if err != nil {
		return nil, domain.NewDependencyError("generation", corpus, docID, err)
	}

	return &Answer{
		Text:       strings.TrimSpace(completion.Text),
		Excerpts:   entries,
		TokensUsed: completion.TokensUsed,
		Model:      completion.Model,
	}, nil
}

// enrichWithXrefs resolves the headings of sections the excerpts refer to.
// Failures are logged and skipped; enrichment never fails the answer.
func (s *Service) enrichWithXrefs(ctx context.Context, corpus domain.Corpus, docID string, entries []retrieve.Entry) string {
	var all []string
	for _, e := range entries {
		all = append(all, xref.ExtractRefs(e.Text)...)
	}
	numbers := fn.UniqueBy(all, func(n string) string { return n })
	if len(numbers) == 0 {
		return ""
	}

	headings, err := s.xrefs.SectionHeadings(ctx, corpus, docID, numbers)
	if err != nil {
		s.logger.Warn("qa: xref enrichment failed, continuing without", "err", err)
		return ""
	}
	if len(headings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Sections referenced by the excerpts:\n")
	for _, n := range numbers {
		if h, ok := headings[n]; ok {
			fmt.Fprintf(&b, "- Section %s: %s\n", n, h)
		}
	}
	return b.String()
}

// limitExcerpts drops the lowest-ranked excerpts until the combined length
// fits maxChars. The top-ranked excerpt is always kept.
func limitExcerpts(entries []retrieve.Entry, maxChars int) []retrieve.Entry {
	if maxChars <= 0 {
		return entries
	}
	total := 0
	for _, e := range entries {
		total += len(e.Text)
	}
	for total > maxChars && len(entries) > 1 {
		total -= len(entries[len(entries)-1].Text)
		entries = entries[:len(entries)-1]
	}
	return entries
}
