package qa

import (
	"fmt"
	"strings"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/retrieve"
)

// formatExcerpts renders retrieved passages for the prompt, whitespace
// collapsed, each tagged with its rank and relevance score.
func formatExcerpts(entries []retrieve.Entry) string {
	var parts []string
	for i, e := range entries {
		clean := strings.Join(strings.Fields(e.Text), " ")
		parts = append(parts, fmt.Sprintf("Excerpt %d (relevance: %.2f):\n%s\n", i+1, e.Score, clean))
	}
	return strings.Join(parts, "\n")
}

// buildUserMessage assembles the user prompt: scope header, excerpts,
// optional cross-reference context, then the question.
func buildUserMessage(corpus domain.Corpus, docID, question string, entries []retrieve.Entry, xrefContext string) string {
	var b strings.Builder
	if docID != "" {
		fmt.Fprintf(&b, "Document ID: %s\n\n", docID)
	} else {
		fmt.Fprintf(&b, "Corpus: %s\n\n", corpus)
	}
	b.WriteString("Relevant excerpts:\n")
	b.WriteString(formatExcerpts(entries))
	if xrefContext != "" {
		b.WriteString("\n")
		b.WriteString(xrefContext)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)
	return b.String()
}
