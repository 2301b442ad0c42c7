package qa

import (
	"strings"
	"testing"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/retrieve"
)

func TestFormatExcerptsCollapsesWhitespace(t *testing.T) {
	got := formatExcerpts([]retrieve.Entry{
		{Text: "SEC. 1.   SHORT\n\tTITLE.\nCited as such.", Score: 0.876},
	})
	if !strings.HasPrefix(got, "Excerpt 1 (relevance: 0.88):\n") {
		t.Errorf("header wrong: %q", got)
	}
	if strings.Contains(got, "\t") || strings.Contains(got, "  ") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	if !strings.Contains(got, "SEC. 1. SHORT TITLE. Cited as such.") {
		t.Errorf("text mangled: %q", got)
	}
}

func TestFormatExcerptsNumbersSequentially(t *testing.T) {
	got := formatExcerpts([]retrieve.Entry{
		{Text: "first", Score: 0.9},
		{Text: "second", Score: 0.5},
	})
	if !strings.Contains(got, "Excerpt 1 (relevance: 0.90):") || !strings.Contains(got, "Excerpt 2 (relevance: 0.50):") {
		t.Errorf("missing sequential headers: %q", got)
	}
}

func TestBuildUserMessageOrder(t *testing.T) {
	msg := buildUserMessage(domain.CorpusBills, "hr1", "What now?",
		[]retrieve.Entry{{Text: "body", Score: 0.5}}, "Sections referenced by the excerpts:\n- Section 2: X\n")

	idxScope := strings.Index(msg, "Document ID: hr1")
	idxExcerpt := strings.Index(msg, "Relevant excerpts:")
	idxXref := strings.Index(msg, "Sections referenced")
	idxQ := strings.Index(msg, "Question: What now?")
	if idxScope == -1 || idxExcerpt == -1 || idxXref == -1 || idxQ == -1 {
		t.Fatalf("missing pieces:\n%s", msg)
	}
	if !(idxScope < idxExcerpt && idxExcerpt < idxXref && idxXref < idxQ) {
		t.Errorf("sections out of order:\n%s", msg)
	}
}
