package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
)

func TestSectionRef(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"What does Section 5 say?", "5"},
		{"what does section 12 require", "12"},
		{"Summarize SEC. 3 for me", "3"},
		{"Explain sec 101a please", "101a"},
		{"Compare section 2 and section 9", "2"}, // first reference wins
		{"What is the overall purpose?", ""},
		{"dissection 4 of the frog", ""},
		{"the SEC regulates securities", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := SectionRef(c.query); got != c.want {
			t.Errorf("SectionRef(%q) = %q, want %q", c.query, got, c.want)
		}
	}
}

func TestLocatorResolveNoReference(t *testing.T) {
	emb := &fakeEmbedder{}
	loc := NewLocator(emb, &fakeIndex{})

	got, err := loc.Resolve(context.Background(), "general question", domain.CorpusBills, "hr1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil for a query without a section reference", got)
	}
	if len(emb.calls) != 0 {
		t.Error("no embedding should happen without a reference")
	}
}

func TestLocatorResolveTop1Scoped(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{results: map[string][]semantic.SearchResult{
		"hr1": {hit("hr1", "SEC. 8. PENALTIES.\nFines apply.", 0.6, 7)},
	}}
	loc := NewLocator(emb, idx)

	got, err := loc.Resolve(context.Background(), "what does section 8 do", domain.CorpusBills, "hr1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Position != 7 {
		t.Fatalf("got %v, want the indexed section passage", got)
	}
	if emb.calls[0] != "Section 8" {
		t.Errorf("synthetic query = %q, want %q", emb.calls[0], "Section 8")
	}
	if idx.limits[0] != 1 {
		t.Errorf("locator searched with limit %d, want 1", idx.limits[0])
	}
}

func TestLocatorResolveNothingIndexed(t *testing.T) {
	loc := NewLocator(&fakeEmbedder{}, &fakeIndex{results: map[string][]semantic.SearchResult{}})

	got, err := loc.Resolve(context.Background(), "section 3?", domain.CorpusBills, "empty-doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil when nothing is indexed", got)
	}
}

func TestLocatorResolveErrors(t *testing.T) {
	_, err := NewLocator(&fakeEmbedder{err: errors.New("down")}, &fakeIndex{}).
		Resolve(context.Background(), "section 1", domain.CorpusBills, "hr1")
	if !domain.IsDependency(err) {
		t.Fatalf("embed failure: got %v, want dependency error", err)
	}

	_, err = NewLocator(&fakeEmbedder{}, &fakeIndex{err: errors.New("down")}).
		Resolve(context.Background(), "section 1", domain.CorpusBills, "hr1")
	if !domain.IsDependency(err) {
		t.Fatalf("index failure: got %v, want dependency error", err)
	}
}
