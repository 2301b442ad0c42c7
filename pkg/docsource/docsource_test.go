package docsource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
)

func writeDoc(t *testing.T, root string, corpus domain.Corpus, id, text string) {
	t.Helper()
	dir := filepath.Join(root, string(corpus))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".txt"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListSorted(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, domain.CorpusBills, "hr2-119", "text")
	writeDoc(t, root, domain.CorpusBills, "hr1-119", "text")
	writeDoc(t, root, domain.CorpusBills, "s55-119", "text")

	ids, err := New(root).List(domain.CorpusBills)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"hr1-119", "hr2-119", "s55-119"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestListIgnoresNonTxt(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, domain.CorpusBills, "hr1-119", "text")
	dir := filepath.Join(root, string(domain.CorpusBills))
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644)
	os.MkdirAll(filepath.Join(dir, "subdir.txt"), 0o755)

	ids, err := New(root).List(domain.CorpusBills)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != "hr1-119" {
		t.Errorf("ids = %v", ids)
	}
}

func TestListMissingCorpusDir(t *testing.T) {
	ids, err := New(t.TempDir()).List(domain.CorpusExecutiveOrders)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ids != nil {
		t.Errorf("ids = %v, want nil", ids)
	}
}

func TestListUnknownCorpus(t *testing.T) {
	_, err := New(t.TempDir()).List(domain.Corpus("treaties"))
	if !errors.Is(err, domain.ErrUnknownCorpus) {
		t.Errorf("err = %v, want ErrUnknownCorpus", err)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, domain.CorpusExecutiveOrders, "2026-01234", "Executive Order text.")

	doc, err := New(root).Load(domain.CorpusExecutiveOrders, "2026-01234")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.ID != "2026-01234" || doc.Corpus != domain.CorpusExecutiveOrders {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Text != "Executive Order text." {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := New(t.TempDir()).Load(domain.CorpusBills, "nope"); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestLoadAll(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, domain.CorpusBills, "b", "second")
	writeDoc(t, root, domain.CorpusBills, "a", "first")

	docs, err := New(root).LoadAll(domain.CorpusBills)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("docs = %+v", docs)
	}
	if docs[0].Text != "first" {
		t.Errorf("text = %q", docs[0].Text)
	}
}
