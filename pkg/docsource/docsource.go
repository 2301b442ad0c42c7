// Package docsource loads raw legal documents from a local directory tree.
// The layout is <root>/<corpus>/<doc_id>.txt; the file stem is the document
// ID and the directory name is the corpus.
package docsource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
)

// Source reads documents from a root directory.
type Source struct {
	root string
}

// New creates a Source rooted at dir.
func New(dir string) *Source {
	return &Source{root: dir}
}

// List returns the document IDs available for a corpus, sorted.
func (s *Source) List(corpus domain.Corpus) ([]string, error) {
	if err := domain.ValidateCorpus(corpus); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, string(corpus))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("docsource: read %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads one document by corpus and ID.
func (s *Source) Load(corpus domain.Corpus, id string) (domain.Document, error) {
	if err := domain.ValidateCorpus(corpus); err != nil {
		return domain.Document{}, err
	}
	path := filepath.Join(s.root, string(corpus), id+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("docsource: load %s: %w", path, err)
	}
	info, err := os.Stat(path)
	fetched := time.Now()
	if err == nil {
		fetched = info.ModTime()
	}
	return domain.Document{
		Corpus:    corpus,
		ID:        id,
		Text:      string(data),
		FetchedAt: fetched,
	}, nil
}

// LoadAll reads every document in a corpus.
func (s *Source) LoadAll(corpus domain.Corpus) ([]domain.Document, error) {
	ids, err := s.List(corpus)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Load(corpus, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
