package xref

import (
	"context"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Section is one section node: identified by (corpus, doc_id, number).
type Section struct {
	Corpus  domain.Corpus `json:"corpus"`
	DocID   string        `json:"doc_id"`
	Number  string        `json:"number"`
	Heading string        `json:"heading,omitempty"`
}

// Store provides cross-reference graph operations on Neo4j.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Store.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// SaveSection creates or updates a section node.
func (s *Store) SaveSection(ctx context.Context, sec Section) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (n:Section {corpus: $corpus, doc_id: $doc_id, number: $number})
	           SET n.heading = $heading`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"corpus":  string(sec.Corpus),
		"doc_id":  sec.DocID,
		"number":  sec.Number,
		"heading": sec.Heading,
	})
	return err
}

// SaveReference records that section from refers to section to within one
// document. Referenced sections that were not (yet) seen as headings get a
// bare node.
func (s *Store) SaveReference(ctx context.Context, corpus domain.Corpus, docID, from, to string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (a:Section {corpus: $corpus, doc_id: $doc_id, number: $from})
	           MERGE (b:Section {corpus: $corpus, doc_id: $doc_id, number: $to})
	           MERGE (a)-[:REFERS_TO]->(b)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"corpus": string(corpus),
		"doc_id": docID,
		"from":   from,
		"to":     to,
	})
	return err
}

// SectionHeadings returns the stored headings for the given section numbers
// of one document. Numbers without a stored heading are omitted.
func (s *Store) SectionHeadings(ctx context.Context, corpus domain.Corpus, docID string, numbers []string) (map[string]string, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Section {corpus: $corpus, doc_id: $doc_id})
	           WHERE n.number IN $numbers AND n.heading <> ''
	           RETURN n.number AS number, n.heading AS heading`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"corpus":  string(corpus),
		"doc_id":  docID,
		"numbers": numbers,
	})
	if err != nil {
		return nil, err
	}

	headings := make(map[string]string)
	for result.Next(ctx) {
		rec := result.Record()
		number, _ := rec.Get("number")
		heading, _ := rec.Get("heading")
		if n, ok := number.(string); ok {
			if h, ok := heading.(string); ok {
				headings[n] = h
			}
		}
	}
	return headings, result.Err()
}

// ReferencesOf returns the sections a given section refers to.
func (s *Store) ReferencesOf(ctx context.Context, corpus domain.Corpus, docID, number string) ([]Section, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (:Section {corpus: $corpus, doc_id: $doc_id, number: $number})-[:REFERS_TO]->(b:Section)
	           RETURN b.number AS number, b.heading AS heading ORDER BY number`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"corpus": string(corpus),
		"doc_id": docID,
		"number": number,
	})
	if err != nil {
		return nil, err
	}

	var sections []Section
	for result.Next(ctx) {
		rec := result.Record()
		sec := Section{Corpus: corpus, DocID: docID}
		if n, ok := rec.Get("number"); ok {
			sec.Number, _ = n.(string)
		}
		if h, ok := rec.Get("heading"); ok {
			sec.Heading, _ = h.(string)
		}
		sections = append(sections, sec)
	}
	return sections, result.Err()
}

// DocumentIDs returns the distinct document IDs present in the graph for a
// corpus, sorted.
func (s *Store) DocumentIDs(ctx context.Context, corpus domain.Corpus) ([]string, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Section {corpus: $corpus})
	           RETURN DISTINCT n.doc_id AS doc_id ORDER BY doc_id`
	result, err := sess.Run(ctx, cypher, map[string]any{"corpus": string(corpus)})
	if err != nil {
		return nil, err
	}

	var ids []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get("doc_id"); ok {
			if id, ok := v.(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, result.Err()
}

// DeleteDocument removes a document's section graph. Used on re-ingestion so
// stale references don't accumulate.
func (s *Store) DeleteDocument(ctx context.Context, corpus domain.Corpus, docID string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Section {corpus: $corpus, doc_id: $doc_id}) DETACH DELETE n`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"corpus": string(corpus),
		"doc_id": docID,
	})
	return err
}
