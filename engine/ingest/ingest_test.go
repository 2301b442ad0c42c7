package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/segment"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
)

// --- Fakes ---

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, texts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type fakeIndex struct {
	corpus  domain.Corpus
	docID   string
	records []semantic.VectorRecord
	calls   int
	err     error
}

func (f *fakeIndex) ReplaceDocument(_ context.Context, corpus domain.Corpus, docID string, records []semantic.VectorRecord) error {
	f.calls++
	f.corpus = corpus
	f.docID = docID
	f.records = records
	return f.err
}

type fakeXrefs struct {
	deleted  []string
	sections []xref.Section
	refs     [][2]string
	err      error
}

func (f *fakeXrefs) DeleteDocument(_ context.Context, _ domain.Corpus, docID string) error {
	f.deleted = append(f.deleted, docID)
	return f.err
}

func (f *fakeXrefs) SaveSection(_ context.Context, sec xref.Section) error {
	f.sections = append(f.sections, sec)
	return f.err
}

func (f *fakeXrefs) SaveReference(_ context.Context, _ domain.Corpus, _, from, to string) error {
	f.refs = append(f.refs, [2]string{from, to})
	return f.err
}

func billDoc() domain.Document {
	return domain.Document{
		Corpus: domain.CorpusBills,
		ID:     "hr1",
		Text: "SEC. 1. SHORT TITLE.\nThis Act may be cited as the Example Act.\n\n" +
			"SEC. 2. ENFORCEMENT.\nPenalties under section 1 apply as provided in section 3.\n\n" +
			"SEC. 3. EFFECTIVE DATE.\nThis Act takes effect immediately.",
	}
}

// --- Tests ---

func TestPipelineHappyPath(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	xfs := &fakeXrefs{}

	pipeline := NewPipeline(Deps{Embedder: emb, Index: idx, Xrefs: xfs})
	result := pipeline(context.Background(), billDoc())
	if result.IsErr() {
		_, err := result.Unwrap()
		t.Fatalf("pipeline failed: %v", err)
	}
	docID, _ := result.Unwrap()
	if docID != "hr1" {
		t.Errorf("result = %q, want doc id", docID)
	}

	if idx.calls != 1 || idx.docID != "hr1" || idx.corpus != domain.CorpusBills {
		t.Fatalf("index write wrong: %+v", idx)
	}
	if len(idx.records) != 3 {
		t.Fatalf("records = %d, want one per section", len(idx.records))
	}
	for i, r := range idx.records {
		if r.Payload["position"] != i {
			t.Errorf("record %d position = %v", i, r.Payload["position"])
		}
		if r.Payload["doc_id"] != "hr1" {
			t.Errorf("record %d doc_id = %v", i, r.Payload["doc_id"])
		}
		if r.ID == "" {
			t.Errorf("record %d has no point id", i)
		}
	}
}

func TestPipelinePointIDsDeterministic(t *testing.T) {
	run := func() []string {
		idx := &fakeIndex{}
		pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: idx})
		if r := pipeline(context.Background(), billDoc()); r.IsErr() {
			_, err := r.Unwrap()
			t.Fatalf("pipeline failed: %v", err)
		}
		ids := make([]string, len(idx.records))
		for i, rec := range idx.records {
			ids[i] = rec.ID
		}
		return ids
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("point id %d differs across runs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestPipelineWritesXrefGraph(t *testing.T) {
	xfs := &fakeXrefs{}
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: &fakeIndex{}, Xrefs: xfs})
	if r := pipeline(context.Background(), billDoc()); r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(xfs.deleted) != 1 || xfs.deleted[0] != "hr1" {
		t.Errorf("prior graph not cleared: %v", xfs.deleted)
	}
	if len(xfs.sections) != 3 {
		t.Fatalf("sections = %d, want 3: %v", len(xfs.sections), xfs.sections)
	}
	if xfs.sections[0].Number != "1" || xfs.sections[0].Heading != "SHORT TITLE" {
		t.Errorf("section 0 = %+v", xfs.sections[0])
	}
	// Section 2 refers to 1 and 3; self-references are skipped.
	wantRefs := [][2]string{{"2", "1"}, {"2", "3"}}
	if len(xfs.refs) != len(wantRefs) {
		t.Fatalf("refs = %v, want %v", xfs.refs, wantRefs)
	}
	for i := range wantRefs {
		if xfs.refs[i] != wantRefs[i] {
			t.Errorf("ref %d = %v, want %v", i, xfs.refs[i], wantRefs[i])
		}
	}
}

func TestPipelineXrefFailureIsNotFatal(t *testing.T) {
	xfs := &fakeXrefs{err: errors.New("neo4j down")}
	idx := &fakeIndex{}
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: idx, Xrefs: xfs})

	if r := pipeline(context.Background(), billDoc()); r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("graph failure must not fail ingestion: %v", err)
	}
	if idx.calls != 1 {
		t.Error("index write should still happen")
	}
}

func TestPipelineXrefFailureWarnsViaConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	xfs := &fakeXrefs{err: errors.New("neo4j down")}
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: &fakeIndex{}, Xrefs: xfs, Logger: log})

	if r := pipeline(context.Background(), billDoc()); r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("graph failure must not fail ingestion: %v", err)
	}
	logged := buf.String()
	if !strings.Contains(logged, "xref save") {
		t.Errorf("warning not routed to pipeline logger: %s", logged)
	}
	if !strings.Contains(logged, `"doc_id":"hr1"`) {
		t.Errorf("warning missing doc_id attr: %s", logged)
	}
}

func TestPipelineRejectsInvalidDocument(t *testing.T) {
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: &fakeIndex{}})

	cases := []domain.Document{
		{Corpus: "laws", ID: "x", Text: "t"},
		{Corpus: domain.CorpusBills, ID: "", Text: "t"},
		{Corpus: domain.CorpusBills, ID: "x", Text: " "},
	}
	for _, doc := range cases {
		if r := pipeline(context.Background(), doc); r.IsOk() {
			t.Errorf("document %+v should be rejected", doc)
		}
	}
}

func TestPipelineEmbedFailure(t *testing.T) {
	idx := &fakeIndex{}
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{err: errors.New("model down")}, Index: idx})

	r := pipeline(context.Background(), billDoc())
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	_, err := r.Unwrap()
	if !domain.IsDependency(err) {
		t.Errorf("got %v, want dependency error", err)
	}
	if idx.calls != 0 {
		t.Error("store stage must not run after embed failure")
	}
}

func TestPipelineIndexFailure(t *testing.T) {
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, Index: &fakeIndex{err: errors.New("qdrant down")}})

	r := pipeline(context.Background(), billDoc())
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	_, err := r.Unwrap()
	if !domain.IsDependency(err) {
		t.Errorf("got %v, want dependency error", err)
	}
}

func TestEmbedStageBatches(t *testing.T) {
	emb := &fakeEmbedder{}
	stage := NewEmbed(emb)

	passages := make([]string, EmbedBatchSize+7)
	for i := range passages {
		passages[i] = "p"
	}
	r := stage(context.Background(), SegmentedDoc{
		Document: domain.Document{Corpus: domain.CorpusBills, ID: "hr1"},
		Passages: passages,
	})
	if r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("embed stage failed: %v", err)
	}
	doc, _ := r.Unwrap()
	if len(emb.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(emb.batches))
	}
	// Batches run concurrently; sizes matter, recording order does not.
	sizes := []int{len(emb.batches[0]), len(emb.batches[1])}
	sort.Ints(sizes)
	if sizes[0] != 7 || sizes[1] != EmbedBatchSize {
		t.Errorf("batch sizes = %v, want [7 %d]", sizes, EmbedBatchSize)
	}
	if len(doc.Embeddings) != len(passages) {
		t.Errorf("embeddings = %d, want %d", len(doc.Embeddings), len(passages))
	}
}

func TestEmbedStagePreservesOrder(t *testing.T) {
	emb := &fakeEmbedder{}
	stage := NewEmbed(emb)

	passages := make([]string, EmbedBatchSize*3)
	for i := range passages {
		passages[i] = strings.Repeat("w", i+1)
	}
	r := stage(context.Background(), SegmentedDoc{
		Document: domain.Document{Corpus: domain.CorpusBills, ID: "hr1"},
		Passages: passages,
	})
	if r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("embed stage failed: %v", err)
	}
	doc, _ := r.Unwrap()
	for i, vec := range doc.Embeddings {
		if vec[0] != float32(i+1) {
			t.Fatalf("embedding %d out of order: got length marker %g", i, vec[0])
		}
	}
}

func TestSegmentStageSplitsSections(t *testing.T) {
	stage := NewSegment(segment.New(segment.Options{}))

	r := stage(context.Background(), billDoc())
	if r.IsErr() {
		_, err := r.Unwrap()
		t.Fatalf("segment stage failed: %v", err)
	}
	doc, _ := r.Unwrap()
	if len(doc.Passages) != 3 {
		t.Errorf("passages = %d, want 3", len(doc.Passages))
	}
}
