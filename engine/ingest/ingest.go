// Package ingest provides the ingestion pipeline that processes raw legal
// documents through validation, segmentation, embedding, and storage stages.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/segment"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
	"github.com/LegisQA/legisqa-mvp/pkg/fn"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// IngestSubject is the NATS subject for incoming documents.
	IngestSubject = "legisqa.ingest"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "legisqa.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
	// EmbedBatchSize is the max passages per embedding request.
	EmbedBatchSize = 100
	// EmbedWorkers is the number of concurrent embedding requests.
	EmbedWorkers = 4
)

// BatchEmbedder embeds passages in batches.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexWriter replaces a document's entries in the passage index.
type IndexWriter interface {
	ReplaceDocument(ctx context.Context, corpus domain.Corpus, docID string, records []semantic.VectorRecord) error
}

// XrefWriter records the cross-reference graph of a document.
type XrefWriter interface {
	DeleteDocument(ctx context.Context, corpus domain.Corpus, docID string) error
	SaveSection(ctx context.Context, sec xref.Section) error
	SaveReference(ctx context.Context, corpus domain.Corpus, docID, from, to string) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Segmenter    *segment.Segmenter
	Embedder     BatchEmbedder
	Index        IndexWriter
	Xrefs        XrefWriter                                            // optional
	DeduplicateF func(ctx context.Context, docID string) (bool, error) // returns true if already ingested
	Logger       *slog.Logger
}

// --- Pipeline Stages ---

// Validate checks a Document via domain validation.
var Validate fn.Stage[domain.Document, domain.Document] = func(_ context.Context, doc domain.Document) fn.Result[domain.Document] {
	if err := domain.ValidateDocument(doc); err != nil {
		return fn.Err[domain.Document](err)
	}
	return fn.Ok(doc)
}

// NewSegment creates a stage that splits a document into passages.
func NewSegment(seg *segment.Segmenter) fn.Stage[domain.Document, SegmentedDoc] {
	return func(_ context.Context, doc domain.Document) fn.Result[SegmentedDoc] {
		passages := seg.Segment(doc.Text)
		if len(passages) == 0 {
			return fn.Errf[SegmentedDoc]("segment: no passages for %s/%s", doc.Corpus, doc.ID)
		}
		return fn.Ok(SegmentedDoc{Document: doc, Passages: passages})
	}
}

// NewEmbed creates a stage that embeds passages, fanning batches out to
// EmbedWorkers concurrent requests. Embedding order matches passage order.
func NewEmbed(client BatchEmbedder) fn.Stage[SegmentedDoc, EmbeddedDoc] {
	return func(ctx context.Context, doc SegmentedDoc) fn.Result[EmbeddedDoc] {
		batches := fn.Chunk(doc.Passages, EmbedBatchSize)
		results := fn.ParMapResult(batches, EmbedWorkers, func(batch []string) fn.Result[[][]float32] {
			vecs, err := client.EmbedBatch(ctx, batch)
			if err != nil {
				return fn.Err[[][]float32](domain.NewDependencyError("embedding", doc.Corpus, doc.ID, err))
			}
			return fn.Ok(vecs)
		})
		collected, err := fn.Collect(results).Unwrap()
		if err != nil {
			return fn.Err[EmbeddedDoc](err)
		}
		embeddings := make([][]float32, 0, len(doc.Passages))
		for _, vecs := range collected {
			embeddings = append(embeddings, vecs...)
		}
		return fn.Ok(EmbeddedDoc{SegmentedDoc: doc, Embeddings: embeddings})
	}
}

// NewStore creates a stage that writes passages to the passage index and the
// cross-reference graph. Index entries previously stored for the document are
// replaced, never accumulated.
func NewStore(index IndexWriter, xrefs XrefWriter, log *slog.Logger) fn.Stage[EmbeddedDoc, string] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[string] {
		records := make([]semantic.VectorRecord, len(doc.Passages))
		for i, passage := range doc.Passages {
			// Deterministic UUID from doc ID and position keeps
			// re-indexing idempotent.
			pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", doc.ID, i))).String()
			records[i] = semantic.VectorRecord{
				ID:        pointID,
				Embedding: doc.Embeddings[i],
				Payload: map[string]any{
					"corpus":   string(doc.Corpus),
					"doc_id":   doc.ID,
					"position": i,
					"text":     passage,
					"chunk_id": fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				},
			}
		}
		if err := index.ReplaceDocument(ctx, doc.Corpus, doc.ID, records); err != nil {
			return fn.Err[string](domain.NewDependencyError("index", doc.Corpus, doc.ID, err))
		}

		if xrefs != nil {
			if err := saveXrefs(ctx, xrefs, doc); err != nil {
				// Enrichment data only; don't fail the pipeline.
				log.Warn("ingest: xref save", "error", err, "doc_id", doc.ID)
			}
		}
		return fn.Ok(doc.ID)
	}
}

// saveXrefs rebuilds the document's section graph: section nodes from
// passage headings, REFERS_TO edges from in-text references.
func saveXrefs(ctx context.Context, xrefs XrefWriter, doc EmbeddedDoc) error {
	if err := xrefs.DeleteDocument(ctx, doc.Corpus, doc.ID); err != nil {
		return fmt.Errorf("delete prior sections: %w", err)
	}

	current := ""
	for _, passage := range doc.Passages {
		if number, heading, ok := xref.HeadingOf(passage); ok {
			current = number
			if err := xrefs.SaveSection(ctx, xref.Section{
				Corpus:  doc.Corpus,
				DocID:   doc.ID,
				Number:  number,
				Heading: heading,
			}); err != nil {
				return fmt.Errorf("save section %s: %w", number, err)
			}
		}
		if current == "" {
			continue
		}
		for _, ref := range xref.ExtractRefs(passage) {
			if ref == current {
				continue
			}
			if err := xrefs.SaveReference(ctx, doc.Corpus, doc.ID, current, ref); err != nil {
				return fmt.Errorf("save reference %s->%s: %w", current, ref, err)
			}
		}
	}
	return nil
}

// LoggedTap returns a pass-through stage that logs the pipeline entering a
// named point.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return fn.TapStage(func(context.Context, T) {
		log.Info("stage.enter", "stage", name)
	})
}

// NewPipeline constructs the full ingestion pipeline with all stages wired.
func NewPipeline(deps Deps) fn.Stage[domain.Document, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	seg := deps.Segmenter
	if seg == nil {
		seg = segment.New(segment.Options{})
	}

	validated := fn.Then(LoggedTap[domain.Document]("validate", log), Validate)
	segmented := fn.Then(validated, fn.TracedStage("segment", NewSegment(seg)))
	embedded := fn.Then(segmented, fn.TracedStage("embed", NewEmbed(deps.Embedder)))
	stored := fn.Then(embedded, fn.TracedStage("store", NewStore(deps.Index, deps.Xrefs, log)))
	return stored
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Document domain.Document `json:"document"`
	Error    string          `json:"error"`
	Retries  int             `json:"retries"`
}

// StartConsumer starts a NATS consumer that runs incoming documents through
// the ingestion pipeline with retry and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var doc domain.Document
		if err := json.Unmarshal(msg.Data, &doc); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		if deps.DeduplicateF != nil {
			docID := string(doc.Corpus) + ":" + doc.ID
			exists, err := deps.DeduplicateF(ctx, docID)
			if err != nil {
				log.Warn("ingest: dedup check failed", "error", err)
			} else if exists {
				log.Info("ingest: skipping duplicate", "doc_id", docID)
				return
			}
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, doc)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"corpus", doc.Corpus,
				"doc_id", doc.ID,
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Document: doc, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(IngestSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
			return
		}

		docID, _ := result.Unwrap()
		log.Info("ingest: success", "doc_id", docID)
	})
}
