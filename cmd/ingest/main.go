// Command ingest indexes legal documents into Qdrant and Neo4j. It scans a
// local directory tree of raw documents on an interval and also consumes
// documents published on NATS by the scrapers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/ingest"
	"github.com/LegisQA/legisqa-mvp/engine/segment"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
	"github.com/LegisQA/legisqa-mvp/pkg/docsource"
	"github.com/LegisQA/legisqa-mvp/pkg/fn"
	"github.com/LegisQA/legisqa-mvp/pkg/metrics"
	"github.com/LegisQA/legisqa-mvp/pkg/natsutil"
	"github.com/LegisQA/legisqa-mvp/pkg/ollama"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var met = metrics.New()

var (
	mDocsTotal   = func(corpus string) *metrics.Counter { return met.Counter(metrics.WithLabels("legisqa_ingest_docs_total", "corpus", corpus), "Documents indexed") }
	mErrorsTotal = func(stage string) *metrics.Counter { return met.Counter(metrics.WithLabels("legisqa_ingest_errors_total", "stage", stage), "Ingestion errors") }
	mDocsSkipped = met.Counter("legisqa_ingest_docs_skipped_total", "Documents skipped by dedup")
	mActiveDocs  = met.Gauge("legisqa_ingest_active_docs", "Documents currently in the pipeline")
	mLastScan    = met.Gauge("legisqa_ingest_last_scan_timestamp", "Epoch of last directory scan")
	mPipelineDur = met.Histogram("legisqa_ingest_pipeline_duration_seconds", "Per-document pipeline time", nil)
)

const vectorDims = 768 // nomic-embed-text

func main() {
	var (
		dataDir     = flag.String("dir", "/var/lib/legisqa/data", "root directory of raw documents (<corpus>/<doc_id>.txt)")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "password", "Neo4j password")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		natsURL     = flag.String("nats", "", "NATS URL to consume scraped documents (empty disables)")
		interval    = flag.Duration("interval", 30*time.Second, "directory scan interval")
		stateFile   = flag.String("state", "/var/lib/legisqa/.ingest-state.json", "processed documents state")
		memory      = flag.Bool("memory", false, "use the in-memory index instead of Qdrant (local runs)")
		targetWords = flag.Int("target-words", 0, "max words per passage before subdivision (0 = default)")
	)
	flag.Parse()

	met.ServeAsync(9091)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Index backend
	var index ingest.IndexWriter
	if *memory {
		index = semantic.NewMemoryStore()
		log.Info("using in-memory index")
	} else {
		vs, err := semantic.New(*qdrantAddr)
		if err != nil {
			log.Error("qdrant connect failed", "error", err)
			os.Exit(1)
		}
		defer vs.Close()
		if err := vs.EnsureCollections(ctx, vectorDims); err != nil {
			log.Error("qdrant ensure collections failed", "error", err)
			os.Exit(1)
		}
		index = vs
		log.Info("connected to Qdrant", "addr", *qdrantAddr, "dims", vectorDims)
	}

	// Cross-reference graph (optional)
	var xrefs ingest.XrefWriter
	if !*memory {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			log.Warn("neo4j connect failed, cross-references disabled", "error", err)
		} else {
			defer driver.Close(ctx)
			if err := driver.VerifyConnectivity(ctx); err != nil {
				log.Warn("neo4j unreachable, cross-references disabled", "error", err)
			} else {
				xrefs = xref.New(driver)
				log.Info("connected to Neo4j")
			}
		}
	}

	embedder := ollama.NewEmbedClient(*ollamaURL, *ollamaModel)
	log.Info("using Ollama embeddings", "model", *ollamaModel)

	// Dedup within this process run
	var mu sync.Mutex
	seen := make(map[string]bool)

	deps := ingest.Deps{
		Segmenter: segment.New(segment.Options{TargetWords: *targetWords}),
		Embedder:  embedder,
		Index:     index,
		Xrefs:     xrefs,
		DeduplicateF: func(_ context.Context, docID string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if seen[docID] {
				mDocsSkipped.Inc()
				return true, nil
			}
			seen[docID] = true
			return false, nil
		},
		Logger: log,
	}

	pipeline := ingest.NewPipeline(deps)

	// NATS consumer for scraped documents
	if *natsURL != "" {
		nc, err := natsutil.Connect(*natsURL, "legisqa-ingest")
		if err != nil {
			log.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		sub, err := ingest.StartConsumer(nc, deps)
		if err != nil {
			log.Error("nats subscribe failed", "error", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("consuming documents", "subject", ingest.IngestSubject)
	}

	source := docsource.New(*dataDir)
	processed := loadState(*stateFile)

	log.Info("watching for documents", "dir", *dataDir, "interval", *interval)

	scan := func() {
		mLastScan.Set(time.Now().Unix())
		for corpus := range domain.ValidCorpora {
			if ctx.Err() != nil {
				return
			}
			count, errs := processCorpus(ctx, source, corpus, pipeline, processed, log)
			if count > 0 || errs > 0 {
				log.Info("corpus scan done", "corpus", corpus, "ingested", count, "errors", errs)
			}
			if errs == 0 {
				saveState(*stateFile, processed)
			}
		}
	}

	scan()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			scan()
		}
	}
}

// processCorpus runs every unprocessed document of a corpus through the
// pipeline. Documents that fail stay unmarked and retry on the next scan.
func processCorpus(ctx context.Context, source *docsource.Source, corpus domain.Corpus, pipeline fn.Stage[domain.Document, string], processed map[string]bool, log *slog.Logger) (int, int) {
	ids, err := source.List(corpus)
	if err != nil {
		mErrorsTotal("scan").Inc()
		log.Error("list corpus failed", "corpus", corpus, "error", err)
		return 0, 1
	}

	count, errs := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		key := fmt.Sprintf("%s/%s", corpus, id)
		if processed[key] {
			continue
		}

		doc, err := source.Load(corpus, id)
		if err != nil {
			mErrorsTotal("load").Inc()
			log.Error("load failed", "doc", key, "error", err)
			errs++
			continue
		}

		mActiveDocs.Inc()
		start := time.Now()
		result := pipeline(ctx, doc)
		mPipelineDur.Since(start)
		mActiveDocs.Dec()

		if result.IsErr() {
			_, perr := result.Unwrap()
			mErrorsTotal("pipeline").Inc()
			log.Error("pipeline error", "doc", key, "error", perr)
			errs++
			continue
		}
		mDocsTotal(string(corpus)).Inc()
		processed[key] = true
		count++
	}
	return count, errs
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
