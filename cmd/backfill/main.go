// Command backfill repairs drift between the passage index and the
// cross-reference graph. It removes graph entries for documents no longer in
// the index and reports sections that are referenced but never defined with
// a heading.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	neo4jURL := envOr("NEO4J_URL", "neo4j://localhost:7687")
	neo4jUser := envOr("NEO4J_USER", "neo4j")
	neo4jPass := envOr("NEO4J_PASS", "password")
	qdrantAddr := envOr("QDRANT_URL", "localhost:6334")
	dryRun := os.Getenv("DRY_RUN") != ""

	driver, err := neo4j.NewDriverWithContext(neo4jURL, neo4j.BasicAuth(neo4jUser, neo4jPass, ""))
	if err != nil {
		log.Fatalf("neo4j connect: %v", err)
	}
	defer driver.Close(ctx)

	store, err := semantic.New(qdrantAddr)
	if err != nil {
		log.Fatalf("qdrant connect: %v", err)
	}
	defer store.Close()

	xrefs := xref.New(driver)

	for corpus := range domain.ValidCorpora {
		indexed, err := store.ListDocumentIDs(ctx, corpus)
		if err != nil {
			log.Fatalf("list indexed documents (%s): %v", corpus, err)
		}
		inGraph, err := xrefs.DocumentIDs(ctx, corpus)
		if err != nil {
			log.Fatalf("list graph documents (%s): %v", corpus, err)
		}

		known := make(map[string]bool, len(indexed))
		for _, id := range indexed {
			known[id] = true
		}

		// Drop graph entries whose document left the index.
		removed := 0
		for _, id := range inGraph {
			if known[id] {
				continue
			}
			if dryRun {
				log.Printf("[dry-run] would remove stale graph document %s/%s", corpus, id)
				removed++
				continue
			}
			if err := xrefs.DeleteDocument(ctx, corpus, id); err != nil {
				log.Printf("remove %s/%s: %v", corpus, id, err)
				continue
			}
			removed++
		}

		// Report dangling references: sections only ever seen as targets.
		dangling, err := danglingSections(ctx, driver, corpus)
		if err != nil {
			log.Fatalf("query dangling sections (%s): %v", corpus, err)
		}

		log.Printf("corpus %s: %d indexed, %d in graph, %d stale removed, %d dangling sections",
			corpus, len(indexed), len(inGraph), removed, len(dangling))
		for _, d := range dangling {
			log.Printf("  dangling: %s", d)
		}
	}
}

// danglingSections returns "doc_id section N" entries for sections that are
// referenced but have no heading, meaning the source text never defined them.
func danglingSections(ctx context.Context, driver neo4j.DriverWithContext, corpus domain.Corpus) ([]string, error) {
	sess := driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.Run(ctx,
		`MATCH (:Section)-[:REFERS_TO]->(b:Section {corpus: $corpus})
		 WHERE b.heading IS NULL OR b.heading = ''
		 RETURN DISTINCT b.doc_id AS doc_id, b.number AS number`,
		map[string]any{"corpus": string(corpus)},
	)
	if err != nil {
		return nil, err
	}

	var out []string
	for result.Next(ctx) {
		rec := result.Record()
		docID, _ := rec.Get("doc_id")
		number, _ := rec.Get("number")
		out = append(out, fmt.Sprintf("%v section %v", docID, number))
	}
	sort.Strings(out)
	return out, result.Err()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
