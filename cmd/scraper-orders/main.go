// Command scraper-orders fetches executive orders from the Federal Register
// and either publishes them to NATS for ingestion or writes them into the
// local document tree.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/LegisQA/legisqa-mvp/cmd/scraper-orders/fedreg"
	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/ingest"
	"github.com/LegisQA/legisqa-mvp/pkg/natsutil"
)

func main() {
	natsURL := flag.String("nats", "", "NATS URL (if empty, write files to -out)")
	subject := flag.String("subject", ingest.IngestSubject, "NATS subject to publish to")
	outDir := flag.String("out", "/var/lib/legisqa/data", "document tree root for file output")
	since := flag.String("since", "", "only orders signed on or after this date (YYYY-MM-DD)")
	rps := flag.Float64("rps", 1, "max requests per second to the Federal Register")
	interval := flag.Duration("interval", 0, "polling interval (0 = one-shot)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := fedreg.NewClient(fedreg.Config{RateLimit: rate.Limit(*rps)})

	var nc *nats.Conn
	if *natsURL != "" {
		var err error
		nc, err = natsutil.Connect(*natsURL, "legisqa-scraper-orders")
		if err != nil {
			log.Fatalf("nats connect: %v", err)
		}
		defer nc.Close()
		log.Printf("publishing to NATS subject %s", *subject)
	} else {
		dir := filepath.Join(*outDir, string(domain.CorpusExecutiveOrders))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	run := func() error {
		summaries, err := client.ListOrders(ctx, *since)
		if err != nil {
			return err
		}
		log.Printf("found %d executive orders", len(summaries))

		for _, s := range summaries {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			path := filepath.Join(*outDir, string(domain.CorpusExecutiveOrders), s.DocumentNumber+".txt")
			if nc == nil {
				if _, err := os.Stat(path); err == nil {
					continue // already fetched
				}
			}

			order, err := client.FetchOrder(ctx, s)
			if err != nil {
				log.Printf("fetch %s: %v", s.DocumentNumber, err)
				continue
			}

			if nc != nil {
				doc := domain.Document{
					Corpus:    domain.CorpusExecutiveOrders,
					ID:        order.DocumentNumber,
					Title:     order.Title,
					Text:      order.Text,
					FetchedAt: order.FetchedAt,
				}
				if err := natsutil.Publish(ctx, nc, *subject, doc); err != nil {
					log.Printf("nats publish %s: %v", order.DocumentNumber, err)
				}
				continue
			}

			if err := os.WriteFile(path, []byte(order.Text), 0o644); err != nil {
				log.Printf("write %s: %v", path, err)
				continue
			}
			log.Printf("saved %s (%s)", order.DocumentNumber, order.Title)
		}
		return nil
	}

	if err := run(); err != nil {
		log.Fatalf("scrape: %v", err)
	}

	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		case <-ticker.C:
			if err := run(); err != nil {
				log.Printf("scrape error: %v", err)
			}
		}
	}
}
