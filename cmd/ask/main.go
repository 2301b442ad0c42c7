// Command ask answers a single question about an indexed bill or executive
// order from the command line.
//
// Usage:
//
//	ask -corpus bills -doc hr1234 "What does section 3 authorize?"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/qa"
	"github.com/LegisQA/legisqa-mvp/engine/retrieve"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/pkg/ollama"
	"github.com/LegisQA/legisqa-mvp/pkg/openai"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	var (
		corpus  = flag.String("corpus", "bills", "corpus to query (bills | executive_orders)")
		docID   = flag.String("doc", "", "restrict to one document ID (empty = whole corpus)")
		topK    = flag.Int("k", 0, "excerpts to retrieve (0 = scope default)")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: ask [-corpus c] [-doc id] [-k n] <question>")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := semantic.New(envOr("QDRANT_URL", "localhost:6334"))
	if err != nil {
		fail("qdrant connect: %v", err)
	}
	defer store.Close()

	embedder := ollama.NewEmbedClient(envOr("OLLAMA_URL", "http://localhost:11434"), envOr("EMBED_MODEL", "nomic-embed-text"))
	chatClient, err := openai.NewClient(openai.Config{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  envOr("OPENAI_MODEL", "gpt-4"),
	})
	if err != nil {
		fail("generation backend: %v", err)
	}

	retriever := retrieve.New(embedder, store, logger)
	svc := qa.New(retriever, &generator{chatClient}, nil, qa.DefaultOptions(), logger)

	answer, err := svc.Ask(ctx, domain.Corpus(*corpus), *docID, question, *topK)
	if err != nil {
		fail("ask: %v", err)
	}

	if len(answer.Excerpts) == 0 {
		fmt.Println("No indexed content was found for this scope. Ingest the document first.")
		return
	}

	fmt.Println(answer.Text)
	fmt.Println()
	for i, e := range answer.Excerpts {
		header := fmt.Sprintf("--- Excerpt %d (relevance: %.2f", i+1, e.Score)
		if e.DocID != "" {
			header += ", doc: " + e.DocID
		}
		fmt.Println(header + ") ---")
		fmt.Println(e.Text)
		fmt.Println()
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// generator adapts the OpenAI client to qa.Generator.
type generator struct {
	client *openai.Client
}

func (g *generator) Chat(ctx context.Context, system, user string) (*qa.Completion, error) {
	c, err := g.client.Chat(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return &qa.Completion{Text: c.Text, TokensUsed: c.TokensUsed, Model: c.Model}, nil
}
