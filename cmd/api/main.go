// Package main implements the LegisQA API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LegisQA/legisqa-mvp/engine/domain"
	"github.com/LegisQA/legisqa-mvp/engine/qa"
	"github.com/LegisQA/legisqa-mvp/engine/retrieve"
	"github.com/LegisQA/legisqa-mvp/engine/semantic"
	"github.com/LegisQA/legisqa-mvp/engine/xref"
	"github.com/LegisQA/legisqa-mvp/pkg/fn"
	"github.com/LegisQA/legisqa-mvp/pkg/metrics"
	"github.com/LegisQA/legisqa-mvp/pkg/mid"
	"github.com/LegisQA/legisqa-mvp/pkg/ollama"
	"github.com/LegisQA/legisqa-mvp/pkg/openai"
	"github.com/LegisQA/legisqa-mvp/pkg/resilience"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	MetricsPort int
	QdrantURL   string
	OllamaURL   string
	EmbedModel  string
	OpenAIKey   string
	OpenAIModel string
	OpenAIBase  string
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	CORSOrigin  string
}

func loadConfig() Config {
	metricsPort, _ := strconv.Atoi(envOr("METRICS_PORT", "9090"))
	return Config{
		Port:        envOr("PORT", "8080"),
		MetricsPort: metricsPort,
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:  envOr("EMBED_MODEL", "nomic-embed-text"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: envOr("OPENAI_MODEL", "gpt-4"),
		OpenAIBase:  envOr("OPENAI_BASE_URL", ""),
		Neo4jURL:    envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:   envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("NEO4J_PASS", "password"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Embedding backend ---
	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)

	// --- Neo4j cross-reference graph (optional) ---
	var xrefs qa.Enricher
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		logger.Warn("neo4j unavailable, cross-reference context disabled", "err", err)
	} else {
		defer neo4jDriver.Close(ctx)
		xrefs = xref.New(neo4jDriver)
	}

	// --- Generation backend behind a circuit breaker ---
	chatClient, err := openai.NewClient(openai.Config{
		BaseURL: cfg.OpenAIBase,
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		return fmt.Errorf("generation backend: %w", err)
	}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{})
	generator := newBreakerGenerator(chatClient, breaker)

	// --- QA service ---
	retriever := retrieve.New(embedder, vectorStore, logger)
	qaSvc := qa.New(retriever, generator, xrefs, qa.DefaultOptions(), logger)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/ask", handleAsk(qaSvc, reg, logger))
	mux.HandleFunc("POST /api/search", handleSearch(retriever, reg, logger))
	mux.HandleFunc("GET /api/documents", handleDocuments(vectorStore, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.OTel("legisqa-api"),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Corpus     string `json:"corpus"`
	DocumentID string `json:"document_id,omitempty"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
}

// AskResponse is the JSON response for POST /api/ask.
type AskResponse struct {
	Answer   string           `json:"answer"`
	Excerpts []retrieve.Entry `json:"excerpts"`
	Model    string           `json:"model,omitempty"`
	Tokens   int32            `json:"tokens_used,omitempty"`
}

func handleAsk(svc *qa.Service, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		corpus := domain.Corpus(req.Corpus)
		start := time.Now()
		answer, err := svc.Ask(r.Context(), corpus, req.DocumentID, req.Question, req.TopK)
		reg.Histogram("legisqa_ask_duration_seconds", "QA request latency.", nil).Since(start)
		if err != nil {
			reg.Counter(metrics.WithLabels("legisqa_ask_total", "status", "error"), "Total QA requests.").Inc()
			writeDomainError(w, logger, err)
			return
		}
		reg.Counter(metrics.WithLabels("legisqa_ask_total", "status", "ok"), "Total QA requests.").Inc()

		resp := AskResponse{
			Answer:   answer.Text,
			Excerpts: answer.Excerpts,
			Model:    answer.Model,
			Tokens:   answer.TokensUsed,
		}
		if len(answer.Excerpts) == 0 {
			resp.Answer = "No indexed content was found for this scope. Ingest the document first."
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// SearchRequest is the JSON body for POST /api/search.
type SearchRequest struct {
	Corpus     string `json:"corpus"`
	DocumentID string `json:"document_id,omitempty"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
}

// SearchResponse is the JSON response for POST /api/search.
type SearchResponse struct {
	Results []retrieve.Entry `json:"results"`
}

func handleSearch(retriever *retrieve.Retriever, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		entries, err := retriever.Retrieve(r.Context(), retrieve.Query{
			Corpus:     domain.Corpus(req.Corpus),
			DocumentID: req.DocumentID,
			Text:       req.Query,
			TopK:       req.TopK,
		})
		if err != nil {
			reg.Counter(metrics.WithLabels("legisqa_search_total", "status", "error"), "Total search requests.").Inc()
			writeDomainError(w, logger, err)
			return
		}
		reg.Counter(metrics.WithLabels("legisqa_search_total", "status", "ok"), "Total search requests.").Inc()

		if entries == nil {
			entries = []retrieve.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{Results: entries})
	}
}

// DocumentsResponse is the JSON response for GET /api/documents.
type DocumentsResponse struct {
	Corpus    string   `json:"corpus"`
	Documents []string `json:"documents"`
}

func handleDocuments(store *semantic.VectorStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corpus := domain.Corpus(r.URL.Query().Get("corpus"))
		if err := domain.ValidateCorpus(corpus); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		ids, err := store.ListDocumentIDs(r.Context(), corpus)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DocumentsResponse{Corpus: string(corpus), Documents: ids})
	}
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		logger.Warn("generation backend unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, "generation backend temporarily unavailable")
	case domain.IsDependency(err):
		logger.Error("upstream dependency failed", "err", err)
		writeError(w, http.StatusBadGateway, "upstream dependency failed")
	default:
		logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- Adapters ---

// breakerGenerator adapts the OpenAI client to qa.Generator with circuit
// breaker protection.
type breakerGenerator struct {
	chat fn.Stage[prompt, *qa.Completion]
}

type prompt struct {
	system string
	user   string
}

func newBreakerGenerator(client *openai.Client, breaker *resilience.Breaker) *breakerGenerator {
	chat := resilience.BreakerStage(breaker, func(ctx context.Context, p prompt) fn.Result[*qa.Completion] {
		completion, err := client.Chat(ctx, p.system, p.user)
		if err != nil {
			return fn.Err[*qa.Completion](err)
		}
		return fn.Ok(&qa.Completion{
			Text:       completion.Text,
			TokensUsed: completion.TokensUsed,
			Model:      completion.Model,
		})
	})
	return &breakerGenerator{chat: chat}
}

func (g *breakerGenerator) Chat(ctx context.Context, system, user string) (*qa.Completion, error) {
	return g.chat(ctx, prompt{system: system, user: user}).Unwrap()
}
