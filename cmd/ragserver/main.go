// Command ragserver starts the HTTP server exposing rag_query, health, and
// stats over the configured vector/graph/source backends.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ticketrag/internal/api"
	"ticketrag/internal/bm25"
	"ticketrag/internal/cache"
	"ticketrag/internal/config"
	"ticketrag/internal/embed"
	"ticketrag/internal/generate"
	"ticketrag/internal/govern"
	"ticketrag/internal/graph"
	"ticketrag/internal/obs"
	"ticketrag/internal/ratelimit"
	"ticketrag/internal/rerank"
	"ticketrag/internal/retrieve"
	"ticketrag/internal/service"
	"ticketrag/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	obs.InitLogger(cfg.LogDir, cfg.LogLevel)

	ctx := context.Background()
	mgr, err := store.NewManager(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage backends")
	}
	defer mgr.Close()

	emb := embed.NewHTTPClient(cfg.Embedding, cfg.Vector.Dimensions)
	g := graph.New(mgr.Graph)
	if err := g.LoadFromDB(ctx, nil, cfg.Graph.ConfidenceFloor); err != nil {
		log.Fatal().Err(err).Msg("failed to load knowledge graph")
	}

	vectorByCollection := map[string]store.VectorStore{
		string(store.KindTicket):    mgr.Vector[store.KindTicket],
		string(store.KindKBArticle): mgr.Vector[store.KindKBArticle],
		string(store.KindCIItem):    mgr.Vector[store.KindCIItem],
	}
	bm25Mgr := bm25.NewManager(vectorByCollection, cfg.BM25.K1, cfg.BM25.B)
	if err := bm25Mgr.RefreshAll(ctx); err != nil {
		log.Warn().Err(err).Msg("initial bm25 refresh failed, starting with empty indices")
	}

	hybrid := &retrieve.Hybrid{
		Dense:   &retrieve.Dense{Embedder: emb, Stores: vectorByCollection},
		Sparse:  &retrieve.Sparse{Manager: bm25Mgr, Payload: bm25Mgr.Payload},
		GraphR:  &retrieve.GraphRetriever{Graph: g},
		Weights: retrieve.Weights{Vector: cfg.Hybrid.Vector, BM25: cfg.Hybrid.BM25, Graph: cfg.Hybrid.Graph},
	}

	reranker := &rerank.Reranker{Weights: rerank.Weights{
		Similarity: cfg.Rerank.Similarity, BM25: cfg.Rerank.BM25, Centrality: cfg.Rerank.Centrality,
		Recency: cfg.Rerank.Recency, Feedback: cfg.Rerank.Feedback,
	}.Normalized(), Now: time.Now}

	gen := newGenerator(cfg)

	var resultCache cache.Cache = cache.NewMemory(cfg.Governance.CacheSize)

	svc := service.New(hybrid, reranker, g, gen, resultCache, generate.Params{
		Temperature: cfg.LLM.Temperature, TopP: cfg.LLM.TopP, TopK: cfg.LLM.TopK,
		Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second, Model: cfg.LLM.Model,
	}, cfg.MaxContextLength)
	svc.Metrics = obs.NewInMemoryMetrics()

	srv := api.NewServer(svc)
	srv.Limiter = ratelimit.New(cfg.Governance.RateLimitRequests, time.Duration(cfg.Governance.RateLimitWindowS)*time.Second)
	srv.Gate = govern.NewGate(cfg.Governance.ConcurrencyLimit)
	srv.Checker = govern.NewResourceChecker(cfg.Governance.CPUThresholdPct, cfg.Governance.MemThresholdPct)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("ragserver listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, srv); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newGenerator(cfg *config.Config) generate.Generator {
	switch cfg.LLM.Provider {
	case "anthropic":
		return generate.NewAnthropic(os.Getenv("ANTHROPIC_API_KEY"))
	default:
		return generate.NewOpenAI(os.Getenv("OPENAI_API_KEY"), cfg.LLM.Endpoint)
	}
}
