// Command ragsync runs one ingestion pass: sync --since-hours N --limit M
// --incremental, per §6.3. Exit 0 on success, 1 on fatal error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ticketrag/internal/config"
	"ticketrag/internal/embed"
	"ticketrag/internal/extract"
	"ticketrag/internal/graph"
	"ticketrag/internal/ingest"
	"ticketrag/internal/obs"
	"ticketrag/internal/sourcedb"
	"ticketrag/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	sinceHours := flag.Int("since-hours", 0, "ingest rows updated in the last N hours")
	limit := flag.Int("limit", 0, "maximum rows per document kind (0 = unbounded)")
	incremental := flag.Bool("incremental", false, "equivalent to --since-hours=1")
	policy := flag.String("policy", "overwrite", "reingest policy: skip_if_unchanged|overwrite|new_version")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ragsync: load config: %v\n", err)
		return 1
	}
	obs.InitLogger(cfg.LogDir, cfg.LogLevel)

	ctx := context.Background()
	if cfg.Source.DSN == "" {
		log.Error().Msg("ragsync: source.dsn is not configured")
		return 1
	}
	src, err := connectSource(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("ragsync: connect source")
		return 1
	}
	defer src.Close()

	mgr, err := store.NewManager(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("ragsync: init storage backends")
		return 1
	}
	defer mgr.Close()

	g := graph.New(mgr.Graph)
	if err := g.LoadFromDB(ctx, nil, cfg.Graph.ConfidenceFloor); err != nil {
		log.Error().Err(err).Msg("ragsync: load knowledge graph")
		return 1
	}

	pipeline := &ingest.Pipeline{
		Source: src,
		Vector: map[string]store.VectorStore{
			string(store.KindTicket):    mgr.Vector[store.KindTicket],
			string(store.KindKBArticle): mgr.Vector[store.KindKBArticle],
			string(store.KindCIItem):    mgr.Vector[store.KindCIItem],
		},
		Graph:     g,
		Embedder:  embed.NewHTTPClient(cfg.Embedding, cfg.Vector.Dimensions),
		Extractor: extract.New(nil),
		Hashes:    map[string]string{},
	}

	opts := ingest.Options{SinceHours: *sinceHours, Limit: *limit, Policy: ingest.ReingestPolicy(*policy)}
	var stats ingest.Stats
	if *incremental {
		stats, err = pipeline.IncrementalSync(ctx)
	} else {
		stats, err = pipeline.Sync(ctx, opts)
	}
	if err != nil {
		log.Error().Err(err).Msg("ragsync: sync failed")
		return 1
	}

	log.Info().
		Int("tickets", stats.TicketsProcessed).
		Int("kb_articles", stats.KBProcessed).
		Int("ci_items", stats.CIProcessed).
		Int("chunks_upserted", stats.ChunksUpserted).
		Int("errors", stats.Errors).
		Msg("ragsync: sync complete")
	return 0
}

func connectSource(ctx context.Context, cfg *config.Config) (sourcedb.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.Source.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect source db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping source db: %w", err)
	}
	return sourcedb.NewPostgres(ctx, pool), nil
}
