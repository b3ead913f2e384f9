// Package service orchestrates one rag_query end to end: hybrid retrieval,
// reranking, context assembly, generation, and the result cache (§4.12).
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticketrag/internal/cache"
	"ticketrag/internal/ctxbuild"
	"ticketrag/internal/generate"
	"ticketrag/internal/graph"
	"ticketrag/internal/obs"
	"ticketrag/internal/rerank"
	"ticketrag/internal/retrieve"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface{ Now() time.Time }

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Request is one rag_query call (§4.12). Collections lists which of the
// three document kinds to search (ticket/kb_article/ci_item per §3.1),
// mirroring the request body's include_tickets/include_kb/include_ci flags.
type Request struct {
	ClientKey            string
	Query                string
	TopK                 int
	Collections          []string
	UseVector            bool
	UseBM25              bool
	UseGraph             bool
	MetadataFilter       map[string]string
	IncludeContext       bool
	IncludeRelationships bool
	IncludeSources       bool
}

// Response is the assembled answer and provenance.
type Response struct {
	Answer          string                  `json:"answer"`
	ConfidenceScore float64                 `json:"confidence_score"`
	Uncertainties   []string                `json:"uncertainties,omitempty"`
	Context         string                  `json:"context,omitempty"`
	Sources         []ctxbuild.Source       `json:"sources,omitempty"`
	Relationships   []ctxbuild.Relationship `json:"relationships,omitempty"`
	Cached          bool                    `json:"cached"`
}

const (
	metricTotal     = "rag_query_total"
	metricSuccess   = "rag_query_success"
	metricFailure   = "rag_query_failure"
	metricCached    = "rag_query_cached"
	metricLatencyMs = "rag_query_latency_ms"
)

// GenerationError marks a failure in the generation step specifically. Per
// §7's policy, the LLM is the only component whose failure may surface as a
// best-effort in-band answer (success=false) rather than a synchronous HTTP
// error; internal/api distinguishes the two by unwrapping for this type
// rather than by apperr.Kind alone, since retrieval and generation failures
// can share the same Kind (e.g. both upstream_unavailable).
type GenerationError struct{ err error }

func (e *GenerationError) Error() string { return e.err.Error() }
func (e *GenerationError) Unwrap() error { return e.err }

// Stats is a read-only snapshot of the counters behind /stats (§4.12 step 7).
type Stats struct {
	Total                  int64
	Successes              int64
	Failures               int64
	Cached                 int64
	AverageResponseMillis  float64
}

// Service wires the pipeline components; Cache and Graph may be nil.
type Service struct {
	Hybrid    *retrieve.Hybrid
	Reranker  *rerank.Reranker
	Graph     *graph.Graph
	Generator generate.Generator
	Cache     cache.Cache
	Params    generate.Params

	MaxContextLength int

	Clock   Clock
	Metrics obs.Metrics
}

// New constructs a Service with sensible defaults for Clock and Metrics.
func New(hybrid *retrieve.Hybrid, reranker *rerank.Reranker, g *graph.Graph, gen generate.Generator, c cache.Cache, params generate.Params, maxContextLength int) *Service {
	return &Service{
		Hybrid: hybrid, Reranker: reranker, Graph: g, Generator: gen, Cache: c, Params: params,
		MaxContextLength: maxContextLength, Clock: SystemClock{}, Metrics: obs.NoopMetrics{},
	}
}

// Query runs §4.12 steps 4 and 6-8: cache lookup, retrieval/rerank/generate,
// and the result cache write-back. Validation, rate limiting, and resource
// admission checks happen upstream, in internal/api, before Query is called.
func (s *Service) Query(ctx context.Context, req Request) (Response, error) {
	start := s.Clock.Now()
	s.Metrics.IncCounter(metricTotal, nil)
	defer func() {
		s.Metrics.ObserveHistogram(metricLatencyMs, float64(s.Clock.Now().Sub(start).Milliseconds()), nil)
	}()

	cacheKey := cache.Key(strings.Join(req.Collections, ",")+"|"+req.Query, req.TopK, req.IncludeContext, req.IncludeRelationships, req.IncludeSources)
	if s.Cache != nil {
		if raw, ok, err := s.Cache.Get(ctx, cacheKey); err == nil && ok {
			var resp Response
			if err := cache.Unmarshal(raw, &resp); err == nil {
				resp.Cached = true
				s.Metrics.IncCounter(metricCached, nil)
				s.Metrics.IncCounter(metricSuccess, nil)
				return resp, nil
			}
		}
	}

	resp, err := s.run(ctx, req)
	if err != nil {
		s.Metrics.IncCounter(metricFailure, nil)
		return Response{}, err
	}
	s.Metrics.IncCounter(metricSuccess, nil)

	if s.Cache != nil {
		if raw, err := cache.Marshal(resp); err == nil {
			_ = s.Cache.Set(ctx, cacheKey, raw, cache.DefaultTTL)
		}
	}
	return resp, nil
}

func (s *Service) run(ctx context.Context, req Request) (Response, error) {
	logger := obs.LoggerWithTrace(ctx)

	collections := req.Collections
	if len(collections) == 0 {
		collections = []string{"ticket"}
	}
	var hits []retrieve.Result
	for _, collection := range collections {
		collHits, err := s.Hybrid.Search(ctx, req.Query, collection, req.TopK, retrieve.Options{
			UseVector: req.UseVector, UseBM25: req.UseBM25, UseGraph: req.UseGraph, Filter: req.MetadataFilter,
		})
		if err != nil {
			return Response{}, fmt.Errorf("service: hybrid search %q: %w", collection, err)
		}
		hits = append(hits, collHits...)
	}

	ranked := s.Reranker.Rerank(hits, req.TopK)

	contextText, sources, relationships := ctxbuild.Build(ranked, s.Graph, s.MaxContextLength)

	messages := generate.BuildMessages(req.Query, contextText, relationships)
	raw, err := s.Generator.Generate(ctx, messages, s.Params)
	if err != nil {
		logger.Warn().Err(err).Msg("generation failed")
		return Response{}, &GenerationError{err: fmt.Errorf("service: generate: %w", err)}
	}
	answer := generate.PostProcess(raw, sources)

	resp := Response{
		Answer:          answer.Text,
		ConfidenceScore: answer.ConfidenceScore,
		Uncertainties:   answer.Uncertainties,
	}
	if req.IncludeContext {
		resp.Context = contextText
	}
	if req.IncludeSources {
		resp.Sources = sources
	}
	if req.IncludeRelationships {
		resp.Relationships = relationships
	}
	return resp, nil
}

// StatsFromMetrics reads the counters and histogram average back out of an
// *obs.InMemoryMetrics for /stats, when that concrete implementation is in
// use; other Metrics implementations report zero values.
func StatsFromMetrics(m obs.Metrics) Stats {
	im, ok := m.(*obs.InMemoryMetrics)
	if !ok {
		return Stats{}
	}
	return Stats{
		Total:                 im.Counter(metricTotal),
		Successes:             im.Counter(metricSuccess),
		Failures:              im.Counter(metricFailure),
		Cached:                im.Counter(metricCached),
		AverageResponseMillis: im.Average(metricLatencyMs),
	}
}
