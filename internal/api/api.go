// Package api exposes rag_query, health, and stats over HTTP, gating
// admission with rate limiting, a concurrency semaphore, and a resource
// overload check before handing the request to internal/service (§4.12).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"ticketrag/internal/apperr"
	"ticketrag/internal/ctxbuild"
	"ticketrag/internal/govern"
	"ticketrag/internal/obs"
	"ticketrag/internal/ratelimit"
	"ticketrag/internal/service"
)

const (
	maxQueryChars  = 500
	defaultTopK    = 10
	minTopK        = 1
	maxTopK        = 50
	llmCallTimeout = 30 * time.Second
)

// Availability reports one dependency's liveness for /health.
type Availability interface {
	Ping(ctx context.Context) error
}

// Server wires the governed request pipeline in front of *service.Service.
type Server struct {
	Service  *service.Service
	Limiter  *ratelimit.Limiter
	Gate     *govern.Gate
	Checker  *govern.ResourceChecker
	Started  time.Time

	LLM, VectorStore, Graph Availability

	mux *http.ServeMux
}

// NewServer constructs a Server with the governance components set to their
// defaults (rate limit 10/60s, concurrency 5, thresholds 80/80); callers may
// replace them before serving.
func NewServer(svc *service.Service) *Server {
	s := &Server{
		Service: svc,
		Limiter: ratelimit.New(ratelimit.DefaultRequests, ratelimit.DefaultWindow),
		Gate:    govern.NewGate(govern.DefaultConcurrency),
		Checker: govern.NewResourceChecker(0, 0),
		Started: time.Now(),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /rag_query", s.handleRagQuery)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// ragQueryRequest mirrors §6.1's request body.
type ragQueryRequest struct {
	Query                string `json:"query"`
	TopK                 int    `json:"top_k"`
	IncludeTickets       *bool  `json:"include_tickets"`
	IncludeKB            *bool  `json:"include_kb"`
	IncludeCI            *bool  `json:"include_ci"`
	UseVector            *bool  `json:"use_vector"`
	UseBM25              *bool  `json:"use_bm25"`
	UseGraph             *bool  `json:"use_graph"`
	IncludeContext       bool   `json:"include_context"`
	IncludeRelationships bool   `json:"include_relationships"`
	IncludeSources       bool   `json:"include_sources"`
}

type sourceView struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Category     *string `json:"category"`
	TicketNumber *string `json:"ticket_number"`
	Score        float64 `json:"score"`
	SourceType   string  `json:"source_type"`
}

type relationshipView struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Relationship string  `json:"relationship"`
	Confidence   float64 `json:"confidence"`
}

// ragQueryResponse mirrors §6.1's response body. Validation and rate-limit
// rejections are synchronous HTTP errors (422/429/503); only generation
// failure is reported in-band as success=false (spec §7 policy).
type ragQueryResponse struct {
	Success         bool               `json:"success"`
	AIAnswer        string             `json:"ai_answer"`
	ConfidenceScore float64            `json:"confidence_score"`
	Sources         []sourceView       `json:"sources,omitempty"`
	Relationships   []relationshipView `json:"relationships,omitempty"`
	Uncertainties   []string           `json:"uncertainties,omitempty"`
	ResponseTimeSec float64            `json:"response_time"`
	Timestamp       string             `json:"timestamp"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// collectionsFrom maps include_tickets/include_kb/include_ci onto the three
// vector-store collections of §3.1, defaulting to tickets+KB per §6.1.
func collectionsFrom(body ragQueryRequest) []string {
	var out []string
	if boolOr(body.IncludeTickets, true) {
		out = append(out, "ticket")
	}
	if boolOr(body.IncludeKB, true) {
		out = append(out, "kb_article")
	}
	if boolOr(body.IncludeCI, false) {
		out = append(out, "ci_item")
	}
	return out
}

func (s *Server) handleRagQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var body ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusUnprocessableEntity, apperr.New(apperr.KindValidation, "malformed request body"))
		return
	}
	if body.TopK == 0 {
		body.TopK = defaultTopK
	}
	if err := validate(body); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	clientKey := clientKeyFrom(r)
	if !s.Limiter.Allow(clientKey) {
		respondError(w, http.StatusTooManyRequests, apperr.New(apperr.KindRateLimited, "rate limit exceeded"))
		return
	}

	if overloaded, _, err := s.Checker.Check(ctx); err == nil && overloaded {
		respondError(w, http.StatusServiceUnavailable, apperr.New(apperr.KindOverloaded, "system overloaded"))
		return
	}

	if !s.Gate.TryAcquire() {
		respondError(w, http.StatusServiceUnavailable, apperr.New(apperr.KindOverloaded, "concurrency limit reached"))
		return
	}
	defer s.Gate.Release()

	genCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
	defer cancel()

	resp, err := s.Service.Query(genCtx, service.Request{
		ClientKey:            clientKey,
		Query:                body.Query,
		TopK:                 body.TopK,
		Collections:          collectionsFrom(body),
		UseVector:            boolOr(body.UseVector, true),
		UseBM25:              boolOr(body.UseBM25, true),
		UseGraph:             boolOr(body.UseGraph, true),
		IncludeContext:       body.IncludeContext,
		IncludeRelationships: true,
		IncludeSources:       true,
	})
	if err != nil {
		logger := obs.LoggerWithTrace(ctx)
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			logger.Error().Err(err).Msg("rag_query generation failed")
			out := ragQueryResponse{
				Success:         false,
				ConfidenceScore: 0,
				Uncertainties:   []string{generationFailureMessage(err)},
				ResponseTimeSec: time.Since(start).Seconds(),
				Timestamp:       time.Now().UTC().Format(time.RFC3339),
			}
			respondJSON(w, http.StatusOK, out)
			return
		}
		logger.Error().Err(err).Msg("rag_query failed")
		respondError(w, statusFromKind(apperr.KindOf(err)), apperr.New(apperr.KindOf(err), "request could not be completed"))
		return
	}

	out := ragQueryResponse{
		Success:         true,
		AIAnswer:        resp.Answer,
		ConfidenceScore: resp.ConfidenceScore,
		Sources:         toSourceViews(resp.Sources),
		Relationships:   toRelationshipViews(resp.Relationships),
		Uncertainties:   resp.Uncertainties,
		ResponseTimeSec: time.Since(start).Seconds(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	respondJSON(w, http.StatusOK, out)
}

// statusFromKind maps an upstream apperr.Kind to the synchronous HTTP status
// of §6.1's error-code table, following the teacher's statusFromError switch.
func statusFromKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindUpstreamUnavailable, apperr.KindExtraction, apperr.KindGraphInvariant:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// generationFailureMessage mirrors §7's rule that the LLM is the only
// component allowed to surface failure as a best-effort user-facing message.
func generationFailureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "De AI-service reageerde niet op tijd, probeer het later opnieuw."
	}
	return "Er kon geen antwoord worden gegenereerd, probeer het later opnieuw."
}

func validate(body ragQueryRequest) error {
	if n := utf8.RuneCountInString(body.Query); n == 0 || n > maxQueryChars {
		return apperr.New(apperr.KindValidation, "query must be 1..500 characters")
	}
	if body.TopK < minTopK || body.TopK > maxTopK {
		return apperr.New(apperr.KindValidation, "top_k must be between 1 and 50")
	}
	return nil
}

func clientKeyFrom(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func toSourceViews(sources []ctxbuild.Source) []sourceView {
	out := make([]sourceView, 0, len(sources))
	for _, s := range sources {
		v := sourceView{ID: s.ID, Title: s.Title, Content: s.Content, Score: s.Score, SourceType: s.Collection}
		if s.Category != "" {
			cat := s.Category
			v.Category = &cat
		}
		if s.TicketNumber != "" {
			tn := s.TicketNumber
			v.TicketNumber = &tn
		}
		out = append(out, v)
	}
	return out
}

func toRelationshipViews(rels []ctxbuild.Relationship) []relationshipView {
	out := make([]relationshipView, 0, len(rels))
	for _, r := range rels {
		out = append(out, relationshipView{Source: r.SourceNode, Target: r.TargetNode, Relationship: r.EdgeType, Confidence: r.Confidence})
	}
	return out
}

type healthResponse struct {
	Status      string  `json:"status"`
	LLM         bool    `json:"llm_available"`
	VectorStore bool    `json:"vector_store_available"`
	Graph       bool    `json:"graph_available"`
	UptimeSec   float64 `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	llmOK := ping(ctx, s.LLM)
	vecOK := ping(ctx, s.VectorStore)
	graphOK := ping(ctx, s.Graph)

	status := "healthy"
	switch {
	case !llmOK && !vecOK:
		status = "unhealthy"
	case !llmOK || !vecOK || !graphOK:
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, healthResponse{
		Status: status, LLM: llmOK, VectorStore: vecOK, Graph: graphOK,
		UptimeSec: time.Since(s.Started).Seconds(),
	})
}

func ping(ctx context.Context, a Availability) bool {
	if a == nil {
		return true
	}
	return a.Ping(ctx) == nil
}

type statsResponse struct {
	TotalQueries          int64   `json:"total_queries"`
	SuccessfulQueries      int64   `json:"successful_queries"`
	FailedQueries          int64   `json:"failed_queries"`
	CachedQueries          int64   `json:"cached_queries"`
	AverageResponseMillis  float64 `json:"average_response_time_ms"`
	CPUPercent             float64 `json:"cpu_percent"`
	MemPercent             float64 `json:"mem_percent"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := service.StatsFromMetrics(s.Service.Metrics)
	_, sample, _ := s.Checker.Check(r.Context())
	respondJSON(w, http.StatusOK, statsResponse{
		TotalQueries:          st.Total,
		SuccessfulQueries:     st.Successes,
		FailedQueries:         st.Failures,
		CachedQueries:         st.Cached,
		AverageResponseMillis: st.AverageResponseMillis,
		CPUPercent:            sample.CPUPercent,
		MemPercent:            sample.MemPercent,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
