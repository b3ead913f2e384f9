// Package config loads the service's YAML configuration, applying the same
// sensible-defaults-plus-diagnostics pattern as the reference stack's loader.
package config

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes the relational source of record (§6.2).
type SourceConfig struct {
	DSN string `yaml:"dsn"`
}

// VectorConfig describes the vector-store backend (§3.3, §4.5).
type VectorConfig struct {
	Backend    string `yaml:"backend"` // memory|qdrant
	DSN        string `yaml:"dsn"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"` // cosine|euclid|dot|manhattan
}

// GraphConfig describes the knowledge-graph persistence backend (§4.4, §6.2).
type GraphConfig struct {
	Backend         string  `yaml:"backend"` // memory|postgres
	DSN             string  `yaml:"dsn"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
}

// EmbeddingConfig configures the embedding model used at ingest and query time (§4.1, §4.5).
type EmbeddingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig configures the generation backend (§4.11). APIKey is read from
// the OPENAI_API_KEY/ANTHROPIC_API_KEY environment variables at startup, not
// from this struct, so it never round-trips through a config file.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai|anthropic
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	TopK        int     `yaml:"top_k"`
	TimeoutSecs int     `yaml:"timeout_seconds"`
}

// BM25Config configures the sparse retriever's scoring constants (§4.6).
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// HybridWeights configures the hybrid retriever's per-method weights (§4.8).
type HybridWeights struct {
	Vector float64 `yaml:"vector"`
	BM25   float64 `yaml:"bm25"`
	Graph  float64 `yaml:"graph"`
}

// RerankWeights configures the reranker's five factor weights (§4.9).
type RerankWeights struct {
	Similarity float64 `yaml:"similarity"`
	BM25       float64 `yaml:"bm25"`
	Centrality float64 `yaml:"centrality"`
	Recency    float64 `yaml:"recency"`
	Feedback   float64 `yaml:"feedback"`
}

// GovernanceConfig configures rate limiting, concurrency, caching and resource checks (§4.12, §5).
type GovernanceConfig struct {
	RateLimitRequests int     `yaml:"rate_limit_requests"`
	RateLimitWindowS  int     `yaml:"rate_limit_window_seconds"`
	ConcurrencyLimit  int     `yaml:"concurrency_limit"`
	CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
	CacheSize         int     `yaml:"cache_size"`
	CPUThresholdPct   float64 `yaml:"cpu_threshold_pct"`
	MemThresholdPct   float64 `yaml:"mem_threshold_pct"`
}

// Config is the top-level service configuration.
type Config struct {
	LogDir   string           `yaml:"log_dir"`
	LogLevel string           `yaml:"log_level"`
	HTTPAddr string           `yaml:"http_addr"`

	Source    SourceConfig    `yaml:"source"`
	Vector    VectorConfig    `yaml:"vector"`
	Graph     GraphConfig     `yaml:"graph"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	BM25      BM25Config      `yaml:"bm25"`
	Hybrid    HybridWeights   `yaml:"hybrid_weights"`
	Rerank    RerankWeights   `yaml:"rerank_weights"`
	Governance GovernanceConfig `yaml:"governance"`

	MaxContextLength int `yaml:"max_context_length"`
}

// Load reads filename and applies defaults for anything unset, printing a
// short startup diagnostic for each default applied.
func Load(filename string) (*Config, error) {
	cfg := &Config{}
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %q: %w", filename, err)
			}
			pterm.Warning.Printfln("config file %q not found, using defaults", filename)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", filename, err)
		}
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	def := func(label string, cond bool, apply func()) {
		if cond {
			apply()
			pterm.Info.Printfln("config: %s defaulted", label)
		}
	}
	def("log_dir", c.LogDir == "", func() { c.LogDir = "logs" })
	def("log_level", c.LogLevel == "", func() { c.LogLevel = "info" })
	def("http_addr", c.HTTPAddr == "", func() { c.HTTPAddr = ":8080" })

	def("vector.backend", c.Vector.Backend == "", func() { c.Vector.Backend = "memory" })
	def("vector.dimensions", c.Vector.Dimensions == 0, func() { c.Vector.Dimensions = 768 })
	def("vector.metric", c.Vector.Metric == "", func() { c.Vector.Metric = "cosine" })

	def("graph.backend", c.Graph.Backend == "", func() { c.Graph.Backend = "memory" })
	def("graph.confidence_floor", c.Graph.ConfidenceFloor == 0, func() { c.Graph.ConfidenceFloor = 0.5 })

	def("embedding.batch_size", c.Embedding.BatchSize == 0, func() { c.Embedding.BatchSize = 100 })
	def("embedding.model", c.Embedding.Model == "", func() { c.Embedding.Model = "text-embedding-3-small" })

	def("llm.provider", c.LLM.Provider == "", func() { c.LLM.Provider = "openai" })
	def("llm.temperature", c.LLM.Temperature == 0, func() { c.LLM.Temperature = 0.7 })
	def("llm.top_p", c.LLM.TopP == 0, func() { c.LLM.TopP = 0.9 })
	def("llm.top_k", c.LLM.TopK == 0, func() { c.LLM.TopK = 40 })
	def("llm.timeout_seconds", c.LLM.TimeoutSecs == 0, func() { c.LLM.TimeoutSecs = 30 })

	def("bm25.k1", c.BM25.K1 == 0, func() { c.BM25.K1 = 1.5 })
	def("bm25.b", c.BM25.B == 0, func() { c.BM25.B = 0.75 })

	def("hybrid_weights", c.Hybrid == HybridWeights{}, func() { c.Hybrid = HybridWeights{Vector: 0.5, BM25: 0.3, Graph: 0.2} })
	def("rerank_weights", c.Rerank == RerankWeights{}, func() {
		c.Rerank = RerankWeights{Similarity: 0.40, BM25: 0.20, Centrality: 0.15, Recency: 0.15, Feedback: 0.10}
	})

	def("governance.rate_limit_requests", c.Governance.RateLimitRequests == 0, func() { c.Governance.RateLimitRequests = 10 })
	def("governance.rate_limit_window_seconds", c.Governance.RateLimitWindowS == 0, func() { c.Governance.RateLimitWindowS = 60 })
	def("governance.concurrency_limit", c.Governance.ConcurrencyLimit == 0, func() { c.Governance.ConcurrencyLimit = 5 })
	def("governance.cache_ttl_seconds", c.Governance.CacheTTLSeconds == 0, func() { c.Governance.CacheTTLSeconds = 3600 })
	def("governance.cache_size", c.Governance.CacheSize == 0, func() { c.Governance.CacheSize = 100 })
	def("governance.cpu_threshold_pct", c.Governance.CPUThresholdPct == 0, func() { c.Governance.CPUThresholdPct = 80 })
	def("governance.mem_threshold_pct", c.Governance.MemThresholdPct == 0, func() { c.Governance.MemThresholdPct = 80 })

	def("max_context_length", c.MaxContextLength == 0, func() { c.MaxContextLength = 4000 })
}
