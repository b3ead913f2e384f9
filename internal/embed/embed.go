// Package embed wraps the embedding model (an external collaborator, §1)
// behind a small interface, plus a deterministic implementation used by
// tests and the validation harness.
package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"time"

	"ticketrag/internal/config"
)

// Embedder converts text to embedding vectors (§4.1, §4.5).
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

// httpEmbedder calls a configured HTTP embedding endpoint.
type httpEmbedder struct {
	cfg    config.EmbeddingConfig
	dim    int
	client *http.Client
}

// NewHTTPClient constructs an Embedder backed by an HTTP embedding service.
func NewHTTPClient(cfg config.EmbeddingConfig, dim int) Embedder {
	return &httpEmbedder{cfg: cfg, dim: dim, client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *httpEmbedder) Name() string   { return e.cfg.Model }
func (e *httpEmbedder) Dimension() int { return e.dim }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding endpoint returned status %d", resp.StatusCode)
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// deterministicEmbedder hashes byte trigrams into a fixed-size vector. It is
// useful for tests and the validation harness (§12), where reproducibility
// matters more than semantic quality.
type deterministicEmbedder struct {
	dim  int
	name string
}

// NewDeterministic constructs a reproducible Embedder, L2-normalized.
func NewDeterministic(dim int) Embedder {
	if dim <= 0 {
		dim = 64
	}
	return &deterministicEmbedder{dim: dim, name: "deterministic"}
}

func (d *deterministicEmbedder) Name() string   { return d.name }
func (d *deterministicEmbedder) Dimension() int { return d.dim }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(strings.ToLower(s))
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		addGram(b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(b[i:i+3], v)
		}
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(sum))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

func addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
