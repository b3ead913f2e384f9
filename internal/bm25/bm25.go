// Package bm25 implements an in-memory BM25Okapi index, rebuilt per
// collection by scrolling a vector store's payloads (§3.3, §4.6).
package bm25

import (
	"math"
	"strings"
)

// Doc is one document admitted to the index.
type Doc struct {
	ID   string
	Text string
}

// Hit is a scored search result.
type Hit struct {
	ID    string
	Score float64
}

// Index is a BM25Okapi index over a fixed corpus of documents.
type Index struct {
	k1 float64
	b  float64

	ids        []string
	tokens     [][]string
	docLen     []int
	avgDocLen  float64
	df         map[string]int // document frequency per term
	termCounts []map[string]int
	idf        map[string]float64
}

// New builds an index over docs with the given k1/b parameters (§3.3,
// config.BM25Config). Skips blank documents.
func New(docs []Doc, k1, b float64) *Index {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b <= 0 {
		b = 0.75
	}
	idx := &Index{k1: k1, b: b, df: map[string]int{}, idf: map[string]float64{}}
	var totalLen int
	for _, d := range docs {
		toks := tokenize(d.Text)
		if len(toks) == 0 {
			continue
		}
		idx.ids = append(idx.ids, d.ID)
		idx.tokens = append(idx.tokens, toks)
		idx.docLen = append(idx.docLen, len(toks))
		totalLen += len(toks)
		counts := map[string]int{}
		for _, tok := range toks {
			counts[tok]++
		}
		idx.termCounts = append(idx.termCounts, counts)
		for term := range counts {
			idx.df[term]++
		}
	}
	n := len(idx.ids)
	if n > 0 {
		idx.avgDocLen = float64(totalLen) / float64(n)
	}
	for term, freq := range idx.df {
		idx.idf[term] = math.Log(1 + (float64(n)-float64(freq)+0.5)/(float64(freq)+0.5))
	}
	return idx
}

// Size returns the number of documents held in the index.
func (idx *Index) Size() int { return len(idx.ids) }

// Search scores the query against every document and returns hits with
// score > 0, descending (§4.6).
func (idx *Index) Search(query string, topK int) []Hit {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return nil
	}
	var hits []Hit
	for i := range idx.ids {
		score := idx.score(i, qTokens)
		if score > 0 {
			hits = append(hits, Hit{ID: idx.ids[i], Score: score})
		}
	}
	sortHitsDesc(hits)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func (idx *Index) score(docIdx int, qTokens []string) float64 {
	counts := idx.termCounts[docIdx]
	dl := float64(idx.docLen[docIdx])
	var score float64
	for _, term := range qTokens {
		tf, ok := counts[term]
		if !ok {
			continue
		}
		idfv := idx.idf[term]
		num := float64(tf) * (idx.k1 + 1)
		den := float64(tf) + idx.k1*(1-idx.b+idx.b*dl/maxFloat(idx.avgDocLen, 1e-9))
		score += idfv * num / den
	}
	return score
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func sortHitsDesc(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
