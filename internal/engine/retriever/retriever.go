// Package retriever answers knowledge-base intents with semantic
// vector search over a pre-built passage index.
package retriever

import (
	"context"

	"astrogeo/internal/common/logger"
	"astrogeo/internal/common/metrics"
	"astrogeo/internal/engine/embedding"
)

// Fragment is one raw row from a vector store. Distance is cosine
// distance, lower is closer.
type Fragment struct {
	DocID    string
	Content  string
	Distance float64
}

// ScoredFragment is a fragment that cleared the relevance floor.
// Score is 1 - distance.
type ScoredFragment struct {
	DocID   string  `json:"doc_id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// VectorStore runs nearest-neighbor queries against an index.
type VectorStore interface {
	Query(ctx context.Context, queryEmbedding []float32, k int) ([]Fragment, error)
	Close() error
}

// Retriever embeds queries and searches the vector store. Search never
// returns an error: any failure degrades to an empty result so the
// aggregator can fall back to static knowledge.
type Retriever struct {
	store    VectorStore
	embedder embedding.Engine
	floor    float64
	defaultK int
	log      logger.Logger

	disabledReason string
}

// New builds a working retriever. Fragments scoring at or below floor
// are discarded. defaultK bounds searches that pass k <= 0.
func New(store VectorStore, embedder embedding.Engine, floor float64, defaultK int, log logger.Logger) *Retriever {
	if defaultK <= 0 {
		defaultK = 3
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		floor:    floor,
		defaultK: defaultK,
		log:      log,
	}
}

// NewDisabled builds a retriever that always returns empty results.
// Used when the index or embedder failed at startup; the failure is
// logged once there instead of on every query.
func NewDisabled(reason string, log logger.Logger) *Retriever {
	return &Retriever{
		disabledReason: reason,
		log:            log,
	}
}

// Available reports whether the retriever has a working index behind it.
func (r *Retriever) Available() bool {
	return r.disabledReason == ""
}

// Search returns up to k fragments above the relevance floor, best
// first. An unavailable index, a failed embedding, or a failed store
// query all yield an empty slice.
func (r *Retriever) Search(ctx context.Context, query string, k int) []ScoredFragment {
	if k <= 0 {
		k = r.defaultK
	}

	if r.disabledReason != "" {
		r.log.Debug("retriever disabled, returning no fragments", map[string]interface{}{
			"reason": r.disabledReason,
		})
		metrics.RetrieverSearches.WithLabelValues("disabled").Inc()
		return nil
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.RetrieverSearches.WithLabelValues("error").Inc()
		return nil
	}

	fragments, err := r.store.Query(ctx, queryEmbedding, k)
	if err != nil {
		r.log.Warn("vector store query failed", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.RetrieverSearches.WithLabelValues("error").Inc()
		return nil
	}

	var scored []ScoredFragment
	for _, f := range fragments {
		score := 1.0 - f.Distance
		if score <= r.floor {
			continue
		}
		scored = append(scored, ScoredFragment{
			DocID:   f.DocID,
			Content: f.Content,
			Score:   score,
		})
	}

	if len(scored) == 0 {
		metrics.RetrieverSearches.WithLabelValues("empty").Inc()
	} else {
		metrics.RetrieverSearches.WithLabelValues("hit").Inc()
	}

	r.log.Debug("semantic search complete", map[string]interface{}{
		"candidates": len(fragments),
		"kept":       len(scored),
		"floor":      r.floor,
	})
	return scored
}

// Close releases the underlying store.
func (r *Retriever) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
