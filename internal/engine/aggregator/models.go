// internal/engine/aggregator/models.go
package aggregator

import (
	"time"

	"astrogeo/internal/engine/intent"
)

// Query is one inbound question plus its per-request options.
type Query struct {
	Text string `json:"text"`

	// CategoryHint pins the primary intent when the caller already
	// knows the topic. Empty means classify from text alone.
	CategoryHint string `json:"category_hint,omitempty"`

	// AllowLiveProviders overrides the engine default when non-nil.
	AllowLiveProviders *bool `json:"allow_live_providers,omitempty"`

	// MaxSemanticResults caps retriever fragments per section. Zero
	// means the engine default.
	MaxSemanticResults int `json:"max_semantic_results,omitempty"`
}

// Provenance says where a section's content came from.
type Provenance string

const (
	ProvenanceLiveData          Provenance = "live-data"
	ProvenanceKnowledgeBase     Provenance = "knowledge-base"
	ProvenanceFallbackKnowledge Provenance = "fallback-knowledge"
	ProvenanceRedirect          Provenance = "redirect"
	ProvenanceClarification     Provenance = "clarification"
)

// Confidence grades how much a section should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Section is one titled block of the response.
type Section struct {
	Name       string     `json:"name"`
	Provenance Provenance `json:"provenance"`
	Confidence Confidence `json:"confidence"`
	Provider   string     `json:"provider,omitempty"`
	Body       []string   `json:"body"`
	Diagnostic string     `json:"diagnostic,omitempty"`
}

// informative reports whether the section carries actual content, as
// opposed to explaining why content is missing.
func (s Section) informative() bool {
	switch s.Provenance {
	case ProvenanceLiveData, ProvenanceKnowledgeBase, ProvenanceFallbackKnowledge:
		return s.Diagnostic == ""
	}
	return false
}

// Envelope is the complete answer to one query. It always carries at
// least one section.
type Envelope struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Intents   []intent.Intent `json:"intents"`
	Location  string          `json:"location,omitempty"`
	Sections  []Section       `json:"sections"`
	CreatedAt time.Time       `json:"created_at"`
	ElapsedMS int64           `json:"elapsed_ms"`
}
