// Package aggregator classifies queries, fans out to data sources, and
// assembles the sections of a response envelope.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/common/metrics"
	"astrogeo/internal/common/observability"
	"astrogeo/internal/engine/intent"
	"astrogeo/internal/engine/knowledge"
	"astrogeo/internal/engine/location"
	"astrogeo/internal/engine/provider"
	"astrogeo/internal/engine/retriever"
	"astrogeo/internal/store"
)

// Gateway is the provider surface the aggregator calls through.
type Gateway interface {
	Call(ctx context.Context, id provider.ID, p provider.Params) provider.Result
	Has(id provider.ID) bool
}

// Searcher is the semantic retriever surface.
type Searcher interface {
	Search(ctx context.Context, query string, k int) []retriever.ScoredFragment
	Available() bool
}

// Recorder persists handled queries. Recording failures are logged and
// never affect the response.
type Recorder interface {
	Record(ctx context.Context, rec store.QueryRecord) error
}

// Deps wires an Engine. Recorder and Obs may be nil.
type Deps struct {
	Extractor *location.Extractor
	Gateway   Gateway
	Searcher  Searcher
	Recorder  Recorder
	Obs       *observability.Observability
	Config    config.EngineConfig
	Log       logger.Logger
}

// Engine turns one query into one envelope.
type Engine struct {
	deps Deps
}

func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// Handle runs the full cycle: classify, extract location, fan out to
// sources, merge sections. It always returns an envelope with at least
// one section, in intent order regardless of which source answered
// first.
func (e *Engine) Handle(ctx context.Context, q Query) Envelope {
	start := time.Now()

	env := Envelope{
		ID:        uuid.New().String(),
		Query:     q.Text,
		CreatedAt: start.UTC(),
	}

	intents := e.classify(q)
	env.Intents = intents
	primary := intents[0]

	metrics.QueriesTotal.WithLabelValues(string(primary)).Inc()
	if e.deps.Obs != nil {
		e.deps.Obs.RecordQueryProcessed(ctx, string(primary))
	}

	if primary == intent.OffTopic {
		env.Sections = []Section{e.redirectSection(q.Text)}
		e.finish(ctx, &env, start)
		return env
	}

	reqCtx, cancel := context.WithTimeout(ctx, config.GetDuration(e.deps.Config.RequestTimeout))
	defer cancel()

	var loc *location.Location
	for _, it := range intents {
		if it.NeedsLocation() {
			loc = e.deps.Extractor.Extract(reqCtx, q.Text)
			break
		}
	}
	if loc != nil {
		env.Location = loc.Label()
	}

	allowLive := e.deps.Config.AllowLiveProviders
	if q.AllowLiveProviders != nil {
		allowLive = *q.AllowLiveProviders
	}
	maxFragments := q.MaxSemanticResults
	if maxFragments <= 0 {
		maxFragments = e.deps.Config.MaxSemanticResults
	}

	// Fan out per intent. Results land in a slot per intent so the
	// merged order matches classification order, not completion order.
	sectionSets := make([][]Section, len(intents))
	var wg sync.WaitGroup
	for i, it := range intents {
		wg.Add(1)
		go func(slot int, it intent.Intent) {
			defer wg.Done()
			sectionSets[slot] = e.sectionsFor(reqCtx, it, q.Text, loc, allowLive, maxFragments)
		}(i, it)
	}
	wg.Wait()

	for _, set := range sectionSets {
		env.Sections = append(env.Sections, set...)
	}

	// A clarification already tells the caller what to do next; the
	// unavailable fallback only covers the case where every source
	// failed or came back empty with nothing to say.
	answered := false
	for _, s := range env.Sections {
		if s.informative() || s.Provenance == ProvenanceClarification {
			answered = true
			break
		}
	}
	if !answered {
		env.Sections = append(env.Sections, e.unavailableSection())
	}

	e.finish(ctx, &env, start)
	return env
}

func (e *Engine) classify(q Query) []intent.Intent {
	intents := intent.Classify(q.Text)

	hint, ok := intent.FromHint(q.CategoryHint)
	if !ok {
		return intents
	}

	// A valid hint becomes the primary intent; classification keeps
	// contributing secondary intents.
	reordered := []intent.Intent{hint}
	for _, it := range intents {
		if it != hint && it != intent.OffTopic {
			reordered = append(reordered, it)
		}
	}
	return reordered
}

func (e *Engine) finish(ctx context.Context, env *Envelope, start time.Time) {
	env.ElapsedMS = time.Since(start).Milliseconds()

	for _, s := range env.Sections {
		metrics.SectionsEmitted.WithLabelValues(string(s.Provenance), string(s.Confidence)).Inc()
	}
	if e.deps.Obs != nil {
		e.deps.Obs.RecordQueryDuration(ctx, time.Since(start), string(env.Intents[0]))
	}

	e.deps.Log.Info("query handled", map[string]interface{}{
		"request_id": env.ID,
		"intents":    intentStrings(env.Intents),
		"sections":   len(env.Sections),
		"elapsed_ms": env.ElapsedMS,
	})

	if e.deps.Recorder != nil {
		rec := store.QueryRecord{
			ID:           env.ID,
			QueryText:    env.Query,
			Intents:      intentStrings(env.Intents),
			LocationName: env.Location,
			SectionCount: len(env.Sections),
			ElapsedMS:    env.ElapsedMS,
			CreatedAt:    env.CreatedAt,
		}
		for _, s := range env.Sections {
			rec.Provenances = append(rec.Provenances, string(s.Provenance))
		}
		if err := e.deps.Recorder.Record(ctx, rec); err != nil {
			e.deps.Log.Warn("failed to record query log", map[string]interface{}{
				"request_id": env.ID,
				"error":      err.Error(),
			})
		}
	}
}

// sectionsFor produces the sections for one intent.
func (e *Engine) sectionsFor(ctx context.Context, it intent.Intent, text string, loc *location.Location, allowLive bool, maxFragments int) []Section {
	switch it {
	case intent.Weather:
		if loc == nil {
			return []Section{e.clarificationSection("Weather", `weather in Mumbai`)}
		}
		if !allowLive {
			return []Section{e.liveDisabledSection("Weather")}
		}
		params := provider.Params{Query: text, Location: loc}
		var sections []Section
		if s, ok := e.liveSection(ctx, provider.WeatherCurrent, params, loc); ok {
			sections = append(sections, s)
		}
		if s, ok := e.liveSection(ctx, provider.WeatherForecast, params, loc); ok {
			sections = append(sections, s)
		}
		return sections

	case intent.AirQuality:
		if loc == nil {
			return []Section{e.clarificationSection("Air Quality", `air quality in Delhi`)}
		}
		if !allowLive {
			return []Section{e.liveDisabledSection("Air Quality")}
		}
		if s, ok := e.liveSection(ctx, provider.AirQuality, provider.Params{Query: text, Location: loc}, loc); ok {
			return []Section{s}
		}
		return nil

	case intent.AstronomyLive:
		if !allowLive {
			return []Section{e.liveDisabledSection("Astronomy")}
		}
		id := astronomyProvider(text)
		if s, ok := e.liveSection(ctx, id, provider.Params{Query: text}, nil); ok {
			return []Section{s}
		}
		return nil

	case intent.AsteroidTracking:
		if !allowLive {
			return []Section{e.liveDisabledSection("Asteroid Tracking")}
		}
		if s, ok := e.liveSection(ctx, provider.NEOFeed, provider.Params{Query: text}, nil); ok {
			return []Section{s}
		}
		return nil

	case intent.SpaceAgencyMission:
		if s, ok := e.semanticSection(ctx, "Mission Knowledge", text, maxFragments); ok {
			return []Section{s}
		}
		return []Section{e.fallbackSection(text)}

	case intent.RegionalGeospatial:
		if s, ok := e.semanticSection(ctx, "Geospatial Knowledge", text, maxFragments); ok {
			return []Section{s}
		}
		if allowLive && loc != nil && e.deps.Gateway.Has(provider.GeoPortal) {
			if s, ok := e.liveSection(ctx, provider.GeoPortal, provider.Params{Query: text, Location: loc}, loc); ok {
				return []Section{s}
			}
		}
		return []Section{e.fallbackSection(text)}

	case intent.General:
		return []Section{e.fallbackSection(text)}
	}
	return nil
}

// astronomyProvider picks the live astronomy source the query is about.
func astronomyProvider(text string) provider.ID {
	normalized := strings.ToLower(text)
	switch {
	case strings.Contains(normalized, "solar") || strings.Contains(normalized, "flare") ||
		strings.Contains(normalized, "space weather"):
		return provider.SolarFlares
	case strings.Contains(normalized, "rover") || strings.Contains(normalized, "mars photo"):
		return provider.RoverPhotos
	default:
		return provider.APOD
	}
}

// liveSection calls one provider and converts the result. Empty results
// yield no section; failures yield a diagnostic section so the reader
// sees which source went dark.
func (e *Engine) liveSection(ctx context.Context, id provider.ID, params provider.Params, loc *location.Location) (Section, bool) {
	result := e.deps.Gateway.Call(ctx, id, params)

	switch result.Outcome {
	case provider.Success:
		return Section{
			Name:       result.Payload.Title(),
			Provenance: ProvenanceLiveData,
			Confidence: liveConfidence(result, loc),
			Provider:   string(id),
			Body:       result.Payload.Render(),
		}, true

	case provider.Empty:
		return Section{}, false

	default:
		return Section{
			Name:       fmt.Sprintf("%s (unavailable)", providerDisplayName(id)),
			Provenance: ProvenanceLiveData,
			Confidence: ConfidenceLow,
			Provider:   string(id),
			Body:       []string{fmt.Sprintf("Live data from %s is currently unavailable.", providerDisplayName(id))},
			Diagnostic: result.Diagnostic,
		}, true
	}
}

func liveConfidence(result provider.Result, loc *location.Location) Confidence {
	if loc != nil && !loc.Validated {
		return ConfidenceLow
	}
	if result.Degraded {
		return ConfidenceMedium
	}
	return ConfidenceHigh
}

func providerDisplayName(id provider.ID) string {
	switch id {
	case provider.WeatherCurrent:
		return "Current Weather"
	case provider.WeatherForecast:
		return "Weather Forecast"
	case provider.AirQuality:
		return "Air Quality"
	case provider.APOD:
		return "Astronomy Picture of the Day"
	case provider.RoverPhotos:
		return "Mars Rover Photos"
	case provider.SolarFlares:
		return "Solar Flare Monitor"
	case provider.NEOFeed:
		return "Near-Earth Object Feed"
	case provider.GeoPortal:
		return "Geospatial Portal"
	}
	return string(id)
}

// semanticSection searches the vector index and formats the fragments.
func (e *Engine) semanticSection(ctx context.Context, name, text string, maxFragments int) (Section, bool) {
	fragments := e.deps.Searcher.Search(ctx, text, maxFragments)
	if len(fragments) == 0 {
		return Section{}, false
	}

	body := make([]string, 0, len(fragments))
	for _, f := range fragments {
		body = append(body, f.Content)
	}
	return Section{
		Name:       name,
		Provenance: ProvenanceKnowledgeBase,
		Confidence: ConfidenceMedium,
		Provider:   "semantic-index",
		Body:       body,
	}, true
}

// fallbackSection serves static knowledge matched to the query, or the
// generic entry when nothing matches.
func (e *Engine) fallbackSection(text string) Section {
	entries := knowledge.Lookup(text)
	if len(entries) == 0 {
		entries = []knowledge.Entry{knowledge.Generic()}
	}

	var body []string
	name := entries[0].Title
	for i, entry := range entries {
		if i > 0 {
			body = append(body, entry.Title)
		}
		body = append(body, entry.Body...)
	}
	return Section{
		Name:       name,
		Provenance: ProvenanceFallbackKnowledge,
		Confidence: ConfidenceLow,
		Provider:   "knowledge",
		Body:       body,
	}
}

func (e *Engine) redirectSection(text string) Section {
	domain := knowledge.IdentifyOffTopicDomain(text)
	return Section{
		Name:       "Outside Coverage",
		Provenance: ProvenanceRedirect,
		Confidence: ConfidenceLow,
		Body: []string{
			fmt.Sprintf("This query appears to be about %s, which this service does not cover.", domain),
			"Supported topics: weather and air quality, space agency missions, live astronomy data, asteroid tracking, and regional geospatial data.",
			`Try something like "weather in Mumbai" or "tell me about ISRO".`,
		},
	}
}

func (e *Engine) clarificationSection(topic, example string) Section {
	return Section{
		Name:       fmt.Sprintf("%s: Location Needed", topic),
		Provenance: ProvenanceClarification,
		Confidence: ConfidenceLow,
		Body: []string{
			fmt.Sprintf("%s lookups need a place name and none was found in the query.", topic),
			fmt.Sprintf(`Try something like "%s".`, example),
		},
	}
}

func (e *Engine) liveDisabledSection(topic string) Section {
	return Section{
		Name:       fmt.Sprintf("%s: Live Data Disabled", topic),
		Provenance: ProvenanceClarification,
		Confidence: ConfidenceLow,
		Body: []string{
			fmt.Sprintf("Live provider calls are disabled for this request, so no %s data was fetched.", strings.ToLower(topic)),
		},
	}
}

// unavailableSection closes the envelope when every source came back
// empty or failed.
func (e *Engine) unavailableSection() Section {
	generic := knowledge.Generic()
	body := append([]string{
		"None of the data sources could answer this query right now.",
	}, generic.Body...)
	return Section{
		Name:       "All Sources Unavailable",
		Provenance: ProvenanceFallbackKnowledge,
		Confidence: ConfidenceLow,
		Provider:   "knowledge",
		Body:       body,
	}
}

func intentStrings(intents []intent.Intent) []string {
	out := make([]string, len(intents))
	for i, it := range intents {
		out[i] = string(it)
	}
	return out
}
