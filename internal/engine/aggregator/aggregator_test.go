package aggregator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/engine/intent"
	"astrogeo/internal/engine/location"
	"astrogeo/internal/engine/provider"
	"astrogeo/internal/engine/retriever"
	"astrogeo/internal/store"
)

type fakePayload struct {
	title string
	lines []string
}

func (f *fakePayload) Title() string    { return f.title }
func (f *fakePayload) Render() []string { return f.lines }

type fakeGateway struct {
	mu      sync.Mutex
	results map[provider.ID]provider.Result
	calls   []provider.ID
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: make(map[provider.ID]provider.Result)}
}

func (g *fakeGateway) succeed(id provider.ID, title string, lines ...string) {
	g.results[id] = provider.Result{
		Provider: id,
		Outcome:  provider.Success,
		Payload:  &fakePayload{title: title, lines: lines},
	}
}

func (g *fakeGateway) fail(id provider.ID, outcome provider.Outcome, diagnostic string) {
	g.results[id] = provider.Result{Provider: id, Outcome: outcome, Diagnostic: diagnostic}
}

func (g *fakeGateway) Call(_ context.Context, id provider.ID, _ provider.Params) provider.Result {
	g.mu.Lock()
	g.calls = append(g.calls, id)
	g.mu.Unlock()

	if r, ok := g.results[id]; ok {
		return r
	}
	return provider.Result{Provider: id, Outcome: provider.Empty}
}

func (g *fakeGateway) Has(id provider.ID) bool {
	_, ok := g.results[id]
	return ok
}

type fakeSearcher struct {
	fragments []retriever.ScoredFragment
	lastK     int
}

func (s *fakeSearcher) Search(_ context.Context, _ string, k int) []retriever.ScoredFragment {
	s.lastK = k
	return s.fragments
}

func (s *fakeSearcher) Available() bool { return true }

type fakeGeocoder struct {
	loc *location.Location
}

func (f *fakeGeocoder) Resolve(_ context.Context, _ string) (*location.Location, error) {
	return f.loc, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []store.QueryRecord
}

func (f *fakeRecorder) Record(_ context.Context, rec store.QueryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func testEngine(gw *fakeGateway, searcher *fakeSearcher, geo location.Geocoder) *Engine {
	return New(Deps{
		Extractor: location.NewExtractor(geo, logger.NewNoOpLogger()),
		Gateway:   gw,
		Searcher:  searcher,
		Config: config.EngineConfig{
			RequestTimeout:     5000,
			AllowLiveProviders: true,
			MaxSemanticResults: 3,
		},
		Log: logger.NewNoOpLogger(),
	})
}

func mumbaiGeocoder() *fakeGeocoder {
	return &fakeGeocoder{loc: &location.Location{
		Name: "Mumbai", Country: "IN", Latitude: 19.07, Longitude: 72.87, Validated: true,
	}}
}

func TestHandleWeatherQuery(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather in Mumbai", "Temperature: 31.0°C")
	gw.succeed(provider.WeatherForecast, "48-Hour Outlook for Mumbai", "Rainfall: 12 mm")

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "What's the weather in Mumbai?"})

	assert.Equal(t, []intent.Intent{intent.Weather}, env.Intents)
	assert.Equal(t, "Mumbai, IN", env.Location)
	require.Len(t, env.Sections, 2)
	assert.Equal(t, ProvenanceLiveData, env.Sections[0].Provenance)
	assert.Equal(t, ConfidenceHigh, env.Sections[0].Confidence)
	assert.Equal(t, "weather-current", env.Sections[0].Provider)
	assert.Equal(t, "weather-forecast", env.Sections[1].Provider)
	assert.NotEmpty(t, env.ID)
}

func TestHandleOffTopicMakesNoProviderCalls(t *testing.T) {
	gw := newFakeGateway()

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "best pizza recipe in town"})

	assert.Equal(t, []intent.Intent{intent.OffTopic}, env.Intents)
	require.Len(t, env.Sections, 1)
	assert.Equal(t, ProvenanceRedirect, env.Sections[0].Provenance)
	assert.Contains(t, env.Sections[0].Body[0], "food and dining")
	assert.Empty(t, gw.calls, "off-topic queries must not reach the gateway")
}

func TestHandleMissingLocationAsksForClarification(t *testing.T) {
	gw := newFakeGateway()

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "what is the weather like"})

	require.Len(t, env.Sections, 1)
	assert.Equal(t, ProvenanceClarification, env.Sections[0].Provenance)
	assert.Empty(t, gw.calls)
}

func TestHandlePartialProviderFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.fail(provider.WeatherCurrent, provider.TransientFailure, "status 502")
	gw.succeed(provider.WeatherForecast, "48-Hour Outlook for Mumbai", "Rainfall: 3 mm")

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "weather in Mumbai"})

	require.Len(t, env.Sections, 2)
	assert.Equal(t, ConfidenceLow, env.Sections[0].Confidence)
	assert.Equal(t, "status 502", env.Sections[0].Diagnostic)
	assert.Equal(t, ConfidenceHigh, env.Sections[1].Confidence)
}

func TestHandleAllSourcesFailedAppendsFallback(t *testing.T) {
	gw := newFakeGateway()
	gw.fail(provider.WeatherCurrent, provider.TransientFailure, "timeout")
	gw.fail(provider.WeatherForecast, provider.TransientFailure, "timeout")

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "weather in Mumbai"})

	require.Len(t, env.Sections, 3)
	last := env.Sections[2]
	assert.Equal(t, "All Sources Unavailable", last.Name)
	assert.Equal(t, ProvenanceFallbackKnowledge, last.Provenance)
}

func TestHandleSemanticHit(t *testing.T) {
	searcher := &fakeSearcher{fragments: []retriever.ScoredFragment{
		{DocID: "isro-1", Content: "ISRO operates the PSLV launch vehicle.", Score: 0.91},
		{DocID: "isro-2", Content: "Chandrayaan-3 landed near the lunar south pole.", Score: 0.84},
	}}
	gw := newFakeGateway()

	env := testEngine(gw, searcher, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "tell me about ISRO missions"})

	require.Len(t, env.Sections, 1)
	s := env.Sections[0]
	assert.Equal(t, ProvenanceKnowledgeBase, s.Provenance)
	assert.Equal(t, ConfidenceMedium, s.Confidence)
	assert.Equal(t, "semantic-index", s.Provider)
	assert.Len(t, s.Body, 2)
	assert.Empty(t, gw.calls)
}

func TestHandleSemanticMissFallsBackToStaticKnowledge(t *testing.T) {
	env := testEngine(newFakeGateway(), &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "tell me about ISRO"})

	require.Len(t, env.Sections, 1)
	s := env.Sections[0]
	assert.Equal(t, ProvenanceFallbackKnowledge, s.Provenance)
	assert.Equal(t, ConfidenceLow, s.Confidence)
	assert.Contains(t, s.Name, "ISRO")
}

func TestHandleMultiIntentKeepsOrder(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather in Mumbai", "31°C")
	gw.succeed(provider.WeatherForecast, "48-Hour Outlook for Mumbai", "5 mm")
	gw.succeed(provider.AirQuality, "Air Quality in Mumbai", "AQI 3")

	engine := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder())
	for i := 0; i < 5; i++ {
		env := engine.Handle(context.Background(), Query{Text: "weather and air quality in Mumbai"})
		require.Len(t, env.Sections, 3)
		assert.Equal(t, "weather-current", env.Sections[0].Provider)
		assert.Equal(t, "weather-forecast", env.Sections[1].Provider)
		assert.Equal(t, "air-quality", env.Sections[2].Provider)
	}
}

func TestHandleLiveDisabled(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather in Mumbai", "31°C")

	disabled := false
	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{
			Text:               "weather in Mumbai",
			AllowLiveProviders: &disabled,
		})

	require.Len(t, env.Sections, 1)
	assert.Equal(t, ProvenanceClarification, env.Sections[0].Provenance)
	assert.Empty(t, gw.calls)
}

func TestHandleUnvalidatedLocationLowersConfidence(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather in Atlantis", "20°C")
	gw.succeed(provider.WeatherForecast, "Outlook for Atlantis", "0 mm")

	// No geocoder configured, so the raw candidate is used unvalidated.
	env := testEngine(gw, &fakeSearcher{}, nil).
		Handle(context.Background(), Query{Text: "weather in Atlantis"})

	require.Len(t, env.Sections, 2)
	assert.Equal(t, ConfidenceLow, env.Sections[0].Confidence)
}

func TestHandleGeocoderNoMatchAsksForClarification(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather", "20°C")

	// The geocoder confirms the candidate is not a real place, so no
	// provider is called with it.
	env := testEngine(gw, &fakeSearcher{}, &fakeGeocoder{}).
		Handle(context.Background(), Query{Text: "weather in Xyzzyqwop"})

	require.Len(t, env.Sections, 1)
	assert.Equal(t, ProvenanceClarification, env.Sections[0].Provenance)
	assert.Empty(t, env.Location)
	assert.Empty(t, gw.calls)
}

func TestHandleDegradedCredentialsMediumConfidence(t *testing.T) {
	gw := newFakeGateway()
	gw.results[provider.APOD] = provider.Result{
		Provider: provider.APOD,
		Outcome:  provider.Success,
		Payload:  &fakePayload{title: "APOD", lines: []string{"a nebula"}},
		Degraded: true,
	}

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "show me the astronomy picture of the day"})

	require.Len(t, env.Sections, 1)
	assert.Equal(t, ConfidenceMedium, env.Sections[0].Confidence)
}

func TestHandleAstronomyProviderSelection(t *testing.T) {
	tests := []struct {
		query    string
		expected provider.ID
	}{
		{"any recent solar flare activity", provider.SolarFlares},
		{"show me mars rover photos", provider.RoverPhotos},
		{"today's astronomy picture", provider.APOD},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gw := newFakeGateway()
			gw.succeed(tt.expected, "payload", "line")

			testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
				Handle(context.Background(), Query{Text: tt.query})

			require.NotEmpty(t, gw.calls)
			assert.Equal(t, tt.expected, gw.calls[0])
		})
	}
}

func TestHandleCategoryHintOverridesPrimary(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.NEOFeed, "Near-Earth Objects This Week", "2 objects")

	env := testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{
			Text:         "anything interesting up there",
			CategoryHint: "asteroid_tracking",
		})

	assert.Equal(t, intent.AsteroidTracking, env.Intents[0])
	require.Len(t, env.Sections, 1)
	assert.Equal(t, "neo-feed", env.Sections[0].Provider)
}

func TestHandleEmptyQueryStillAnswers(t *testing.T) {
	env := testEngine(newFakeGateway(), &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: ""})

	require.NotEmpty(t, env.Sections)
	assert.Equal(t, ProvenanceRedirect, env.Sections[0].Provenance)
}

func TestHandleRecordsQueryLog(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "Current Weather in Mumbai", "31°C")
	gw.succeed(provider.WeatherForecast, "Outlook", "2 mm")

	recorder := &fakeRecorder{}
	engine := New(Deps{
		Extractor: location.NewExtractor(mumbaiGeocoder(), logger.NewNoOpLogger()),
		Gateway:   gw,
		Searcher:  &fakeSearcher{},
		Recorder:  recorder,
		Config: config.EngineConfig{
			RequestTimeout:     5000,
			AllowLiveProviders: true,
			MaxSemanticResults: 3,
		},
		Log: logger.NewNoOpLogger(),
	})

	env := engine.Handle(context.Background(), Query{Text: "weather in Mumbai"})

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.Equal(t, env.ID, rec.ID)
	assert.Equal(t, []string{"weather"}, rec.Intents)
	assert.Equal(t, 2, rec.SectionCount)
	assert.Equal(t, []string{"live-data", "live-data"}, rec.Provenances)
}

func TestHandleMaxSemanticResultsOverride(t *testing.T) {
	searcher := &fakeSearcher{fragments: []retriever.ScoredFragment{
		{DocID: "d", Content: "c", Score: 0.9},
	}}

	testEngine(newFakeGateway(), searcher, mumbaiGeocoder()).
		Handle(context.Background(), Query{
			Text:               "tell me about ISRO",
			MaxSemanticResults: 7,
		})

	assert.Equal(t, 7, searcher.lastK)
}

func TestHandleStaysWithinRequestTimeout(t *testing.T) {
	gw := newFakeGateway()
	gw.succeed(provider.WeatherCurrent, "w", "l")
	gw.succeed(provider.WeatherForecast, "f", "l")

	start := time.Now()
	testEngine(gw, &fakeSearcher{}, mumbaiGeocoder()).
		Handle(context.Background(), Query{Text: "weather in Mumbai"})
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRenderText(t *testing.T) {
	env := Envelope{
		Sections: []Section{
			{
				Name:       "Current Weather in Mumbai",
				Provenance: ProvenanceLiveData,
				Confidence: ConfidenceHigh,
				Body:       []string{"Temperature: 31.0°C"},
			},
			{
				Name:       "Air Quality in Mumbai",
				Provenance: ProvenanceLiveData,
				Confidence: ConfidenceHigh,
				Body:       []string{"AQI: 3"},
			},
		},
	}

	text := RenderText(env)
	assert.True(t, strings.HasPrefix(text, "## Current Weather in Mumbai\n"))
	assert.Contains(t, text, "Temperature: 31.0°C")
	assert.Contains(t, text, "_Source: live-data, confidence: high_")
	assert.Contains(t, text, "## Air Quality in Mumbai")
}
