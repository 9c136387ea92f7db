package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []Intent
	}{
		{
			name:     "plain weather query",
			query:    "What's the weather in Mumbai?",
			expected: []Intent{Weather},
		},
		{
			name:     "air quality query",
			query:    "How is the air quality in Delhi today?",
			expected: []Intent{AirQuality},
		},
		{
			name:     "apod query",
			query:    "Show me today's astronomy picture",
			expected: []Intent{AstronomyLive},
		},
		{
			name:     "rover photos",
			query:    "latest mars rover photos",
			expected: []Intent{AstronomyLive},
		},
		{
			name:     "solar flares",
			query:    "any recent solar flare activity?",
			expected: []Intent{AstronomyLive},
		},
		{
			name:     "asteroid tracking",
			query:    "are there hazardous asteroids near earth this week",
			expected: []Intent{AsteroidTracking},
		},
		{
			name:     "agency knowledge",
			query:    "Tell me about ISRO and Chandrayaan",
			expected: []Intent{SpaceAgencyMission},
		},
		{
			name:     "geospatial query",
			query:    "bhuvan geospatial data for Karnataka",
			expected: []Intent{RegionalGeospatial},
		},
		{
			name:     "multi-label weather plus air quality",
			query:    "weather and air quality in Bengaluru",
			expected: []Intent{Weather, AirQuality},
		},
		{
			name:     "multi-label keeps table order regardless of word order",
			query:    "pollution levels and temperature in Pune",
			expected: []Intent{Weather, AirQuality},
		},
		{
			name:     "domain marker without a rule match",
			query:    "what is a black hole in space",
			expected: []Intent{General},
		},
		{
			name:     "off topic query",
			query:    "best pizza recipe in town",
			expected: []Intent{OffTopic},
		},
		{
			name:     "empty query",
			query:    "",
			expected: []Intent{OffTopic},
		},
		{
			name:     "case insensitive",
			query:    "WEATHER IN CHENNAI",
			expected: []Intent{Weather},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.query))
		})
	}
}

func TestClassifyNeverEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "xyzzy", "weather", "stocks and shares"} {
		assert.NotEmpty(t, Classify(q), "query %q", q)
	}
}

func TestNeedsLocation(t *testing.T) {
	assert.True(t, Weather.NeedsLocation())
	assert.True(t, AirQuality.NeedsLocation())
	assert.True(t, RegionalGeospatial.NeedsLocation())
	assert.False(t, AstronomyLive.NeedsLocation())
	assert.False(t, AsteroidTracking.NeedsLocation())
	assert.False(t, SpaceAgencyMission.NeedsLocation())
	assert.False(t, General.NeedsLocation())
	assert.False(t, OffTopic.NeedsLocation())
}

func TestFromHint(t *testing.T) {
	got, ok := FromHint("weather")
	assert.True(t, ok)
	assert.Equal(t, Weather, got)

	_, ok = FromHint("off_topic")
	assert.False(t, ok)

	_, ok = FromHint("nonsense")
	assert.False(t, ok)
}
