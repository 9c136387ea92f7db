package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The provider bindings append the full API path ("/data/2.5/weather",
// "/geo/1.0/direct", "/api/thematic"), so the default base URLs must
// stay bare hosts.
func TestApplyDefaultsBaseURLsAreBareHosts(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, "https://api.openweathermap.org", cfg.Providers.OpenWeather.BaseURL)
	assert.Equal(t, "https://api.openweathermap.org", cfg.Providers.OpenWeather.GeoBaseURL)
	assert.Equal(t, "https://api.nasa.gov", cfg.Providers.NASA.BaseURL)
	assert.Equal(t, "https://bhuvan-app1.nrsc.gov.in", cfg.Providers.Bhuvan.BaseURL)

	for _, base := range []string{
		cfg.Providers.OpenWeather.BaseURL,
		cfg.Providers.OpenWeather.GeoBaseURL,
		cfg.Providers.NASA.BaseURL,
		cfg.Providers.Bhuvan.BaseURL,
	} {
		u, err := url.Parse(base)
		require.NoError(t, err)
		assert.Empty(t, u.Path, "base URL %s must not carry an API path", base)
	}
}

func TestApplyDefaultsRetriever(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, "sqlite", cfg.Retriever.Backend)
	assert.Equal(t, 0.25, cfg.Retriever.RelevanceFloor)
	assert.Equal(t, 3, cfg.Retriever.DefaultK)
	assert.NotEmpty(t, cfg.Retriever.SQLitePath)
}

func TestValidateConfigRejectsUnknownBackend(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)
	cfg.Retriever.Backend = "pinecone"

	err := validateConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retriever.backend")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
