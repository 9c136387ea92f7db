package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrogeo/internal/common/config"
	stderrors "astrogeo/internal/common/errors"
	"astrogeo/internal/common/logger"
)

func newTestClient(serverURL string) *Client {
	cfg := config.OpenWeatherConfig{
		ProviderEndpoint: config.ProviderEndpoint{APIKey: "real-key"},
		GeoBaseURL:       serverURL,
		GeoTimeout:       2000,
	}
	return NewClient(cfg, logger.NewNoOpLogger())
}

func TestResolveSingleMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "Mumbai", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "real-key", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Mumbai","country":"IN","lat":19.07,"lon":72.87}]`))
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Resolve(context.Background(), "Mumbai")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "Mumbai", loc.Name)
	assert.Equal(t, "IN", loc.Country)
	assert.InDelta(t, 19.07, loc.Latitude, 0.001)
	assert.True(t, loc.Validated)
}

func TestResolveAmbiguousRetriesWithIndiaSuffix(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		w.Header().Set("Content-Type", "application/json")
		if q == "Hyderabad, India" {
			w.Write([]byte(`[{"name":"Hyderabad","country":"IN","lat":17.38,"lon":78.48}]`))
			return
		}
		w.Write([]byte(`[
			{"name":"Hyderabad","country":"PK","lat":25.39,"lon":68.37},
			{"name":"Hyderabad","country":"IN","lat":17.38,"lon":78.48}
		]`))
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Resolve(context.Background(), "Hyderabad")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, []string{"Hyderabad", "Hyderabad, India"}, queries)
	assert.Equal(t, "IN", loc.Country)
}

func TestResolveNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Resolve(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestResolveHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Resolve(context.Background(), "Mumbai")
	require.Error(t, err)
	assert.Nil(t, loc)
	assert.Equal(t, stderrors.ErrCodeGeocodingFailed, stderrors.CodeOf(err))
	assert.True(t, stderrors.IsTransient(err))
}

func TestResolveDemoKeySkipsLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected with demo credentials")
	}))
	defer server.Close()

	cfg := config.OpenWeatherConfig{
		ProviderEndpoint: config.ProviderEndpoint{APIKey: config.DemoKey},
		GeoBaseURL:       server.URL,
		GeoTimeout:       2000,
	}
	client := NewClient(cfg, logger.NewNoOpLogger())
	assert.False(t, client.Configured())

	loc, err := client.Resolve(context.Background(), "Mumbai")
	require.NoError(t, err)
	assert.Nil(t, loc)
}
