package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/engine/location"
)

func nasaTestConfig(serverURL string) config.ProviderEndpoint {
	return config.ProviderEndpoint{
		BaseURL: serverURL,
		APIKey:  "real-key",
		Timeout: 2000,
	}
}

func TestAPODFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/planetary/apod", r.URL.Path)
		assert.Equal(t, "real-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{
			"title": "The Sombrero Galaxy",
			"date": "2026-08-29",
			"explanation": "A striking galaxy seen nearly edge-on.",
			"url": "https://apod.nasa.gov/apod/image/sombrero.jpg"
		}`))
	}))
	defer server.Close()

	binding := NewAPOD(nasaTestConfig(server.URL))
	payload, err := binding.Fetch(context.Background(), Params{})
	require.NoError(t, err)

	record, ok := payload.(*ApodRecord)
	require.True(t, ok)
	assert.Equal(t, "The Sombrero Galaxy", record.PictureTitle)
	assert.Contains(t, payload.Title(), "Sombrero")
	assert.Contains(t, payload.Render()[0], "2026-08-29")
}

func TestAPODDefaultsToDemoKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, config.DemoKey, r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"title": "x", "date": "d", "explanation": "e", "url": "u"}`))
	}))
	defer server.Close()

	cfg := nasaTestConfig(server.URL)
	cfg.APIKey = ""
	binding := NewAPOD(cfg)
	assert.True(t, binding.Degraded())

	_, err := binding.Fetch(context.Background(), Params{})
	require.NoError(t, err)
}

func TestRoverPhotosFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mars-photos/api/v1/rovers/curiosity/photos", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("sol"))
		w.Write([]byte(`{
			"photos": [
				{"img_src": "http://mars/1.jpg", "earth_date": "2015-05-30", "camera": {"full_name": "Front Hazard Avoidance Camera"}},
				{"img_src": "http://mars/2.jpg", "earth_date": "2015-05-30", "camera": {"full_name": "Mast Camera"}},
				{"img_src": "http://mars/3.jpg", "earth_date": "2015-05-30", "camera": {"full_name": "Navigation Camera"}},
				{"img_src": "http://mars/4.jpg", "earth_date": "2015-05-30", "camera": {"full_name": "Mast Camera"}}
			]
		}`))
	}))
	defer server.Close()

	binding := NewRoverPhotos(nasaTestConfig(server.URL))
	payload, err := binding.Fetch(context.Background(), Params{})
	require.NoError(t, err)

	set, ok := payload.(*RoverPhotoSet)
	require.True(t, ok)
	assert.Equal(t, 1000, set.Sol)
	assert.Equal(t, 4, set.Total)
	assert.Len(t, set.Photos, 3)
}

func TestRoverPhotosEmptyIsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos": []}`))
	}))
	defer server.Close()

	binding := NewRoverPhotos(nasaTestConfig(server.URL))
	_, err := binding.Fetch(context.Background(), Params{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoMatch, errors.CodeOf(err))
}

func TestSolarFlaresPicksMostRecent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/DONKI/FLR", r.URL.Path)
		w.Write([]byte(`[
			{"classType": "C3.1", "beginTime": "2026-08-20T04:00Z", "peakTime": "2026-08-20T04:30Z", "sourceLocation": "N12E34"},
			{"classType": "M1.5", "beginTime": "2026-08-27T10:00Z", "peakTime": "2026-08-27T10:45Z", "sourceLocation": "S05W11"}
		]`))
	}))
	defer server.Close()

	binding := NewSolarFlares(nasaTestConfig(server.URL))
	payload, err := binding.Fetch(context.Background(), Params{})
	require.NoError(t, err)

	event, ok := payload.(*SolarFlareEvent)
	require.True(t, ok)
	assert.Equal(t, "M1.5", event.ClassType)
	assert.Equal(t, 2, event.TotalRecent)
}

func TestSolarFlaresEmptyIsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	binding := NewSolarFlares(nasaTestConfig(server.URL))
	_, err := binding.Fetch(context.Background(), Params{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoMatch, errors.CodeOf(err))
}

func TestNEOFeedFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/neo/rest/v1/feed", r.URL.Path)
		w.Write([]byte(`{
			"element_count": 5,
			"near_earth_objects": {
				"2026-08-29": [
					{"name": "(2026 AB)", "is_potentially_hazardous_asteroid": true,
					 "estimated_diameter": {"meters": {"estimated_diameter_max": 310.5}}},
					{"name": "(2026 CD)", "is_potentially_hazardous_asteroid": false,
					 "estimated_diameter": {"meters": {"estimated_diameter_max": 42.0}}},
					{"name": "(2026 EF)", "is_potentially_hazardous_asteroid": false,
					 "estimated_diameter": {"meters": {"estimated_diameter_max": 12.0}}}
				],
				"2026-08-30": [
					{"name": "(2026 GH)", "is_potentially_hazardous_asteroid": false,
					 "estimated_diameter": {"meters": {"estimated_diameter_max": 80.0}}}
				]
			}
		}`))
	}))
	defer server.Close()

	binding := NewNEOFeed(nasaTestConfig(server.URL))
	payload, err := binding.Fetch(context.Background(), Params{})
	require.NoError(t, err)

	feed, ok := payload.(*NeoFeed)
	require.True(t, ok)
	assert.Equal(t, 5, feed.TotalCount)
	require.NotEmpty(t, feed.Objects)
	assert.Equal(t, "(2026 AB)", feed.Objects[0].Name)
	assert.True(t, feed.Objects[0].Hazardous)
	assert.Contains(t, feed.Render()[1], "[potentially hazardous]")
}

func TestGeoPortalFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/thematic", r.URL.Path)
		assert.Equal(t, "Karnataka", r.URL.Query().Get("region"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"theme": "land use", "coverage": "state"}`))
	}))
	defer server.Close()

	binding := NewGeoPortal(config.ProviderEndpoint{
		BaseURL: server.URL,
		APIKey:  config.DemoKey,
		Timeout: 2000,
	})
	payload, err := binding.Fetch(context.Background(), Params{
		Location: &location.Location{Name: "Karnataka"},
	})
	require.NoError(t, err)

	doc, ok := payload.(*GeoPortalDocument)
	require.True(t, ok)
	assert.Equal(t, "Karnataka", doc.Region)
	assert.Contains(t, doc.Excerpt, "land use")
}

func TestGeoPortalUnconfigured(t *testing.T) {
	binding := NewGeoPortal(config.ProviderEndpoint{Timeout: 2000})
	_, err := binding.Fetch(context.Background(), Params{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeProviderNotConfigured, errors.CodeOf(err))
}
