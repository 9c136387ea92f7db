// Package geocode resolves place names to coordinates through the
// OpenWeatherMap direct geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/common/httpclient"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/engine/location"
)

const directPath = "/geo/1.0/direct"

// Client calls the geocoding endpoint. It implements location.Geocoder.
type Client struct {
	baseURL string
	apiKey  string
	client  *httpclient.Client
	log     logger.Logger
}

func NewClient(cfg config.OpenWeatherConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: cfg.GeoBaseURL,
		apiKey:  cfg.APIKey,
		client:  httpclient.New(config.GetDuration(cfg.GeoTimeout)),
		log:     log,
	}
}

// Configured reports whether real credentials are present. With the
// demo key the geocoder short-circuits instead of calling out.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != config.DemoKey
}

type geoEntry struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Resolve looks up a candidate place name. Ambiguous names retry with a
// ", India" suffix before the plain result is accepted, since regional
// queries dominate the traffic. Returns (nil, nil) when nothing matches.
func (c *Client) Resolve(ctx context.Context, candidate string) (*location.Location, error) {
	if !c.Configured() {
		c.log.Debug("geocoder not configured, skipping lookup", map[string]interface{}{
			"candidate": candidate,
		})
		return nil, nil
	}

	entries, err := c.lookup(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if len(entries) > 1 {
		// Prefer the Indian match when the bare name is ambiguous.
		refined, err := c.lookup(ctx, candidate+", India")
		if err == nil && len(refined) > 0 {
			entries = refined
		}
	}

	if len(entries) == 0 {
		return nil, nil
	}

	best := entries[0]
	return &location.Location{
		Name:      best.Name,
		Country:   best.Country,
		Latitude:  best.Lat,
		Longitude: best.Lon,
		Validated: true,
	}, nil
}

func (c *Client) lookup(ctx context.Context, query string) ([]geoEntry, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "3")
	params.Set("appid", c.apiKey)

	endpoint := c.baseURL + directPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewGeocodingFailedError(query, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewGeocodingFailedError(query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewGeocodingFailedError(query,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewGeocodingFailedError(query, err)
	}

	var entries []geoEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.NewGeocodingFailedError(query, err)
	}
	return entries, nil
}
