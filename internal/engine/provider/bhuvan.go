// internal/engine/provider/bhuvan.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/common/httpclient"
)

// GeoPortalDocument is the payload of a geo-portal call. The portal
// serves mixed JSON and plain-text responses, so the body is kept as
// a bounded excerpt rather than a typed record.
type GeoPortalDocument struct {
	Endpoint string `json:"endpoint"`
	Region   string `json:"region,omitempty"`
	Excerpt  string `json:"excerpt"`
}

func (g *GeoPortalDocument) Title() string {
	if g.Region != "" {
		return fmt.Sprintf("Geospatial Portal Data for %s", g.Region)
	}
	return "Geospatial Portal Data"
}

func (g *GeoPortalDocument) Render() []string {
	return []string{
		fmt.Sprintf("Source endpoint: %s", g.Endpoint),
		g.Excerpt,
	}
}

// geoPortalExcerptLimit bounds how much portal output goes into a section.
const geoPortalExcerptLimit = 600

// GeoPortalBinding calls the Bhuvan geospatial portal. The portal is
// slow, so its timeout is much larger than the other bindings.
type GeoPortalBinding struct {
	cfg      config.ProviderEndpoint
	endpoint string
	client   *httpclient.Client
	timeout  time.Duration
	cacheTTL time.Duration
}

func NewGeoPortal(cfg config.ProviderEndpoint) *GeoPortalBinding {
	timeout := config.GetDuration(cfg.Timeout)
	return &GeoPortalBinding{
		cfg:      cfg,
		endpoint: "/api/thematic",
		client:   httpclient.New(timeout),
		timeout:  timeout,
		cacheTTL: config.GetDuration(cfg.CacheTTL),
	}
}

func (b *GeoPortalBinding) ID() ID                  { return GeoPortal }
func (b *GeoPortalBinding) Timeout() time.Duration  { return b.timeout }
func (b *GeoPortalBinding) CacheTTL() time.Duration { return b.cacheTTL }
func (b *GeoPortalBinding) Degraded() bool          { return b.cfg.IsDemoKey() }

func (b *GeoPortalBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	if b.cfg.BaseURL == "" {
		return nil, errors.NewProviderNotConfiguredError(string(GeoPortal))
	}

	params := url.Values{}
	if b.cfg.APIKey != "" && b.cfg.APIKey != config.DemoKey {
		params.Set("token", b.cfg.APIKey)
	}
	region := ""
	if p.Location != nil {
		region = p.Location.Name
		params.Set("region", region)
	}

	endpoint := b.cfg.BaseURL + b.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(GeoPortal), err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, errors.NewProviderTimeoutError(string(GeoPortal), b.timeout)
		}
		return nil, errors.NewProviderHTTPStatusError(string(GeoPortal), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderHTTPStatusError(string(GeoPortal), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(GeoPortal), err)
	}

	excerpt := strings.TrimSpace(string(body))
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		// Re-indent JSON payloads so the excerpt stays readable.
		var pretty map[string]interface{}
		if err := json.Unmarshal(body, &pretty); err == nil {
			if formatted, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				excerpt = string(formatted)
			}
		}
	}
	if excerpt == "" {
		return nil, errors.NewNoMatchError(string(GeoPortal))
	}
	if len(excerpt) > geoPortalExcerptLimit {
		excerpt = excerpt[:geoPortalExcerptLimit] + "..."
	}

	return &GeoPortalDocument{
		Endpoint: b.endpoint,
		Region:   region,
		Excerpt:  excerpt,
	}, nil
}
