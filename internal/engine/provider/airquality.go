// internal/engine/provider/airquality.go
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
	"astrogeo/internal/engine/geocode"
)

// aqiLevels maps the OpenWeatherMap air quality index (1-5) to labels.
var aqiLevels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AirQualityReport is the payload of an air-quality call.
type AirQualityReport struct {
	City       string             `json:"city"`
	AQI        int                `json:"aqi"`
	Components map[string]float64 `json:"components"`
}

func (a *AirQualityReport) Title() string {
	return fmt.Sprintf("Air Quality in %s", a.City)
}

func (a *AirQualityReport) Render() []string {
	level := aqiLevels[a.AQI]
	if level == "" {
		level = "Unknown"
	}
	lines := []string{
		fmt.Sprintf("Air Quality Index: %d (%s)", a.AQI, level),
	}
	for _, key := range []string{"pm2_5", "pm10", "no2", "o3"} {
		if v, ok := a.Components[key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %.1f µg/m³", componentLabel(key), v))
		}
	}
	if a.AQI >= 4 {
		lines = append(lines, "Unhealthy air, sensitive groups should stay indoors.")
	} else if a.AQI == 3 {
		lines = append(lines, "Moderate air quality, sensitive groups should limit prolonged exposure.")
	}
	return lines
}

func componentLabel(key string) string {
	switch key {
	case "pm2_5":
		return "PM2.5"
	case "pm10":
		return "PM10"
	default:
		return strings.ToUpper(key)
	}
}

// AirQualityBinding calls the air pollution endpoint. The endpoint is
// coordinate-based, so unvalidated locations are geocoded first.
type AirQualityBinding struct {
	cfg      config.OpenWeatherConfig
	geo      *geocode.Client
	client   *httpclient.Client
	timeout  time.Duration
	cacheTTL time.Duration
}

func NewAirQuality(cfg config.OpenWeatherConfig, geo *geocode.Client) *AirQualityBinding {
	timeout := config.GetDuration(cfg.Timeout)
	return &AirQualityBinding{
		cfg:      cfg,
		geo:      geo,
		client:   httpclient.New(timeout),
		timeout:  timeout,
		cacheTTL: config.GetDuration(cfg.CacheTTL),
	}
}

func (b *AirQualityBinding) ID() ID                  { return AirQuality }
func (b *AirQualityBinding) Timeout() time.Duration  { return b.timeout }
func (b *AirQualityBinding) CacheTTL() time.Duration { return b.cacheTTL }
func (b *AirQualityBinding) Degraded() bool          { return b.cfg.IsDemoKey() }

type airPollutionResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}

func (b *AirQualityBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	if p.Location == nil || p.Location.Name == "" {
		return nil, errors.NewNoMatchError("no location in query")
	}

	lat, lon := p.Location.Latitude, p.Location.Longitude
	if !p.Location.Validated || (lat == 0 && lon == 0) {
		if b.geo == nil {
			return nil, errors.NewProviderNotConfiguredError(string(AirQuality))
		}
		resolved, err := b.geo.Resolve(ctx, p.Location.Name)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return nil, errors.NewNoMatchError(string(AirQuality))
		}
		lat, lon = resolved.Latitude, resolved.Longitude
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.4f", lat))
	params.Set("lon", fmt.Sprintf("%.4f", lon))
	params.Set("appid", b.cfg.APIKey)

	endpoint := b.cfg.BaseURL + "/data/2.5/air_pollution?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(AirQuality), err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, errors.NewProviderTimeoutError(string(AirQuality), b.timeout)
		}
		return nil, errors.NewProviderHTTPStatusError(string(AirQuality), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderHTTPStatusError(string(AirQuality), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(AirQuality), err)
	}

	var parsed airPollutionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewProviderParseFailedError(string(AirQuality), err)
	}
	if len(parsed.List) == 0 {
		return nil, errors.NewNoMatchError(string(AirQuality))
	}

	return &AirQualityReport{
		City:       p.Location.Name,
		AQI:        parsed.List[0].Main.AQI,
		Components: parsed.List[0].Components,
	}, nil
}
