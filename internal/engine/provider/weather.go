// internal/engine/provider/weather.go
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

// WeatherReport is the payload of a weather-current call.
type WeatherReport struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	Humidity    int     `json:"humidity"`
	PressureHPa int     `json:"pressure_hpa"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
}

func (w *WeatherReport) Title() string {
	return fmt.Sprintf("Current Weather in %s", w.City)
}

func (w *WeatherReport) Render() []string {
	lines := []string{
		fmt.Sprintf("Temperature: %.1f°C (feels like %.1f°C)", w.TempC, w.FeelsLikeC),
		fmt.Sprintf("Conditions: %s", w.Description),
		fmt.Sprintf("Humidity: %d%%, Pressure: %d hPa", w.Humidity, w.PressureHPa),
		fmt.Sprintf("Wind speed: %.1f m/s", w.WindSpeed),
	}
	return append(lines, w.analysis()...)
}

// analysis derives short insight lines from the raw readings.
func (w *WeatherReport) analysis() []string {
	var notes []string
	switch {
	case w.TempC >= 35:
		notes = append(notes, "Very hot conditions, limit outdoor exposure during midday.")
	case w.TempC >= 28:
		notes = append(notes, "Warm conditions, stay hydrated outdoors.")
	case w.TempC <= 10:
		notes = append(notes, "Cold conditions, dress warmly.")
	default:
		notes = append(notes, "Comfortable temperature range.")
	}
	if w.Humidity >= 80 {
		notes = append(notes, "High humidity, expect a muggy feel.")
	}
	if w.WindSpeed >= 10 {
		notes = append(notes, "Strong winds, secure loose items outdoors.")
	}
	return notes
}

// ForecastReport is the payload of a weather-forecast call. Rainfall is
// accumulated over the next 48 hours of 3-hour forecast slots.
type ForecastReport struct {
	City         string   `json:"city"`
	RainfallMM   float64  `json:"rainfall_mm_48h"`
	SlotsCounted int      `json:"slots_counted"`
	Outlook      []string `json:"outlook"`
}

func (f *ForecastReport) Title() string {
	return fmt.Sprintf("48-Hour Outlook for %s", f.City)
}

func (f *ForecastReport) Render() []string {
	lines := []string{
		fmt.Sprintf("Expected rainfall over the next 48 hours: %.1f mm", f.RainfallMM),
	}
	if f.RainfallMM >= 50 {
		lines = append(lines, "Heavy rain expected, plan for disruptions.")
	} else if f.RainfallMM >= 10 {
		lines = append(lines, "Moderate rain expected, carry rain protection.")
	} else if f.RainfallMM > 0 {
		lines = append(lines, "Light rain possible.")
	} else {
		lines = append(lines, "No significant rainfall expected.")
	}
	return append(lines, f.Outlook...)
}

// openWeatherBinding is shared plumbing for the two OpenWeatherMap
// endpoints.
type openWeatherBinding struct {
	id       ID
	path     string
	cfg      config.OpenWeatherConfig
	client   *httpclient.Client
	timeout  time.Duration
	cacheTTL time.Duration
}

func newOpenWeatherBinding(id ID, path string, cfg config.OpenWeatherConfig) *openWeatherBinding {
	timeout := config.GetDuration(cfg.Timeout)
	return &openWeatherBinding{
		id:       id,
		path:     path,
		cfg:      cfg,
		client:   httpclient.New(timeout),
		timeout:  timeout,
		cacheTTL: config.GetDuration(cfg.CacheTTL),
	}
}

func (b *openWeatherBinding) ID() ID                  { return b.id }
func (b *openWeatherBinding) Timeout() time.Duration  { return b.timeout }
func (b *openWeatherBinding) CacheTTL() time.Duration { return b.cacheTTL }
func (b *openWeatherBinding) Degraded() bool          { return b.cfg.IsDemoKey() }

// get runs a GET against the configured base URL and returns the body,
// mapping transport failures to the shared taxonomy.
func (b *openWeatherBinding) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("appid", b.cfg.APIKey)
	params.Set("units", "metric")

	endpoint := b.cfg.BaseURL + b.path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, errors.NewProviderTimeoutError(string(b.id), b.timeout)
		}
		return nil, errors.NewProviderHTTPStatusError(string(b.id), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderHTTPStatusError(string(b.id), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	return body, nil
}

// locationQuery builds the q= parameter. Validated locations include
// the country code to disambiguate.
func locationQuery(p Params) (string, error) {
	if p.Location == nil || p.Location.Name == "" {
		return "", errors.NewNoMatchError("no location in query")
	}
	if p.Location.Validated && p.Location.Country != "" {
		return p.Location.Name + "," + p.Location.Country, nil
	}
	return p.Location.Name, nil
}

// WeatherCurrentBinding calls the current-conditions endpoint.
type WeatherCurrentBinding struct {
	*openWeatherBinding
}

func NewWeatherCurrent(cfg config.OpenWeatherConfig) *WeatherCurrentBinding {
	return &WeatherCurrentBinding{newOpenWeatherBinding(WeatherCurrent, "/data/2.5/weather", cfg)}
}

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (b *WeatherCurrentBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	q, err := locationQuery(p)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)
	body, err := b.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var parsed currentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}

	report := &WeatherReport{
		City:        parsed.Name,
		Country:     parsed.Sys.Country,
		TempC:       parsed.Main.Temp,
		FeelsLikeC:  parsed.Main.FeelsLike,
		Humidity:    parsed.Main.Humidity,
		PressureHPa: parsed.Main.Pressure,
		WindSpeed:   parsed.Wind.Speed,
	}
	if len(parsed.Weather) > 0 {
		report.Description = parsed.Weather[0].Description
	}
	if report.City == "" {
		report.City = p.Location.Name
	}
	return report, nil
}

// WeatherForecastBinding calls the 5-day forecast endpoint and keeps
// the first 48 hours.
type WeatherForecastBinding struct {
	*openWeatherBinding
}

func NewWeatherForecast(cfg config.OpenWeatherConfig) *WeatherForecastBinding {
	return &WeatherForecastBinding{newOpenWeatherBinding(WeatherForecast, "/data/2.5/forecast", cfg)}
}

type forecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"`
		Rain  struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// forecastSlots48h is the number of 3-hour slots covering 48 hours.
const forecastSlots48h = 16

func (b *WeatherForecastBinding) Fetch(ctx context.Context, p Params) (Renderable, error) {
	q, err := locationQuery(p)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", q)
	body, err := b.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var parsed forecastResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewProviderParseFailedError(string(b.id), err)
	}
	if len(parsed.List) == 0 {
		return nil, errors.NewNoMatchError(string(b.id))
	}

	report := &ForecastReport{City: parsed.City.Name}
	if report.City == "" {
		report.City = p.Location.Name
	}

	seen := map[string]bool{}
	for i, slot := range parsed.List {
		if i >= forecastSlots48h {
			break
		}
		report.RainfallMM += slot.Rain.ThreeHour
		report.SlotsCounted++
		if len(slot.Weather) > 0 && !seen[slot.Weather[0].Description] {
			seen[slot.Weather[0].Description] = true
			if len(report.Outlook) < 3 {
				report.Outlook = append(report.Outlook,
					fmt.Sprintf("Expected: %s", slot.Weather[0].Description))
			}
		}
	}
	return report, nil
}
