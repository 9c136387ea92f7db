// Package provider holds the live-data bindings and the gateway that
// mediates every outbound call with uniform timeouts, caching, and
// typed outcomes.
package provider

import (
	"context"
	"time"

	"astrogeo/internal/engine/location"
)

// ID names a live data source.
type ID string

const (
	WeatherCurrent  ID = "weather-current"
	WeatherForecast ID = "weather-forecast"
	AirQuality      ID = "air-quality"
	APOD            ID = "apod"
	RoverPhotos     ID = "rover-photos"
	SolarFlares     ID = "solar-flares"
	NEOFeed         ID = "neo-feed"
	GeoPortal       ID = "geo-portal"
)

// Outcome classifies how a provider call ended.
type Outcome string

const (
	// Success means the provider returned a usable payload.
	Success Outcome = "success"
	// Empty means the call worked but nothing matched.
	Empty Outcome = "empty"
	// TransientFailure covers timeouts, bad statuses, and parse errors
	// local to this call.
	TransientFailure Outcome = "transient_failure"
	// ConfigurationFailure means the provider cannot work until its
	// configuration changes.
	ConfigurationFailure Outcome = "configuration_failure"
)

// Renderable is a typed provider payload that can present itself as
// text lines for the response envelope.
type Renderable interface {
	Title() string
	Render() []string
}

// Params carries the per-call inputs a binding may need.
type Params struct {
	Query    string
	Location *location.Location
	Count    int
	Sol      int
}

// Result is the uniform envelope for one provider call. Exactly one of
// Payload or Diagnostic is meaningful depending on Outcome.
type Result struct {
	Provider   ID
	Outcome    Outcome
	Payload    Renderable
	Diagnostic string
	Degraded   bool
	Cached     bool
	Elapsed    time.Duration
}

// Binding is one live data source behind the gateway.
type Binding interface {
	ID() ID
	// Timeout bounds a single Fetch, including connection setup.
	Timeout() time.Duration
	// CacheTTL is how long a successful payload may be served from
	// cache. Zero disables caching for this binding.
	CacheTTL() time.Duration
	// Degraded reports whether the binding runs on placeholder
	// credentials. Degraded results carry lower confidence.
	Degraded() bool
	// Fetch performs the call. Errors should be StandardErrors so the
	// gateway can map them to outcomes.
	Fetch(ctx context.Context, p Params) (Renderable, error)
}
