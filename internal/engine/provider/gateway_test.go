package provider

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrogeo/internal/common/database"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/engine/location"
)

type fakePayload struct {
	title string
	lines []string
}

func (f *fakePayload) Title() string    { return f.title }
func (f *fakePayload) Render() []string { return f.lines }

type fakeBinding struct {
	id       ID
	timeout  time.Duration
	cacheTTL time.Duration
	degraded bool
	payload  Renderable
	err      error
	block    bool
	calls    int
}

func (f *fakeBinding) ID() ID                  { return f.id }
func (f *fakeBinding) Timeout() time.Duration  { return f.timeout }
func (f *fakeBinding) CacheTTL() time.Duration { return f.cacheTTL }
func (f *fakeBinding) Degraded() bool          { return f.degraded }

func (f *fakeBinding) Fetch(ctx context.Context, _ Params) (Renderable, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestCallSuccess(t *testing.T) {
	binding := &fakeBinding{
		id:      APOD,
		timeout: time.Second,
		payload: &fakePayload{title: "APOD", lines: []string{"a galaxy"}},
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), APOD, Params{})
	assert.Equal(t, Success, result.Outcome)
	assert.Equal(t, APOD, result.Provider)
	require.NotNil(t, result.Payload)
	assert.Equal(t, "APOD", result.Payload.Title())
	assert.False(t, result.Degraded)
	assert.False(t, result.Cached)
}

func TestCallEmptyOutcome(t *testing.T) {
	binding := &fakeBinding{
		id:      RoverPhotos,
		timeout: time.Second,
		err:     errors.NewNoMatchError("rover-photos"),
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), RoverPhotos, Params{})
	assert.Equal(t, Empty, result.Outcome)
	assert.Nil(t, result.Payload)
	assert.NotEmpty(t, result.Diagnostic)
}

func TestCallTransientFailure(t *testing.T) {
	binding := &fakeBinding{
		id:      WeatherCurrent,
		timeout: time.Second,
		err:     errors.NewProviderHTTPStatusError("weather-current", 502),
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), WeatherCurrent, Params{})
	assert.Equal(t, TransientFailure, result.Outcome)
}

func TestCallConfigurationFailure(t *testing.T) {
	binding := &fakeBinding{
		id:      GeoPortal,
		timeout: time.Second,
		err:     errors.NewProviderNotConfiguredError("geo-portal"),
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), GeoPortal, Params{})
	assert.Equal(t, ConfigurationFailure, result.Outcome)
}

func TestCallTimeoutMapsToTransientFailure(t *testing.T) {
	binding := &fakeBinding{
		id:      SolarFlares,
		timeout: 20 * time.Millisecond,
		block:   true,
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), SolarFlares, Params{})
	assert.Equal(t, TransientFailure, result.Outcome)
	assert.Contains(t, result.Diagnostic, "PROVIDER_TIMEOUT")
}

func TestCallUnknownProvider(t *testing.T) {
	gw := NewGateway(logger.NewNoOpLogger(), nil)

	result := gw.Call(context.Background(), "no-such-provider", Params{})
	assert.Equal(t, ConfigurationFailure, result.Outcome)
	assert.False(t, gw.Has("no-such-provider"))
}

func TestCallDegradedCredentialsFlagged(t *testing.T) {
	binding := &fakeBinding{
		id:       NEOFeed,
		timeout:  time.Second,
		degraded: true,
		payload:  &fakePayload{title: "NEO", lines: []string{"2 objects"}},
	}
	gw := NewGateway(logger.NewNoOpLogger(), nil, binding)

	result := gw.Call(context.Background(), NEOFeed, Params{})
	assert.Equal(t, Success, result.Outcome)
	assert.True(t, result.Degraded)
}

func TestCallCacheHitSkipsFetch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := &database.RedisClient{Client: db}

	cached, _ := json.Marshal(cachedPayload{
		PayloadTitle: "Current Weather in Mumbai",
		Lines:        []string{"Temperature: 30.0°C"},
	})
	mock.ExpectGet("provider:weather-current:mumbai, in").SetVal(string(cached))

	binding := &fakeBinding{id: WeatherCurrent, timeout: time.Second, cacheTTL: time.Minute}
	gw := NewGateway(logger.NewNoOpLogger(), cache, binding)

	result := gw.Call(context.Background(), WeatherCurrent, Params{
		Location: &location.Location{Name: "Mumbai", Country: "IN", Validated: true},
	})
	assert.Equal(t, Success, result.Outcome)
	assert.True(t, result.Cached)
	assert.Equal(t, 0, binding.calls)
	assert.Equal(t, "Current Weather in Mumbai", result.Payload.Title())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallCacheMissStoresResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := &database.RedisClient{Client: db}

	payload := &fakePayload{title: "APOD", lines: []string{"a nebula"}}
	raw, _ := json.Marshal(cachedPayload{PayloadTitle: "APOD", Lines: []string{"a nebula"}})

	mock.ExpectGet("provider:apod").RedisNil()
	mock.ExpectSet("provider:apod", string(raw), time.Minute).SetVal("OK")

	binding := &fakeBinding{id: APOD, timeout: time.Second, cacheTTL: time.Minute, payload: payload}
	gw := NewGateway(logger.NewNoOpLogger(), cache, binding)

	result := gw.Call(context.Background(), APOD, Params{})
	assert.Equal(t, Success, result.Outcome)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, binding.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
