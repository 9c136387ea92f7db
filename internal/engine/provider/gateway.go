// internal/engine/provider/gateway.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"astrogeo/internal/common/database"
	"astrogeo/internal/common/errors"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/common/metrics"
)

// cachedPayload is the cache representation of a successful call. Only
// the rendered form is cached; typed payloads stay in-process.
type cachedPayload struct {
	PayloadTitle string   `json:"title"`
	Lines        []string `json:"lines"`
}

func (c *cachedPayload) Title() string    { return c.PayloadTitle }
func (c *cachedPayload) Render() []string { return c.Lines }

// Gateway mediates every live provider call. It applies the binding's
// timeout, serves recent results from cache, maps errors onto typed
// outcomes, and records metrics. It never retries; a transient failure
// surfaces as a degraded section instead of added latency.
type Gateway struct {
	bindings map[ID]Binding
	cache    *database.RedisClient
	log      logger.Logger
}

// NewGateway builds a gateway over the given bindings. cache may be nil
// to disable caching entirely.
func NewGateway(log logger.Logger, cache *database.RedisClient, bindings ...Binding) *Gateway {
	byID := make(map[ID]Binding, len(bindings))
	for _, b := range bindings {
		byID[b.ID()] = b
	}
	return &Gateway{bindings: byID, cache: cache, log: log}
}

// Has reports whether a binding is registered for id.
func (g *Gateway) Has(id ID) bool {
	_, ok := g.bindings[id]
	return ok
}

// Call invokes one provider and always returns a usable Result; it
// never panics or returns an error.
func (g *Gateway) Call(ctx context.Context, id ID, p Params) Result {
	start := time.Now()

	binding, ok := g.bindings[id]
	if !ok {
		metrics.ProviderCalls.WithLabelValues(string(id), string(ConfigurationFailure)).Inc()
		return Result{
			Provider:   id,
			Outcome:    ConfigurationFailure,
			Diagnostic: "no binding registered for provider",
			Elapsed:    time.Since(start),
		}
	}

	cacheKey := g.cacheKey(id, p)
	if cached := g.fromCache(ctx, binding, cacheKey); cached != nil {
		metrics.ProviderCalls.WithLabelValues(string(id), string(Success)).Inc()
		return Result{
			Provider: id,
			Outcome:  Success,
			Payload:  cached,
			Degraded: binding.Degraded(),
			Cached:   true,
			Elapsed:  time.Since(start),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, binding.Timeout())
	defer cancel()

	payload, err := binding.Fetch(callCtx, p)
	elapsed := time.Since(start)
	metrics.ProviderCallDuration.WithLabelValues(string(id)).Observe(elapsed.Seconds())

	result := Result{
		Provider: id,
		Degraded: binding.Degraded(),
		Elapsed:  elapsed,
	}

	switch {
	case err == nil:
		result.Outcome = Success
		result.Payload = payload
		g.toCache(ctx, binding, cacheKey, payload)
	case errors.CodeOf(err) == errors.ErrCodeNoMatch:
		result.Outcome = Empty
		result.Diagnostic = err.Error()
	case errors.CodeOf(err) == errors.ErrCodeProviderNotConfigured:
		result.Outcome = ConfigurationFailure
		result.Diagnostic = err.Error()
	case callCtx.Err() == context.DeadlineExceeded:
		result.Outcome = TransientFailure
		result.Diagnostic = errors.NewProviderTimeoutError(string(id), binding.Timeout()).Error()
	default:
		result.Outcome = TransientFailure
		result.Diagnostic = err.Error()
	}

	if result.Outcome != Success {
		g.log.Warn("provider call did not succeed", map[string]interface{}{
			"provider":   string(id),
			"outcome":    string(result.Outcome),
			"diagnostic": result.Diagnostic,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}

	metrics.ProviderCalls.WithLabelValues(string(id), string(result.Outcome)).Inc()
	return result
}

// cacheKey builds a stable key from the call inputs that affect the
// response.
func (g *Gateway) cacheKey(id ID, p Params) string {
	parts := []string{"provider", string(id)}
	if p.Location != nil {
		parts = append(parts, strings.ToLower(p.Location.Label()))
	}
	if p.Sol > 0 {
		parts = append(parts, fmt.Sprintf("sol=%d", p.Sol))
	}
	if p.Count > 0 {
		parts = append(parts, fmt.Sprintf("count=%d", p.Count))
	}
	return strings.Join(parts, ":")
}

func (g *Gateway) fromCache(ctx context.Context, binding Binding, key string) Renderable {
	if g.cache == nil || binding.CacheTTL() <= 0 {
		return nil
	}

	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		return nil
	}

	var cached cachedPayload
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		g.log.Debug("dropping unreadable cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil
	}
	return &cached
}

func (g *Gateway) toCache(ctx context.Context, binding Binding, key string, payload Renderable) {
	if g.cache == nil || binding.CacheTTL() <= 0 || payload == nil {
		return
	}

	raw, err := json.Marshal(cachedPayload{
		PayloadTitle: payload.Title(),
		Lines:        payload.Render(),
	})
	if err != nil {
		return
	}

	if err := g.cache.Set(ctx, key, string(raw), binding.CacheTTL()); err != nil {
		g.log.Debug("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
