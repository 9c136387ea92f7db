// cmd/engine-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"astrogeo/internal/common/config"
	"astrogeo/internal/common/database"
	"astrogeo/internal/common/logger"
	"astrogeo/internal/common/observability"
	"astrogeo/internal/common/validation"
	"astrogeo/internal/engine/aggregator"
	"astrogeo/internal/engine/embedding"
	"astrogeo/internal/engine/geocode"
	"astrogeo/internal/engine/location"
	"astrogeo/internal/engine/provider"
	"astrogeo/internal/engine/retriever"
	"astrogeo/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting engine server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis cache with retry (optional) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, provider caching disabled", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init PostgreSQL query log with retry (optional) ---
	var recorder aggregator.Recorder
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Warn("postgres unavailable, query logging disabled", zap.Error(err))
		} else {
			defer pg.Close()
			repo := store.NewQueryLogRepository(pg.DB)
			if err := repo.EnsureSchema(ctx); err != nil {
				zapLog.Warn("query log schema setup failed, query logging disabled", zap.Error(err))
			} else {
				recorder = repo
				zapLog.Info("PostgreSQL connected successfully")
			}
		}
	}

	// --- Init semantic retriever ---
	// Index or embedder failures are configuration failures: log once,
	// serve knowledge fallbacks instead of aborting.
	retr := buildRetriever(cfg, log, zapLog)
	defer retr.Close()

	// --- Init provider gateway ---
	// Without real geocoding credentials the extractor gets no geocoder
	// at all, so candidates pass through unvalidated instead of being
	// mistaken for confirmed no-matches.
	geoClient := geocode.NewClient(cfg.Providers.OpenWeather, log)
	var geocoder location.Geocoder
	if geoClient.Configured() {
		geocoder = geoClient
	} else {
		zapLog.Warn("geocoder not configured, locations will be unvalidated")
	}
	gateway := provider.NewGateway(log, redis,
		provider.NewWeatherCurrent(cfg.Providers.OpenWeather),
		provider.NewWeatherForecast(cfg.Providers.OpenWeather),
		provider.NewAirQuality(cfg.Providers.OpenWeather, geoClient),
		provider.NewAPOD(cfg.Providers.NASA),
		provider.NewRoverPhotos(cfg.Providers.NASA),
		provider.NewSolarFlares(cfg.Providers.NASA),
		provider.NewNEOFeed(cfg.Providers.NASA),
		provider.NewGeoPortal(cfg.Providers.Bhuvan),
	)

	engine := aggregator.New(aggregator.Deps{
		Extractor: location.NewExtractor(geocoder, log),
		Gateway:   gateway,
		Searcher:  retr,
		Recorder:  recorder,
		Obs:       obs,
		Config:    cfg.Engine,
		Log:       log,
	})

	zapLog.Info("Engine assembled",
		zap.Bool("retriever_available", retr.Available()),
		zap.Bool("caching", redis != nil),
		zap.Bool("query_logging", recorder != nil),
	)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", handleQuery(engine, log))
	mux.HandleFunc("/healthz", handleHealth(retr))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Engine server stopped")
}

// buildRetriever opens the configured vector backend and embedder,
// degrading to a disabled retriever on any startup failure.
func buildRetriever(cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *retriever.Retriever {
	embedder, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		zapLog.Warn("embedding engine unavailable, semantic search disabled", zap.Error(err))
		return retriever.NewDisabled(fmt.Sprintf("embedder: %v", err), log)
	}

	var vstore retriever.VectorStore
	switch cfg.Retriever.Backend {
	case "elasticsearch":
		vstore, err = retriever.OpenElasticStore(cfg.Retriever.Elasticsearch)
	default:
		vstore, err = retriever.OpenSQLiteStore(cfg.Retriever.SQLitePath)
	}
	if err != nil {
		zapLog.Warn("vector index unavailable, semantic search disabled", zap.Error(err))
		return retriever.NewDisabled(fmt.Sprintf("index: %v", err), log)
	}

	zapLog.Info("Semantic retriever ready",
		zap.String("backend", cfg.Retriever.Backend),
		zap.String("embedder", embedder.Name()),
	)
	return retriever.New(vstore, embedder, cfg.Retriever.RelevanceFloor, cfg.Retriever.DefaultK, log)
}

type queryRequest struct {
	Query              string `json:"query"`
	CategoryHint       string `json:"category_hint"`
	AllowLiveProviders *bool  `json:"allow_live_providers"`
	MaxSemanticResults int    `json:"max_semantic_results"`
}

type queryResponse struct {
	aggregator.Envelope
	Rendered string `json:"rendered"`
}

type errorResponse struct {
	Error   string                       `json:"error"`
	Details []validation.ValidationError `json:"details,omitempty"`
}

func handleQuery(engine *aggregator.Engine, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST required"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
			return
		}

		result, err := validation.ValidateQueryRequest(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request is not valid JSON"})
			return
		}
		if !result.Valid {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "request failed validation",
				Details: result.Errors,
			})
			return
		}

		var req queryRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request is not valid JSON"})
			return
		}

		env := engine.Handle(r.Context(), aggregator.Query{
			Text:               req.Query,
			CategoryHint:       req.CategoryHint,
			AllowLiveProviders: req.AllowLiveProviders,
			MaxSemanticResults: req.MaxSemanticResults,
		})

		writeJSON(w, http.StatusOK, queryResponse{
			Envelope: env,
			Rendered: aggregator.RenderText(env),
		})
	}
}

func handleHealth(retr *retriever.Retriever) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":              "ok",
			"retriever_available": retr.Available(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
