// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like NASA_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from several locations so the binary and the
// tests can both find it.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials directly from the environment
// when the yaml left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Providers.OpenWeather.APIKey == "" {
		if val := os.Getenv("OPENWEATHERMAP_KEY"); val != "" {
			cfg.Providers.OpenWeather.APIKey = val
		}
	}
	if cfg.Providers.NASA.APIKey == "" {
		if val := os.Getenv("NASA_API_KEY"); val != "" {
			cfg.Providers.NASA.APIKey = val
		}
	}
	if cfg.Providers.Bhuvan.APIKey == "" {
		if val := os.Getenv("ISRO_API_KEY"); val != "" {
			cfg.Providers.Bhuvan.APIKey = val
		}
	}
	if cfg.Embedding.GenAIAPIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.Embedding.GenAIAPIKey = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Engine defaults
	if cfg.Engine.RequestTimeout == 0 {
		cfg.Engine.RequestTimeout = 75000
	}
	if cfg.Engine.MaxSemanticResults == 0 {
		cfg.Engine.MaxSemanticResults = 3
	}

	// Provider defaults: fast feeds at 10s, geo portal at 45s. Base
	// URLs are bare hosts, the bindings append the full API paths.
	if cfg.Providers.OpenWeather.BaseURL == "" {
		cfg.Providers.OpenWeather.BaseURL = "https://api.openweathermap.org"
	}
	if cfg.Providers.OpenWeather.GeoBaseURL == "" {
		cfg.Providers.OpenWeather.GeoBaseURL = "https://api.openweathermap.org"
	}
	if cfg.Providers.OpenWeather.Timeout == 0 {
		cfg.Providers.OpenWeather.Timeout = 10000
	}
	if cfg.Providers.OpenWeather.GeoTimeout == 0 {
		cfg.Providers.OpenWeather.GeoTimeout = 8000
	}
	if cfg.Providers.NASA.BaseURL == "" {
		cfg.Providers.NASA.BaseURL = "https://api.nasa.gov"
	}
	if cfg.Providers.NASA.Timeout == 0 {
		cfg.Providers.NASA.Timeout = 10000
	}
	if cfg.Providers.Bhuvan.BaseURL == "" {
		cfg.Providers.Bhuvan.BaseURL = "https://bhuvan-app1.nrsc.gov.in"
	}
	if cfg.Providers.Bhuvan.Timeout == 0 {
		cfg.Providers.Bhuvan.Timeout = 45000
	}

	// Retriever defaults
	if cfg.Retriever.Backend == "" {
		cfg.Retriever.Backend = "sqlite"
	}
	if cfg.Retriever.RelevanceFloor == 0 {
		cfg.Retriever.RelevanceFloor = 0.25
	}
	if cfg.Retriever.DefaultK == 0 {
		cfg.Retriever.DefaultK = 3
	}
	if cfg.Retriever.SQLitePath == "" {
		cfg.Retriever.SQLitePath = "data/vector_store/passages.db"
	}
	if cfg.Retriever.Elasticsearch.Index == "" {
		cfg.Retriever.Elasticsearch.Index = "astrogeo-passages"
	}

	// Embedding defaults
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.GenAIModel == "" {
		cfg.Embedding.GenAIModel = "gemini-embedding-001"
	}
	if cfg.Embedding.OllamaEndpoint == "" {
		cfg.Embedding.OllamaEndpoint = "http://localhost:11434"
	}
	if cfg.Embedding.OllamaModel == "" {
		cfg.Embedding.OllamaModel = "embeddinggemma"
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Retriever.Backend {
	case "sqlite":
		if cfg.Retriever.SQLitePath == "" {
			return fmt.Errorf("retriever.sqlite_path is required for the sqlite backend")
		}
	case "elasticsearch":
		if len(cfg.Retriever.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("retriever.elasticsearch.addresses is required for the elasticsearch backend")
		}
	default:
		return fmt.Errorf("retriever.backend must be sqlite or elasticsearch, got %q", cfg.Retriever.Backend)
	}

	if cfg.Retriever.RelevanceFloor < 0 || cfg.Retriever.RelevanceFloor >= 1 {
		return fmt.Errorf("retriever.relevance_floor must be in [0, 1), got %v", cfg.Retriever.RelevanceFloor)
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
