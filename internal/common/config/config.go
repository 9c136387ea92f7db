// internal/common/config/config.go
package config

import "fmt"

// DemoKey is the documented placeholder credential. Calls made with it
// still go out, but results are flagged so callers can downgrade the
// confidence of the sections they produce.
const DemoKey = "DEMO_KEY"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Retriever RetrieverConfig `mapstructure:"retriever"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// EngineConfig bounds one query-handling cycle.
type EngineConfig struct {
	RequestTimeout     int  `mapstructure:"request_timeout"` // milliseconds, whole fan-out
	AllowLiveProviders bool `mapstructure:"allow_live_providers"`
	MaxSemanticResults int  `mapstructure:"max_semantic_results"`
}

// --- Live Provider Config ---

// ProviderEndpoint holds the settings shared by every provider binding.
type ProviderEndpoint struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds, 0 disables caching
}

// IsDemoKey reports whether the endpoint runs on the placeholder credential.
func (p ProviderEndpoint) IsDemoKey() bool {
	return p.APIKey == "" || p.APIKey == DemoKey
}

type ProvidersConfig struct {
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	NASA        ProviderEndpoint  `mapstructure:"nasa"`
	Bhuvan      ProviderEndpoint  `mapstructure:"bhuvan"`
}

type OpenWeatherConfig struct {
	ProviderEndpoint `mapstructure:",squash"`
	GeoBaseURL       string `mapstructure:"geo_base_url"`
	GeoTimeout       int    `mapstructure:"geo_timeout"` // milliseconds
}

// --- Semantic Retriever Config ---
type RetrieverConfig struct {
	Backend        string              `mapstructure:"backend"` // "sqlite" or "elasticsearch"
	RelevanceFloor float64             `mapstructure:"relevance_floor"`
	DefaultK       int                 `mapstructure:"default_k"`
	SQLitePath     string              `mapstructure:"sqlite_path"`
	Elasticsearch  ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"` // "genai" or "ollama"
	GenAIAPIKey    string `mapstructure:"genai_api_key"`
	GenAIModel     string `mapstructure:"genai_model"`
	OllamaEndpoint string `mapstructure:"ollama_endpoint"`
	OllamaModel    string `mapstructure:"ollama_model"`
}

// --- Storage Config ---
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Enabled        bool   `mapstructure:"enabled"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
