package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig contains paths for uploaded datasets
type StorageConfig struct {
	UploadPath string `mapstructure:"upload_path"`
}

// WeatherConfig configures the Open-Meteo weather provider
type WeatherConfig struct {
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	BaseURL    string  `mapstructure:"base_url"`
	ArchiveURL string  `mapstructure:"archive_url"`
	Timeout    string  `mapstructure:"timeout"`
}

// PredictorConfig configures the external forecasting model service
type PredictorConfig struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

// LLMConfig configures the language-model provider used by the plan
// synthesizer and forecast insight stages
type LLMConfig struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	Timeout      string `mapstructure:"timeout"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// AnalysisConfig contains engine thresholds and retention settings
type AnalysisConfig struct {
	MinHistoryDays  int    `mapstructure:"min_history_days"`
	SpikeWindowDays int    `mapstructure:"spike_window_days"`
	StageTimeout    string `mapstructure:"stage_timeout"`
	Retention       string `mapstructure:"retention"`
	RetentionSweep  string `mapstructure:"retention_sweep"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Load reads configuration from config.yaml and the environment
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()

	// Override specific values from env
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("llm.api_key", "LLM_API_KEY")
	viper.BindEnv("llm.url", "LLM_URL")
	viper.BindEnv("predictor.url", "PREDICTOR_URL")
	viper.BindEnv("storage.upload_path", "UPLOAD_PATH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, defaults + env carry the day
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("database.path", "./data/insightwatt.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("storage.upload_path", "./data/uploads")

	// Karachi by default, matching the bundled historical weather reference
	viper.SetDefault("weather.latitude", 24.8607)
	viper.SetDefault("weather.longitude", 67.0011)
	viper.SetDefault("weather.base_url", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("weather.archive_url", "https://archive-api.open-meteo.com/v1/archive")
	viper.SetDefault("weather.timeout", "30s")

	viper.SetDefault("predictor.url", "http://localhost:9000/predict")
	viper.SetDefault("predictor.timeout", "60s")

	viper.SetDefault("llm.url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.default_model", "openai/gpt-oss-120b")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "45s")
	viper.SetDefault("llm.max_retries", 2)

	viper.SetDefault("analysis.min_history_days", 14)
	viper.SetDefault("analysis.spike_window_days", 30)
	viper.SetDefault("analysis.stage_timeout", "90s")
	viper.SetDefault("analysis.retention", "168h")
	viper.SetDefault("analysis.retention_sweep", "@hourly")

	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.write_timeout", 10)
}

// ParseDuration parses a config duration string with a fallback default
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}
