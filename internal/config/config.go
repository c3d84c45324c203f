package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "stockdash/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "STOCKDASH"

// ConfigFileEnv names the variable that points at an explicit YAML config file
const ConfigFileEnv = "STOCKDASH_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:""`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8050"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8050"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/stockdash.log"`
}

// UploadConfig bounds what a single dashboard request may carry
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"33554432"`
	MaxFiles int   `yaml:"max_files" envconfig:"MAX_FILES" default:"2"`
	MaxRows  int   `yaml:"max_rows" envconfig:"MAX_ROWS" default:"200000"`
}

// DashboardConfig contains presentation settings for generated dashboards
type DashboardConfig struct {
	PreviewRows    int  `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" default:"50"`
	VolumeAsBar    bool `yaml:"volume_as_bar" envconfig:"VOLUME_AS_BAR" default:"false"`
	VolumeLogScale bool `yaml:"volume_log_scale" envconfig:"VOLUME_LOG_SCALE" default:"false"`
	ChartWidth     int  `yaml:"chart_width" envconfig:"CHART_WIDTH" default:"960"`
	ChartHeight    int  `yaml:"chart_height" envconfig:"CHART_HEIGHT" default:"420"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"stockdash"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"4096"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"4096"`
	ReadLimit       int64         `yaml:"read_limit" envconfig:"READ_LIMIT" default:"16777216"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load reads .env (if present), then the YAML config file (if any), then environment
// variables. Environment values take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := getConfigFilePath(); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := processEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

// processEnv overlays only the variables that are actually set, so that file values are not
// reset to struct defaults.
func processEnv(cfg *Config) error {
	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	mergeEnv(cfg, &env)
	return nil
}

// loadFromFile unmarshals a YAML file on top of cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// mergeEnv copies fields whose environment variable is set from env into cfg
func mergeEnv(cfg, env *Config) {
	set := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + key)
		return ok
	}

	if set("SERVER_HOST") {
		cfg.Server.Host = env.Server.Host
	}
	if set("SERVER_PORT") {
		cfg.Server.Port = env.Server.Port
	}
	if set("SERVER_READ_TIMEOUT") {
		cfg.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if set("SERVER_WRITE_TIMEOUT") {
		cfg.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if set("SERVER_IDLE_TIMEOUT") {
		cfg.Server.IdleTimeout = env.Server.IdleTimeout
	}
	if set("SERVER_SHUTDOWN_TIMEOUT") {
		cfg.Server.ShutdownTimeout = env.Server.ShutdownTimeout
	}
	if set("SERVER_REQUEST_TIMEOUT") {
		cfg.Server.RequestTimeout = env.Server.RequestTimeout
	}

	if set("SECURITY_ALLOWED_ORIGINS") {
		cfg.Security.AllowedOrigins = env.Security.AllowedOrigins
	}
	if set("SECURITY_ENABLE_CORS") {
		cfg.Security.EnableCORS = env.Security.EnableCORS
	}
	if set("SECURITY_RATE_LIMIT_ENABLED") {
		cfg.Security.RateLimit.Enabled = env.Security.RateLimit.Enabled
	}
	if set("SECURITY_RATE_LIMIT_RPS") {
		cfg.Security.RateLimit.RPS = env.Security.RateLimit.RPS
	}
	if set("SECURITY_RATE_LIMIT_BURST") {
		cfg.Security.RateLimit.Burst = env.Security.RateLimit.Burst
	}

	if set("LOGGING_LEVEL") {
		cfg.Logging.Level = env.Logging.Level
	}
	if set("LOGGING_OUTPUT") {
		cfg.Logging.Output = env.Logging.Output
	}
	if set("LOGGING_FILE_PATH") {
		cfg.Logging.FilePath = env.Logging.FilePath
	}

	if set("UPLOAD_MAX_BYTES") {
		cfg.Upload.MaxBytes = env.Upload.MaxBytes
	}
	if set("UPLOAD_MAX_FILES") {
		cfg.Upload.MaxFiles = env.Upload.MaxFiles
	}
	if set("UPLOAD_MAX_ROWS") {
		cfg.Upload.MaxRows = env.Upload.MaxRows
	}

	if set("DASHBOARD_PREVIEW_ROWS") {
		cfg.Dashboard.PreviewRows = env.Dashboard.PreviewRows
	}
	if set("DASHBOARD_VOLUME_AS_BAR") {
		cfg.Dashboard.VolumeAsBar = env.Dashboard.VolumeAsBar
	}
	if set("DASHBOARD_VOLUME_LOG_SCALE") {
		cfg.Dashboard.VolumeLogScale = env.Dashboard.VolumeLogScale
	}
	if set("DASHBOARD_CHART_WIDTH") {
		cfg.Dashboard.ChartWidth = env.Dashboard.ChartWidth
	}
	if set("DASHBOARD_CHART_HEIGHT") {
		cfg.Dashboard.ChartHeight = env.Dashboard.ChartHeight
	}

	if set("TELEMETRY_SERVICE_NAME") {
		cfg.Telemetry.ServiceName = env.Telemetry.ServiceName
	}
	if set("TELEMETRY_ENVIRONMENT") {
		cfg.Telemetry.Environment = env.Telemetry.Environment
	}
	if set("TELEMETRY_TRACE_EXPORTER") {
		cfg.Telemetry.TraceExporter = env.Telemetry.TraceExporter
	}
	if set("TELEMETRY_METRIC_EXPORTER") {
		cfg.Telemetry.MetricExporter = env.Telemetry.MetricExporter
	}
	if set("TELEMETRY_SAMPLE_RATIO") {
		cfg.Telemetry.SampleRatio = env.Telemetry.SampleRatio
	}

	if set("WEBSOCKET_READ_BUFFER_SIZE") {
		cfg.WebSocket.ReadBufferSize = env.WebSocket.ReadBufferSize
	}
	if set("WEBSOCKET_WRITE_BUFFER_SIZE") {
		cfg.WebSocket.WriteBufferSize = env.WebSocket.WriteBufferSize
	}
	if set("WEBSOCKET_READ_LIMIT") {
		cfg.WebSocket.ReadLimit = env.WebSocket.ReadLimit
	}
	if set("WEBSOCKET_PING_PERIOD") {
		cfg.WebSocket.PingPeriod = env.WebSocket.PingPeriod
	}
	if set("WEBSOCKET_PONG_WAIT") {
		cfg.WebSocket.PongWait = env.WebSocket.PongWait
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	if c.Upload.MaxFiles < 1 {
		return fmt.Errorf("upload max files must be at least 1")
	}

	if c.Dashboard.PreviewRows < 0 {
		return fmt.Errorf("dashboard preview rows cannot be negative")
	}

	if c.Dashboard.ChartWidth <= 0 || c.Dashboard.ChartHeight <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/stockdash.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8050,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8050"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/stockdash.log",
		},
		Upload: UploadConfig{
			MaxBytes: 32 << 20, // 32MB
			MaxFiles: 2,
			MaxRows:  200000,
		},
		Dashboard: DashboardConfig{
			PreviewRows: 50,
			ChartWidth:  960,
			ChartHeight: 420,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "stockdash",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			ReadLimit:       16 << 20,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
