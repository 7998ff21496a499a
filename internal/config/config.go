package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Tool modes selectable for the executor
const (
	ToolModeGeneric         = "generic"
	ToolModeYouTubeAnalyzer = "youtube-analyzer"
	ToolModeContentAnalyzer = "content-analyzer"
	ToolModeAuto            = "auto"
)

// Analysis depth modes
const (
	AnalysisQuick    = "quick"
	AnalysisStandard = "standard"
	AnalysisDeep     = "deep"
)

// Config represents the complete configuration shared by both services
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Tool       ToolConfig       `yaml:"tool"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Database   DatabaseConfig   `yaml:"database"`
	History    HistoryConfig    `yaml:"history"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Events     EventsConfig     `yaml:"events"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds the executor HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// DispatcherConfig holds the poll loop configuration
type DispatcherConfig struct {
	QueueURL        string        `yaml:"queue_url"`
	ExecutorURL     string        `yaml:"executor_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	BatchSize       int           `yaml:"batch_size"`
	ControlTimeout  time.Duration `yaml:"control_timeout"`
	ExecuteTimeout  time.Duration `yaml:"execute_timeout"`
	HealthTimeout   time.Duration `yaml:"health_timeout"`
	MinBackoff      time.Duration `yaml:"min_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ToolConfig selects the tool the executor runs
type ToolConfig struct {
	Mode string `yaml:"mode"`
}

// AnalysisConfig configures the URL analyzer collaborators
type AnalysisConfig struct {
	TranscriptURL      string                   `yaml:"transcript_url"`
	TranscriptLanguage string                   `yaml:"transcript_language"`
	TranscriptTimeout  time.Duration            `yaml:"transcript_timeout"`
	FetchTimeout       time.Duration            `yaml:"fetch_timeout"`
	MaxContentBytes    int64                    `yaml:"max_content_bytes"`
	MinContentLength   int                      `yaml:"min_content_length"`
	UserAgent          string                   `yaml:"user_agent"`
	PatternCommand     string                   `yaml:"pattern_command"`
	PatternArgs        []string                 `yaml:"pattern_args"`
	Patterns           map[string][]string      `yaml:"patterns"`
	PatternTimeouts    map[string]time.Duration `yaml:"pattern_timeouts"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// HistoryConfig toggles persistence of executor runs
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// EventsConfig toggles job outcome events
type EventsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "tool-sidecar",
			Version:     "1.0.0",
			Environment: "development",
		},
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    6 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Dispatcher: DispatcherConfig{
			QueueURL:        "http://localhost:8787",
			ExecutorURL:     "http://localhost:8000",
			PollInterval:    5 * time.Second,
			BatchSize:       5,
			ControlTimeout:  10 * time.Second,
			ExecuteTimeout:  300 * time.Second,
			HealthTimeout:   5 * time.Second,
			MinBackoff:      1 * time.Second,
			MaxBackoff:      30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Tool: ToolConfig{
			Mode: ToolModeAuto,
		},
		Analysis: AnalysisConfig{
			TranscriptURL:      "http://localhost:8900",
			TranscriptLanguage: "en",
			TranscriptTimeout:  60 * time.Second,
			FetchTimeout:       30 * time.Second,
			MaxContentBytes:    5 << 20,
			MinContentLength:   100,
			UserAgent:          "tool-sidecar/1.0",
			PatternCommand:     "fabric",
			PatternArgs:        []string{"--pattern", "{pattern}"},
			Patterns: map[string][]string{
				AnalysisQuick:    {"summarize"},
				AnalysisStandard: {"summarize", "extract_wisdom"},
				AnalysisDeep:     {"summarize", "extract_wisdom", "extract_insights", "analyze_claims"},
			},
			PatternTimeouts: map[string]time.Duration{
				AnalysisQuick:    30 * time.Second,
				AnalysisStandard: 90 * time.Second,
				AnalysisDeep:     180 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		RabbitMQ: RabbitMQConfig{
			Host:  "localhost",
			Port:  5672,
			VHost: "/",
			Exchange: ExchangeConfig{
				Name:    "job_events",
				Type:    "topic",
				Durable: true,
			},
			RoutingKey: "job.outcome",
			Connection: ConnectionConfig{
				RetryAttempts: 3,
				RetryInterval: 2 * time.Second,
				Heartbeat:     10 * time.Second,
			},
			Publish: PublishConfig{
				RetryAttempts:     3,
				RetryInterval:     100 * time.Millisecond,
				BackoffMultiplier: 2,
			},
		},
	}
}

// Load reads the configuration file at configPath on top of the defaults and
// then applies environment overrides. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overrides settings from the environment variable names the
// sidecar has always honored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("WORKERS_URL", &c.Dispatcher.QueueURL)
	str("TOOL_API_URL", &c.Dispatcher.ExecutorURL)
	str("ENVIRONMENT", &c.App.Environment)
	str("TOOL_MODE", &c.Tool.Mode)
	str("TRANSCRIPT_SERVICE_URL", &c.Analysis.TranscriptURL)
	str("PATTERN_COMMAND", &c.Analysis.PatternCommand)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("POLL_INTERVAL"); ok && v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		c.Dispatcher.PollInterval = time.Duration(secs) * time.Second
	}

	if v, ok := lookup("API_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	return nil
}

// ValidateExecutorConfig checks the settings used by the executor service
func (c *Config) ValidateExecutorConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	switch c.Tool.Mode {
	case ToolModeGeneric, ToolModeYouTubeAnalyzer, ToolModeContentAnalyzer, ToolModeAuto:
	default:
		return fmt.Errorf("invalid tool mode: %q", c.Tool.Mode)
	}

	if c.Tool.Mode != ToolModeGeneric {
		if err := c.validateAnalysis(); err != nil {
			return err
		}
	}

	if c.History.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required when history is enabled")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required when history is enabled")
		}
	}

	return nil
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis

	if a.PatternCommand == "" {
		return fmt.Errorf("analysis pattern_command is required")
	}
	if a.MinContentLength <= 0 {
		return fmt.Errorf("analysis min_content_length must be greater than 0")
	}
	if a.FetchTimeout <= 0 || a.TranscriptTimeout <= 0 {
		return fmt.Errorf("analysis fetch_timeout and transcript_timeout must be greater than 0")
	}

	for mode := range a.Patterns {
		if !isAnalysisMode(mode) {
			return fmt.Errorf("analysis patterns: unknown mode %q", mode)
		}
	}
	for mode, timeout := range a.PatternTimeouts {
		if !isAnalysisMode(mode) {
			return fmt.Errorf("analysis pattern_timeouts: unknown mode %q", mode)
		}
		if timeout <= 0 {
			return fmt.Errorf("analysis pattern_timeouts[%s] must be greater than 0", mode)
		}
	}

	if c.Tool.Mode != ToolModeContentAnalyzer {
		if _, err := parseHTTPURL(a.TranscriptURL); err != nil {
			return fmt.Errorf("invalid analysis transcript_url: %w", err)
		}
	}

	return nil
}

// ValidateDispatcherConfig checks the settings used by the dispatcher service
func (c *Config) ValidateDispatcherConfig() error {
	d := c.Dispatcher

	if _, err := parseHTTPURL(d.QueueURL); err != nil {
		return fmt.Errorf("invalid dispatcher queue_url: %w", err)
	}
	if _, err := parseHTTPURL(d.ExecutorURL); err != nil {
		return fmt.Errorf("invalid dispatcher executor_url: %w", err)
	}

	if d.PollInterval <= 0 {
		return fmt.Errorf("dispatcher poll_interval must be greater than 0")
	}
	if d.BatchSize <= 0 {
		return fmt.Errorf("dispatcher batch_size must be greater than 0")
	}
	if d.ControlTimeout <= 0 || d.ExecuteTimeout <= 0 || d.HealthTimeout <= 0 {
		return fmt.Errorf("dispatcher timeouts must be greater than 0")
	}
	if d.MinBackoff <= 0 {
		return fmt.Errorf("dispatcher min_backoff must be greater than 0")
	}
	if d.MaxBackoff < d.MinBackoff {
		return fmt.Errorf("dispatcher max_backoff (%s) must not be less than min_backoff (%s)", d.MaxBackoff, d.MinBackoff)
	}

	if c.Events.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required when events are enabled")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required when events are enabled")
		}
	}

	return nil
}

// Warnings reports settings that are valid but risky.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.App.Environment == "production" {
		if u, err := url.Parse(c.Dispatcher.QueueURL); err == nil && u.Scheme != "https" {
			warnings = append(warnings, "queue_url is not https; webhook secrets are sent in plaintext")
		}
	}

	return warnings
}

func isAnalysisMode(mode string) bool {
	switch mode {
	case AnalysisQuick, AnalysisStandard, AnalysisDeep:
		return true
	}
	return false
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	return u, nil
}
