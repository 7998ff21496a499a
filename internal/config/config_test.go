package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"WORKERS_URL", "TOOL_API_URL", "ENVIRONMENT", "TOOL_MODE", "TRANSCRIPT_SERVICE_URL",
	"PATTERN_COMMAND", "LOG_LEVEL", "LOG_FORMAT", "POLL_INTERVAL", "API_PORT",
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
		},
		{
			name:     "no file uses defaults",
			filePath: "",
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "http://queue.internal:8787", cfg.Dispatcher.QueueURL)
	assert.Equal(t, 3*time.Second, cfg.Dispatcher.PollInterval)
	assert.Equal(t, ToolModeContentAnalyzer, cfg.Tool.Mode)
	assert.Equal(t, "/usr/local/bin/fabric", cfg.Analysis.PatternCommand)
	assert.True(t, cfg.History.Enabled)

	// Overridden key replaced, the rest of the map survives
	assert.Equal(t, []string{"summarize", "extract_wisdom", "rate_content"}, cfg.Analysis.Patterns[AnalysisDeep])
	assert.Equal(t, []string{"summarize"}, cfg.Analysis.Patterns[AnalysisQuick])

	// Untouched settings keep their defaults
	assert.Equal(t, 300*time.Second, cfg.Dispatcher.ExecuteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Dispatcher.ControlTimeout)
	assert.Equal(t, 100, cfg.Analysis.MinContentLength)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8787", cfg.Dispatcher.QueueURL)
	assert.Equal(t, "http://localhost:8000", cfg.Dispatcher.ExecutorURL)
	assert.Equal(t, 5*time.Second, cfg.Dispatcher.PollInterval)
	assert.Equal(t, 5, cfg.Dispatcher.BatchSize)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ToolModeAuto, cfg.Tool.Mode)
	assert.Equal(t, time.Second, cfg.Dispatcher.MinBackoff)
	assert.Equal(t, 30*time.Second, cfg.Dispatcher.MaxBackoff)

	require.NoError(t, cfg.ValidateExecutorConfig())
	require.NoError(t, cfg.ValidateDispatcherConfig())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS_URL", "https://queue.example.com")
	t.Setenv("TOOL_API_URL", "http://tool:9000")
	t.Setenv("POLL_INTERVAL", "12")
	t.Setenv("API_PORT", "9000")
	t.Setenv("TOOL_MODE", ToolModeGeneric)
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://queue.example.com", cfg.Dispatcher.QueueURL)
	assert.Equal(t, "http://tool:9000", cfg.Dispatcher.ExecutorURL)
	assert.Equal(t, 12*time.Second, cfg.Dispatcher.PollInterval)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ToolModeGeneric, cfg.Tool.Mode)
	assert.Equal(t, "production", cfg.App.Environment)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key       string
		value     string
		errString string
	}{
		{"POLL_INTERVAL", "fast", "invalid POLL_INTERVAL"},
		{"API_PORT", "eighty", "invalid API_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load("")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateExecutorConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "port too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "port too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "unknown tool mode",
			mutate:    func(c *Config) { c.Tool.Mode = "video-magic" },
			errString: "invalid tool mode",
		},
		{
			name:      "missing pattern command",
			mutate:    func(c *Config) { c.Analysis.PatternCommand = "" },
			errString: "pattern_command is required",
		},
		{
			name: "generic tool ignores analysis settings",
			mutate: func(c *Config) {
				c.Tool.Mode = ToolModeGeneric
				c.Analysis.PatternCommand = ""
			},
		},
		{
			name:      "unknown pattern mode",
			mutate:    func(c *Config) { c.Analysis.Patterns["turbo"] = []string{"summarize"} },
			errString: "unknown mode \"turbo\"",
		},
		{
			name:      "non-positive pattern timeout",
			mutate:    func(c *Config) { c.Analysis.PatternTimeouts[AnalysisDeep] = 0 },
			errString: "pattern_timeouts[deep]",
		},
		{
			name:      "transcript url required for video routes",
			mutate:    func(c *Config) { c.Analysis.TranscriptURL = "localhost:8900" },
			errString: "invalid analysis transcript_url",
		},
		{
			name: "content analyzer does not need a transcript url",
			mutate: func(c *Config) {
				c.Tool.Mode = ToolModeContentAnalyzer
				c.Analysis.TranscriptURL = ""
			},
		},
		{
			name: "history requires database name",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.Database.Database = ""
			},
			errString: "database name is required",
		},
		{
			name: "history requires database host",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.Database.Host = ""
			},
			errString: "database host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.ValidateExecutorConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateDispatcherConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "queue url without scheme",
			mutate:    func(c *Config) { c.Dispatcher.QueueURL = "localhost:8787" },
			errString: "invalid dispatcher queue_url",
		},
		{
			name:      "executor url with unsupported scheme",
			mutate:    func(c *Config) { c.Dispatcher.ExecutorURL = "ftp://tool" },
			errString: "invalid dispatcher executor_url",
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Dispatcher.PollInterval = 0 },
			errString: "poll_interval must be greater than 0",
		},
		{
			name:      "zero batch size",
			mutate:    func(c *Config) { c.Dispatcher.BatchSize = 0 },
			errString: "batch_size must be greater than 0",
		},
		{
			name:      "zero execute timeout",
			mutate:    func(c *Config) { c.Dispatcher.ExecuteTimeout = 0 },
			errString: "timeouts must be greater than 0",
		},
		{
			name: "max backoff below min",
			mutate: func(c *Config) {
				c.Dispatcher.MinBackoff = 10 * time.Second
				c.Dispatcher.MaxBackoff = 5 * time.Second
			},
			errString: "must not be less than min_backoff",
		},
		{
			name: "events require exchange",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.RabbitMQ.Exchange.Name = ""
			},
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "events require rabbitmq host",
			mutate: func(c *Config) {
				c.Events.Enabled = true
				c.RabbitMQ.Host = ""
			},
			errString: "rabbitmq host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.ValidateDispatcherConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	clearEnv(t)

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateExecutorConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with events but no exchange", func(t *testing.T) {
		cfg, err := Load("testdata/events_missing_exchange.yaml")
		require.NoError(t, err)

		err = cfg.ValidateDispatcherConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq exchange name is required")
	})
}

func TestConfig_Warnings(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Warnings())

	cfg.App.Environment = "production"
	assert.Len(t, cfg.Warnings(), 1)

	cfg.Dispatcher.QueueURL = "https://queue.example.com"
	assert.Empty(t, cfg.Warnings())
}
