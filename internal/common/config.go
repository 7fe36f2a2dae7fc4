package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Browser     BrowserConfig `toml:"browser"`
	OTP         OTPConfig     `toml:"otp"`
	Pacing      PacingConfig  `toml:"pacing"`
	Scanner     ScannerConfig `toml:"scanner"`
}

type ServerConfig struct {
	Port   int    `toml:"port"`
	Host   string `toml:"host"`
	APIKey string `toml:"api_key"` // Bearer token required on /api/scan* routes
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// BrowserConfig controls the shared Chrome instance.
type BrowserConfig struct {
	Headless    bool          `toml:"headless"`
	NoSandbox   bool          `toml:"no_sandbox"`
	DisableGPU  bool          `toml:"disable_gpu"`
	UserAgent   string        `toml:"user_agent"`    // Empty selects a rotating agent per startup
	UserDataDir string        `toml:"user_data_dir"` // Optional persistent profile directory
	StartupWait time.Duration `toml:"startup_wait"`  // Timeout for the startup smoke test
}

// OTPConfig controls mailbox polling for one-time passwords.
type OTPConfig struct {
	DefaultIMAPHost string        `toml:"default_imap_host"`
	DefaultIMAPPort int           `toml:"default_imap_port"`
	FromDomain      string        `toml:"from_domain"`
	WaitTimeout     time.Duration `toml:"wait_timeout"`
	PollInterval    time.Duration `toml:"poll_interval"`
	// ManualOTP enables the manual-entry fallback path. Off by default:
	// without a configured mailbox a credential login fails fast at the OTP
	// stage rather than stalling on input that never arrives.
	ManualOTP bool `toml:"manual_otp"`
}

// PacingConfig tunes the randomized human-behavior delay ranges.
type PacingConfig struct {
	// Fast collapses all delays to near zero. Tests and development only.
	Fast           bool          `toml:"fast"`
	InterTargetMin time.Duration `toml:"inter_target_min"` // Delay between targets in a batch
	InterTargetMax time.Duration `toml:"inter_target_max"`
	ScanJitterMin  time.Duration `toml:"scan_jitter_min"` // Periodic scan interval range
	ScanJitterMax  time.Duration `toml:"scan_jitter_max"`
}

// ScannerConfig controls scan orchestration.
type ScannerConfig struct {
	SessionTTLHours int      `toml:"session_ttl_hours"` // TTL stamped on fresh sessions
	SelectorWait    string   `toml:"selector_wait"`     // e.g. "10s" - ready-selector wait
	MinScanGap      string   `toml:"min_scan_gap"`      // e.g. "30s" - per-target rate limit
	Schedule        string   `toml:"schedule"`          // Cron expression for watchlist scans, empty disables
	Watchlist       []string `toml:"watchlist"`         // Target codes scanned on the schedule
}

// SelectorWaitDuration returns the parsed ready-selector wait.
func (c *ScannerConfig) SelectorWaitDuration() time.Duration {
	if d, err := time.ParseDuration(c.SelectorWait); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// MinScanGapDuration returns the parsed per-target scan gap.
func (c *ScannerConfig) MinScanGapDuration() time.Duration {
	if d, err := time.ParseDuration(c.MinScanGap); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/vigil",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Browser: BrowserConfig{
			Headless:    true,
			NoSandbox:   true,
			DisableGPU:  true,
			StartupWait: 30 * time.Second,
		},
		OTP: OTPConfig{
			DefaultIMAPHost: "imap.gmail.com",
			DefaultIMAPPort: 993,
			FromDomain:      "vfsglobal.com",
			WaitTimeout:     60 * time.Second,
			PollInterval:    2 * time.Second,
		},
		Pacing: PacingConfig{
			InterTargetMin: 2 * time.Minute,
			InterTargetMax: 5 * time.Minute,
			ScanJitterMin:  4 * time.Minute,
			ScanJitterMax:  7 * time.Minute,
		},
		Scanner: ScannerConfig{
			SessionTTLHours: 24,
			SelectorWait:    "10s",
			MinScanGap:      "30s",
		},
	}
}

// LoadFromFiles loads configuration with precedence:
// defaults -> file1 -> file2 -> ... -> environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies VIGIL_* environment variables over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("VIGIL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("VIGIL_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("VIGIL_API_KEY"); v != "" {
		config.Server.APIKey = v
	}
	if v := os.Getenv("VIGIL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("VIGIL_DATA_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("VIGIL_HEADLESS"); v != "" {
		config.Browser.Headless = strings.EqualFold(v, "true") || v == "1"
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
