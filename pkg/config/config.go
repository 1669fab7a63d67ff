package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the harvester reads
const EnvPrefix = "POSTHARVEST_"

// Config holds all configuration options for a harvest run
type Config struct {
	// Profile and timeline API being harvested
	Source SourceConfig `yaml:"source" json:"source"`

	// Chrome session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Anti-automation checkpoint detection
	Gatekeeper GatekeeperConfig `yaml:"gatekeeper" json:"gatekeeper"`

	// Pagination and backoff policy
	Paginator PaginatorConfig `yaml:"paginator" json:"paginator"`

	// Corpus and cursor files
	Output OutputConfig `yaml:"output" json:"output"`

	// Authorship classifier backend
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SourceConfig identifies the account whose timeline is harvested
type SourceConfig struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	ProfilePath string `yaml:"profile_path" json:"profile_path"`
	AccountID   string `yaml:"account_id" json:"account_id"`
	Author      string `yaml:"author" json:"author"`
	PageLimit   int    `yaml:"page_limit" json:"page_limit"`
}

// ProfileURL returns the public profile page the gatekeeper navigates to
func (s SourceConfig) ProfileURL() string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.ProfilePath, "/")
}

// BrowserConfig holds Chrome launch options
type BrowserConfig struct {
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`
	Headless    bool   `yaml:"headless" json:"headless"`
	BinPath     string `yaml:"bin_path" json:"bin_path"`
	NoSandbox   bool   `yaml:"no_sandbox" json:"no_sandbox"`
	Stealth     bool   `yaml:"stealth" json:"stealth"`
	// CookieAccount names the stored cookie set to inject before navigation
	CookieAccount string `yaml:"cookie_account" json:"cookie_account"`
}

// GatekeeperConfig controls how long and how often the checkpoint is polled
type GatekeeperConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxWait          time.Duration `yaml:"max_wait" json:"max_wait"`
	ChallengeMarkers []string      `yaml:"challenge_markers" json:"challenge_markers"`
	ReadySelectors   []string      `yaml:"ready_selectors" json:"ready_selectors"`
	IdentityMarker   string        `yaml:"identity_marker" json:"identity_marker"`
}

// PaginatorConfig holds the active pagination and backoff policy
type PaginatorConfig struct {
	Target            int           `yaml:"target" json:"target"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	BackoffFloor      time.Duration `yaml:"backoff_floor" json:"backoff_floor"`
	BackoffCeiling    time.Duration `yaml:"backoff_ceiling" json:"backoff_ceiling"`
	ErrorSleep        time.Duration `yaml:"error_sleep" json:"error_sleep"`
	ErrorThreshold    int           `yaml:"error_threshold" json:"error_threshold"`
	Cooldown          time.Duration `yaml:"cooldown" json:"cooldown"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`
	JitterMin         time.Duration `yaml:"jitter_min" json:"jitter_min"`
	JitterMax         time.Duration `yaml:"jitter_max" json:"jitter_max"`
	MinInterval       time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxDegradedCycles int           `yaml:"max_degraded_cycles" json:"max_degraded_cycles"`
	HandoffDelay      time.Duration `yaml:"handoff_delay" json:"handoff_delay"`
}

// OutputConfig holds the corpus and cursor file locations
type OutputConfig struct {
	ProgressFile string `yaml:"progress_file" json:"progress_file"`
	CursorFile   string `yaml:"cursor_file" json:"cursor_file"`
}

// ClassifierConfig holds the inference backend settings
type ClassifierConfig struct {
	Endpoint   string        `yaml:"endpoint" json:"endpoint"`
	Model      string        `yaml:"model" json:"model"`
	APIToken   string        `yaml:"api_token" json:"api_token"`
	MaxLength  int           `yaml:"max_length" json:"max_length"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnDegraded bool `yaml:"on_degraded" json:"on_degraded"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the harvester's standard policy
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:     "https://truthsocial.com",
			ProfilePath: "@realDonaldTrump",
			AccountID:   "107780257626128497",
			Author:      "Trump",
			PageLimit:   40,
		},
		Browser: BrowserConfig{
			UserDataDir: "user_data",
			Headless:    false,
			NoSandbox:   true,
			Stealth:     false,
		},
		Gatekeeper: GatekeeperConfig{
			PollInterval:     2 * time.Second,
			MaxWait:          10 * time.Minute,
			ChallengeMarkers: []string{"Just a moment", "Nur einen Moment", "Cloudflare"},
			ReadySelectors:   []string{`div[role="feed"]`, "article", `div[data-testid="header"]`},
			IdentityMarker:   "Trump",
		},
		Paginator: PaginatorConfig{
			Target:            10000,
			InitialBackoff:    10 * time.Second,
			BackoffFloor:      5 * time.Second,
			BackoffCeiling:    60 * time.Second,
			ErrorSleep:        5 * time.Second,
			ErrorThreshold:    5,
			Cooldown:          30 * time.Second,
			SettleDelay:       10 * time.Second,
			JitterMin:         1 * time.Second,
			JitterMax:         2 * time.Second,
			MinInterval:       1 * time.Second,
			MaxDegradedCycles: 0, // 0 means retry forever
		},
		Output: OutputConfig{
			ProgressFile: "trump_truths_progress.csv",
			CursorFile:   "last_id.txt",
		},
		Classifier: ClassifierConfig{
			Endpoint:   "https://api-inference.huggingface.co/models",
			Model:      "dxxrk/BERTweet-tuned-ElonTrumpPrediction",
			MaxLength:  128,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnDegraded: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Source.AccountID, "ACCOUNT_ID")
	setString(&c.Source.Author, "AUTHOR")
	setString(&c.Source.BaseURL, "BASE_URL")
	setString(&c.Source.ProfilePath, "PROFILE_PATH")
	setString(&c.Browser.UserDataDir, "USER_DATA_DIR")
	setString(&c.Browser.BinPath, "BROWSER_BIN")
	setString(&c.Browser.CookieAccount, "COOKIE_ACCOUNT")
	setString(&c.Output.ProgressFile, "PROGRESS_FILE")
	setString(&c.Output.CursorFile, "CURSOR_FILE")
	setString(&c.Classifier.Endpoint, "CLASSIFIER_ENDPOINT")
	setString(&c.Classifier.Model, "CLASSIFIER_MODEL")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.File, "LOG_FILE")

	// The token keeps the variable name used by the training scripts
	if token := os.Getenv("HUGGINGFACE_API"); token != "" {
		c.Classifier.APIToken = token
	}

	if v := os.Getenv(EnvPrefix + "HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(EnvPrefix + "TARGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTARGET: %w", EnvPrefix, err))
		} else {
			c.Paginator.Target = n
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_WAIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_WAIT: %w", EnvPrefix, err))
		} else {
			c.Gatekeeper.MaxWait = d
		}
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".postharvest.yaml",
		".postharvest.yml",
		filepath.Join(home, ".config", "postharvest", "config.yaml"),
		filepath.Join(home, ".config", "postharvest", "config.yml"),
		filepath.Join(home, ".postharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.Source.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid source base URL: %w", err))
	}
	if c.Source.AccountID == "" {
		errs = append(errs, errors.New("source account ID is required"))
	}
	if c.Source.Author == "" {
		errs = append(errs, errors.New("author label is required"))
	}
	if strings.ContainsAny(c.Source.Author, ",\n\r") {
		errs = append(errs, errors.New("author label must not contain commas or line breaks"))
	}
	if c.Source.PageLimit <= 0 {
		errs = append(errs, errors.New("page limit must be positive"))
	}

	if c.Gatekeeper.PollInterval <= 0 {
		errs = append(errs, errors.New("gatekeeper poll interval must be positive"))
	}
	if c.Gatekeeper.MaxWait < c.Gatekeeper.PollInterval {
		errs = append(errs, errors.New("gatekeeper max wait must be at least one poll interval"))
	}

	p := c.Paginator
	if p.Target <= 0 {
		errs = append(errs, errors.New("target post count must be positive"))
	}
	if p.BackoffFloor <= 0 || p.InitialBackoff <= 0 {
		errs = append(errs, errors.New("backoff delays must be positive"))
	}
	if p.BackoffCeiling < p.InitialBackoff || p.BackoffCeiling < p.BackoffFloor {
		errs = append(errs, errors.New("backoff ceiling must not be below the initial delay or floor"))
	}
	if p.ErrorThreshold < 0 {
		errs = append(errs, errors.New("error threshold cannot be negative"))
	}
	if p.JitterMax < p.JitterMin || p.JitterMin < 0 {
		errs = append(errs, errors.New("jitter range is invalid"))
	}
	if p.MaxDegradedCycles < 0 {
		errs = append(errs, errors.New("max degraded cycles cannot be negative"))
	}

	if c.Output.ProgressFile == "" {
		errs = append(errs, errors.New("progress file is required"))
	}
	if c.Output.CursorFile == "" {
		errs = append(errs, errors.New("cursor file is required"))
	}

	if c.Classifier.MaxLength <= 0 {
		errs = append(errs, errors.New("classifier max length must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges cobra flag values into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["account-id"].(string); ok && v != "" {
		c.Source.AccountID = v
	}
	if v, ok := flags["author"].(string); ok && v != "" {
		c.Source.Author = v
	}
	if v, ok := flags["profile"].(string); ok && v != "" {
		c.Source.ProfilePath = v
	}
	if v, ok := flags["target"].(int); ok && v > 0 {
		c.Paginator.Target = v
	}
	if v, ok := flags["max-degraded-cycles"].(int); ok && v >= 0 {
		c.Paginator.MaxDegradedCycles = v
	}
	if v, ok := flags["handoff-delay"].(time.Duration); ok && v >= 0 {
		c.Paginator.HandoffDelay = v
	}
	if v, ok := flags["max-wait"].(time.Duration); ok && v > 0 {
		c.Gatekeeper.MaxWait = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["stealth"].(bool); ok {
		c.Browser.Stealth = v
	}
	if v, ok := flags["user-data-dir"].(string); ok && v != "" {
		c.Browser.UserDataDir = v
	}
	if v, ok := flags["cookie-account"].(string); ok && v != "" {
		c.Browser.CookieAccount = v
	}
	if v, ok := flags["progress-file"].(string); ok && v != "" {
		c.Output.ProgressFile = v
	}
	if v, ok := flags["cursor-file"].(string); ok && v != "" {
		c.Output.CursorFile = v
	}
	if v, ok := flags["model"].(string); ok && v != "" {
		c.Classifier.Model = v
	}
	if v, ok := flags["endpoint"].(string); ok && v != "" {
		c.Classifier.Endpoint = v
	}
	if v, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
