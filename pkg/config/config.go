package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"storysnap/pkg/instagram"
)

// Config holds all configuration options for a capture run.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	// Which story to capture and how many slides at most
	Story StoryConfig `yaml:"story" json:"story"`

	// Browser driver and profile
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Per-slide capture protocol tunables
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// Login detection and waiting
	Session SessionConfig `yaml:"session" json:"session"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Gallery index and server
	Gallery GalleryConfig `yaml:"gallery" json:"gallery"`

	// Event publishing
	Events EventsConfig `yaml:"events" json:"events"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoryConfig selects the story surface to traverse
type StoryConfig struct {
	Username   string `yaml:"username" json:"username" env:"STORYSNAP_USERNAME"`
	URL        string `yaml:"url" json:"url" env:"STORYSNAP_STORY_URL"`
	BaseURL    string `yaml:"base_url" json:"base_url" env:"STORYSNAP_BASE_URL"`
	MaxStories int    `yaml:"max_stories" json:"max_stories" env:"STORYSNAP_MAX_STORIES"`
}

// BrowserConfig holds browser driver configuration
type BrowserConfig struct {
	Driver            string        `yaml:"driver" json:"driver" env:"STORYSNAP_BROWSER_DRIVER"`
	ProfileDir        string        `yaml:"profile_dir" json:"profile_dir" env:"STORYSNAP_PROFILE_DIR"`
	Headless          bool          `yaml:"headless" json:"headless" env:"STORYSNAP_HEADLESS"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width" env:"STORYSNAP_VIEWPORT_WIDTH"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height" env:"STORYSNAP_VIEWPORT_HEIGHT"`
	Args              []string      `yaml:"args" json:"args" env:"STORYSNAP_BROWSER_ARGS" envSeparator:","`
	Stealth           bool          `yaml:"stealth" json:"stealth" env:"STORYSNAP_STEALTH"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"STORYSNAP_NAVIGATION_TIMEOUT"`
	NavigationRetries int           `yaml:"navigation_retries" json:"navigation_retries" env:"STORYSNAP_NAVIGATION_RETRIES"`
	KeepOpen          time.Duration `yaml:"keep_open" json:"keep_open" env:"STORYSNAP_KEEP_OPEN"`
}

// CaptureConfig holds the timing and geometry constants of the capture protocol
type CaptureConfig struct {
	MinElementSize      float64       `yaml:"min_element_size" json:"min_element_size"`
	ReadyPollAttempts   int           `yaml:"ready_poll_attempts" json:"ready_poll_attempts"`
	ReadyPollInterval   time.Duration `yaml:"ready_poll_interval" json:"ready_poll_interval"`
	SeekSettle          time.Duration `yaml:"seek_settle" json:"seek_settle"`
	ClipWidth           int           `yaml:"clip_width" json:"clip_width"`
	ClipMargin          int           `yaml:"clip_margin" json:"clip_margin"`
	BrightnessThreshold float64       `yaml:"brightness_threshold" json:"brightness_threshold" env:"STORYSNAP_BRIGHTNESS_THRESHOLD"`
	MinFileSize         int64         `yaml:"min_file_size" json:"min_file_size"`
	InterstitialSettle  time.Duration `yaml:"interstitial_settle" json:"interstitial_settle"`
	AdvanceSettle       time.Duration `yaml:"advance_settle" json:"advance_settle"`
	MaxInterstitials    int           `yaml:"max_interstitials" json:"max_interstitials" env:"STORYSNAP_MAX_INTERSTITIALS"`
}

// SessionConfig holds login handling configuration
type SessionConfig struct {
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout" env:"STORYSNAP_LOGIN_TIMEOUT"`
	LoginSettle  time.Duration `yaml:"login_settle" json:"login_settle"`
	HomeSettle   time.Duration `yaml:"home_settle" json:"home_settle"`
	StorySettle  time.Duration `yaml:"story_settle" json:"story_settle"`
	CookieVault  bool          `yaml:"cookie_vault" json:"cookie_vault" env:"STORYSNAP_COOKIE_VAULT"`
	Account      string        `yaml:"account" json:"account" env:"STORYSNAP_ACCOUNT"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory" env:"STORYSNAP_OUTPUT_DIR"`
	DateLayout    string `yaml:"date_layout" json:"date_layout"`
}

// GalleryConfig holds gallery index and server configuration
type GalleryConfig struct {
	Root       string `yaml:"root" json:"root" env:"STORYSNAP_GALLERY_ROOT"`
	IndexFile  string `yaml:"index_file" json:"index_file" env:"STORYSNAP_GALLERY_INDEX"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" env:"STORYSNAP_LISTEN_ADDR"`
}

// EventsConfig holds event publishing configuration
type EventsConfig struct {
	NATSURL string `yaml:"nats_url" json:"nats_url" env:"STORYSNAP_NATS_URL"`
	Subject string `yaml:"subject" json:"subject" env:"STORYSNAP_NATS_SUBJECT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" env:"STORYSNAP_LOG_LEVEL"`
	File  string `yaml:"file" json:"file" env:"STORYSNAP_LOG_FILE"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Story: StoryConfig{
			BaseURL:    instagram.BaseURL,
			MaxStories: 50,
		},
		Browser: BrowserConfig{
			Driver:            "playwright",
			ProfileDir:        "./chrome_profile",
			Headless:          false,
			ViewportWidth:     1280,
			ViewportHeight:    900,
			Args:              []string{"--start-maximized"},
			Stealth:           true,
			NavigationTimeout: 60 * time.Second,
			NavigationRetries: 3,
			KeepOpen:          5 * time.Second,
		},
		Capture: CaptureConfig{
			MinElementSize:      150,
			ReadyPollAttempts:   20,
			ReadyPollInterval:   500 * time.Millisecond,
			SeekSettle:          600 * time.Millisecond,
			ClipWidth:           390,
			ClipMargin:          80,
			BrightnessThreshold: 20,
			MinFileSize:         50_000,
			InterstitialSettle:  3 * time.Second,
			AdvanceSettle:       2 * time.Second,
			MaxInterstitials:    10,
		},
		Session: SessionConfig{
			LoginTimeout: 180 * time.Second,
			LoginSettle:  2 * time.Second,
			HomeSettle:   2 * time.Second,
			StorySettle:  3 * time.Second,
			CookieVault:  true,
			Account:      "default",
		},
		Output: OutputConfig{
			BaseDirectory: "./pics",
			DateLayout:    "2006-01-02",
		},
		Gallery: GalleryConfig{
			Root:       ".",
			IndexFile:  "gallery-data.json",
			ListenAddr: ":8080",
		},
		Events: EventsConfig{
			Subject: "storysnap.slides",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv overlays STORYSNAP_* environment variables onto the configuration.
// Unset variables leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
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
		".storysnap.yaml",
		".storysnap.yml",
		"storysnap.yaml",
		filepath.Join(home, ".config", "storysnap", "config.yaml"),
		filepath.Join(home, ".config", "storysnap", "config.yml"),
		filepath.Join(home, ".storysnap.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// StoryURL returns the story surface to open, either the explicit override or the
// per-user story route under BaseURL.
func (c *Config) StoryURL() string {
	if c.Story.URL != "" {
		return c.Story.URL
	}
	return instagram.StoryURL(c.Story.BaseURL, c.Story.Username)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Story.MaxStories <= 0 {
		errs = append(errs, errors.New("max stories must be positive"))
	}
	if c.Story.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}

	validDrivers := map[string]bool{"playwright": true, "rod": true}
	if !validDrivers[strings.ToLower(c.Browser.Driver)] {
		errs = append(errs, fmt.Errorf("invalid browser driver %q (playwright, rod)", c.Browser.Driver))
	}
	if c.Browser.ProfileDir == "" {
		errs = append(errs, errors.New("browser profile directory is required"))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport dimensions must be positive"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.NavigationRetries < 1 {
		errs = append(errs, errors.New("navigation retries must be at least 1"))
	}

	if c.Capture.MinElementSize < 0 {
		errs = append(errs, errors.New("minimum element size cannot be negative"))
	}
	if c.Capture.ReadyPollAttempts <= 0 {
		errs = append(errs, errors.New("ready poll attempts must be positive"))
	}
	if c.Capture.ClipWidth <= 0 {
		errs = append(errs, errors.New("clip width must be positive"))
	}
	if c.Capture.BrightnessThreshold < 0 || c.Capture.BrightnessThreshold > 255 {
		errs = append(errs, errors.New("brightness threshold must be within 0-255"))
	}
	if c.Capture.MaxInterstitials <= 0 {
		errs = append(errs, errors.New("max interstitials must be positive"))
	}

	if c.Session.LoginTimeout <= 0 {
		errs = append(errs, errors.New("login timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.DateLayout == "" {
		errs = append(errs, errors.New("date layout is required"))
	}

	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		errs = append(errs, errors.New("events subject is required when a NATS URL is set"))
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Story.Username = username
	}
	if storyURL, ok := flags["story-url"].(string); ok && storyURL != "" {
		c.Story.URL = storyURL
	}
	if maxStories, ok := flags["max-stories"].(int); ok && maxStories > 0 {
		c.Story.MaxStories = maxStories
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if driver, ok := flags["driver"].(string); ok && driver != "" {
		c.Browser.Driver = driver
	}
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.Browser.ProfileDir = profile
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if natsURL, ok := flags["nats-url"].(string); ok && natsURL != "" {
		c.Events.NATSURL = natsURL
	}
	if addr, ok := flags["listen"].(string); ok && addr != "" {
		c.Gallery.ListenAddr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storysnap.env"))

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
