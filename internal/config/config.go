package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "Europe/Zagreb"
	configPathEnv    = "COURTMONITOR_CONFIG"
	databaseDriver   = "DATABASE_DRIVER"
	databaseDSNEnv   = "DATABASE_DSN"
	googleAPIKeyEnv  = "GOOGLE_API_KEY"
	geminiModelEnv   = "GEMINI_MODEL"
	sendgridKeyEnv   = "SENDGRID_API_KEY"
	mailFromEnv      = "MAIL_FROM"
	publicBaseURLEnv = "PUBLIC_BASE_URL"
	portEnv          = "PORT"
	logLevelEnv      = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Queue         QueueConfig        `yaml:"queue"`
	RateLimit     RateLimitConfig    `yaml:"rateLimit"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Search        SearchConfig       `yaml:"search"`
	Extraction    ExtractionConfig   `yaml:"extraction"`
	Render        RenderConfig       `yaml:"render"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	TrustedProxies []string      `yaml:"trustedProxies"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	DefaultCases   int           `yaml:"defaultCases"`
	MaxCases       int           `yaml:"maxCases"`
	ShutdownGrace  time.Duration `yaml:"shutdownGrace"`
}

// QueueConfig bounds concurrent analysis runs.
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WindowConfig is one token bucket: Max tokens refilled over Period.
type WindowConfig struct {
	Max    int           `yaml:"max"`
	Period time.Duration `yaml:"period"`
}

// RateLimitConfig configures per-client admission.
type RateLimitConfig struct {
	Burst      WindowConfig `yaml:"burst"`
	Sustained  WindowConfig `yaml:"sustained"`
	MaxClients int          `yaml:"maxClients"`
}

// PipelineConfig tunes download, expansion and analysis.
type PipelineConfig struct {
	TempDir              string        `yaml:"tempDir"`
	DownloadTimeout      time.Duration `yaml:"downloadTimeout"`
	DownloadsPerSecond   float64       `yaml:"downloadsPerSecond"`
	MaxPromptChars       int           `yaml:"maxPromptChars"`
	Locale               string        `yaml:"locale"`
	MaxParallelDocuments int           `yaml:"maxParallelDocuments"`
	MaxArchiveEntryBytes int64         `yaml:"maxArchiveEntryBytes"`
	UserAgent            string        `yaml:"userAgent"`
}

// SearchConfig describes the public record source.
type SearchConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"baseUrl"`
	SearchPath        string        `yaml:"searchPath"`
	QueryParam        string        `yaml:"queryParam"`
	UserAgent         string        `yaml:"userAgent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// ExtractionConfig defines how to contact the Gemini API.
type ExtractionConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// RenderConfig configures PDF page rasterisation for scanned documents.
type RenderConfig struct {
	Binary   string `yaml:"binary"`
	DPI      int    `yaml:"dpi"`
	MaxPages int    `yaml:"maxPages"`
}

// DatabaseConfig describes the subscription store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound email.
type NotificationConfig struct {
	SendGrid      SendGridConfig `yaml:"sendgrid"`
	From          string         `yaml:"from"`
	FromName      string         `yaml:"fromName"`
	PublicBaseURL string         `yaml:"publicBaseUrl"`
}

// SendGridConfig wires all data required to send mail.
type SendGridConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SchedulerConfig defines when subscriptions are re-checked.
type SchedulerConfig struct {
	Interval   time.Duration  `yaml:"interval"`
	Timezone   string         `yaml:"timezone"`
	RunOnStart bool           `yaml:"runOnStart"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	set := func(env string, target *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*target = v
		}
	}

	set(databaseDriver, &c.Database.Driver)
	set(databaseDSNEnv, &c.Database.DSN)
	set(googleAPIKeyEnv, &c.Extraction.APIKey)
	set(geminiModelEnv, &c.Extraction.Model)
	set(sendgridKeyEnv, &c.Notifications.SendGrid.APIKey)
	set(mailFromEnv, &c.Notifications.From)
	set(publicBaseURLEnv, &c.Notifications.PublicBaseURL)
	set(logLevelEnv, &c.Logging.Level)

	if v := strings.TrimSpace(os.Getenv(portEnv)); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
}

// normalize restores defaults for values a file zeroed out.
func (c *Config) normalize() {
	d := defaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.DefaultCases <= 0 {
		c.Server.DefaultCases = d.Server.DefaultCases
	}
	if c.Server.MaxCases < c.Server.DefaultCases {
		c.Server.MaxCases = c.Server.DefaultCases
	}
	if c.Queue.Concurrency < 1 {
		c.Queue.Concurrency = d.Queue.Concurrency
	}
	if c.Pipeline.TempDir == "" {
		c.Pipeline.TempDir = d.Pipeline.TempDir
	}
	if c.Search.Provider == "" {
		c.Search.Provider = d.Search.Provider
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
	c.Notifications.PublicBaseURL = strings.TrimRight(c.Notifications.PublicBaseURL, "/")
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Addr:          ":3001",
			Heartbeat:     15 * time.Second,
			DefaultCases:  2,
			MaxCases:      5,
			ShutdownGrace: 30 * time.Second,
		},
		Queue: QueueConfig{Concurrency: 1},
		RateLimit: RateLimitConfig{
			Burst:      WindowConfig{Max: 5, Period: 5 * time.Second},
			Sustained:  WindowConfig{Max: 1000, Period: time.Hour},
			MaxClients: 10000,
		},
		Pipeline: PipelineConfig{
			TempDir:              "uploads",
			DownloadTimeout:      60 * time.Second,
			MaxPromptChars:       25000,
			Locale:               "hr",
			MaxArchiveEntryBytes: 100 << 20,
			UserAgent:            "CourtMonitor/1.0",
		},
		Search: SearchConfig{
			Provider:          "eoglasna",
			BaseURL:           "https://e-oglasna.pravosudje.hr",
			SearchPath:        "/pretraga",
			QueryParam:        "text",
			UserAgent:         "Mozilla/5.0 (compatible; CourtMonitor/1.0)",
			Timeout:           90 * time.Second,
			RequestsPerSecond: 1,
		},
		Extraction: ExtractionConfig{
			Endpoint:          "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent",
			Model:             "gemini-2.0-flash",
			Timeout:           120 * time.Second,
			RequestsPerMinute: 60,
		},
		Render: RenderConfig{Binary: "pdftoppm", DPI: 150, MaxPages: 20},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:courtmonitor.db",
		},
		Notifications: NotificationConfig{
			SendGrid: SendGridConfig{
				Endpoint: "https://api.sendgrid.com/v3/mail/send",
				Timeout:  20 * time.Second,
			},
			FromName: "Court Monitor",
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
	}
}
