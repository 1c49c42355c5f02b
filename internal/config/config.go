package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"bulk_sender/internal/pacing"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Browser BrowserConfig `yaml:"browser"`
	Driver  DriverConfig  `yaml:"driver"`
	Limits  LimitsConfig  `yaml:"limits"`
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type BrowserConfig struct {
	URL         string `yaml:"url"`
	Headless    bool   `yaml:"headless"`
	Bin         string `yaml:"bin"`
	UserDataDir string `yaml:"userDataDir"`
	Stealth     bool   `yaml:"stealth"`
	UserAgent   string `yaml:"userAgent"`
	// ReadyTimeoutMs bounds the wait for the chat list or the login QR code after navigation.
	ReadyTimeoutMs int `yaml:"readyTimeoutMs"`
	SendTimeoutMs  int `yaml:"sendTimeoutMs"`
}

func (c BrowserConfig) ReadyTimeout() time.Duration {
	if c.ReadyTimeoutMs <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.ReadyTimeoutMs) * time.Millisecond
}

func (c BrowserConfig) SendTimeout() time.Duration {
	if c.SendTimeoutMs <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// DriverConfig holds the settle delays between simulated UI actions.
type DriverConfig struct {
	SearchClickMs   int `yaml:"searchClickMs"`
	FocusMs         int `yaml:"focusMs"`
	SearchTypeMs    int `yaml:"searchTypeMs"`
	SearchEnterMs   int `yaml:"searchEnterMs"`
	OpenChatMs      int `yaml:"openChatMs"`
	MessageTypeMs   int `yaml:"messageTypeMs"`
	SendClickMs     int `yaml:"sendClickMs"`
	LookupTimeoutMs int `yaml:"lookupTimeoutMs"`
	// SettleScale multiplies every settle delay; 0 < scale <= 1 makes the driver faster.
	SettleScale float64 `yaml:"settleScale"`
}

type LimitsConfig struct {
	// MaxPerMinute caps sends per minute on top of the pacing delay. 0 disables the cap.
	MaxPerMinute float64 `yaml:"maxPerMinute"`
	Burst        int     `yaml:"burst"`
}

type EngineConfig struct {
	FailureDelayMs         int `yaml:"failureDelayMs"`
	HousekeepingIntervalMs int `yaml:"housekeepingIntervalMs"`
}

func (c EngineConfig) FailureDelay() time.Duration {
	if c.FailureDelayMs <= 0 {
		return pacing.FailureDelay
	}
	return time.Duration(c.FailureDelayMs) * time.Millisecond
}

func (c EngineConfig) HousekeepingInterval() time.Duration {
	if c.HousekeepingIntervalMs <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.HousekeepingIntervalMs) * time.Millisecond
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ServiceName string `yaml:"serviceName"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"maxSizeMB"`
	MaxBackups  int    `yaml:"maxBackups"`
	MaxAgeDays  int    `yaml:"maxAgeDays"`
	Compress    bool   `yaml:"compress"`
	BusCapacity int    `yaml:"busCapacity"`
}

type NotifyConfig struct {
	WebhookURL       string `yaml:"webhookURL"`
	WebhookTimeoutMs int    `yaml:"webhookTimeoutMs"`
}

func (c NotifyConfig) WebhookTimeout() time.Duration {
	if c.WebhookTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WebhookTimeoutMs) * time.Millisecond
}

// Load reads path. A missing file yields the defaults so the binary runs without any config.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.expandPaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("BULK_SENDER_ADDR"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("BULK_SENDER_URL"); ok && strings.TrimSpace(v) != "" {
		c.Browser.URL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("BULK_SENDER_HEADLESS"); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		c.Browser.Headless = !(v == "0" || v == "false" || v == "no" || v == "off")
	}
	if v, ok := os.LookupEnv("BULK_SENDER_WEBHOOK_URL"); ok {
		c.Notify.WebhookURL = strings.TrimSpace(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "./data/bulk_sender.db"
	}
	if c.Browser.URL == "" {
		c.Browser.URL = "https://web.whatsapp.com"
	}
	if c.Browser.UserDataDir == "" {
		c.Browser.UserDataDir = "./data/browser"
	}
	if c.Driver.SearchClickMs <= 0 {
		c.Driver.SearchClickMs = 1000
	}
	if c.Driver.FocusMs <= 0 {
		c.Driver.FocusMs = 500
	}
	if c.Driver.SearchTypeMs <= 0 {
		c.Driver.SearchTypeMs = 2000
	}
	if c.Driver.SearchEnterMs <= 0 {
		c.Driver.SearchEnterMs = 2000
	}
	if c.Driver.OpenChatMs <= 0 {
		c.Driver.OpenChatMs = 1500
	}
	if c.Driver.MessageTypeMs <= 0 {
		c.Driver.MessageTypeMs = 1000
	}
	if c.Driver.SendClickMs <= 0 {
		c.Driver.SendClickMs = 1500
	}
	if c.Driver.LookupTimeoutMs <= 0 {
		c.Driver.LookupTimeoutMs = 800
	}
	if c.Driver.SettleScale <= 0 || c.Driver.SettleScale > 1 {
		c.Driver.SettleScale = 1
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.ServiceName == "" {
		c.Log.ServiceName = "bulk-sender"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Log.BusCapacity <= 0 {
		c.Log.BusCapacity = 200
	}
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Storage.SQLitePath, &c.Browser.UserDataDir, &c.Log.File} {
		if *p == "" {
			continue
		}
		v, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if !strings.HasPrefix(c.Browser.URL, "http://") && !strings.HasPrefix(c.Browser.URL, "https://") {
		return errors.New("browser.url must be an http(s) URL")
	}
	if c.Limits.MaxPerMinute < 0 {
		return errors.New("limits.maxPerMinute must be >= 0")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.New("log.format must be console or json")
	}
	return nil
}
