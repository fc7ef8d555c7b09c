package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Armin-kho/currencyhub/internal/quotes"
	"github.com/Armin-kho/currencyhub/internal/sources"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type StoreConfig struct {
	Driver        string `json:"driver,omitempty"`
	Path          string `json:"path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty"`
}

type TelegramConfig struct {
	BotToken     string  `json:"bot_token,omitempty"`
	AlertChatIDs []int64 `json:"alert_chat_ids,omitempty"`
}

type Config struct {
	Listen   string          `json:"listen"`
	DataDir  string          `json:"data_dir"`
	Currency quotes.Currency `json:"currency"`

	FreshnessWindowSec int `json:"freshness_window_sec,omitempty"`
	FetchTimeoutSec    int `json:"fetch_timeout_sec,omitempty"`
	// Zero refuses redirects; nil means default.
	MaxRedirects *int `json:"max_redirects,omitempty"`
	// Zero disables the periodic refresh; nil means default.
	RefreshIntervalSec *int `json:"refresh_interval_sec,omitempty"`
	RetentionSec       int  `json:"retention_sec,omitempty"`

	InsecureTLS bool              `json:"insecure_tls,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	SourceURLs  map[string]string `json:"source_urls,omitempty"`

	Store    StoreConfig    `json:"store"`
	Telegram TelegramConfig `json:"telegram"`

	QuietStart string `json:"quiet_start,omitempty"`
	QuietEnd   string `json:"quiet_end,omitempty"`
	Timezone   string `json:"timezone,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
	Debug     bool   `json:"debug,omitempty"`
}

func DefaultDataDir() string {
	if v := os.Getenv("CURRENCYHUB_DATA_DIR"); v != "" {
		return v
	}
	return "/var/lib/currencyhub"
}

func DefaultConfigPath() string {
	if v := os.Getenv("CURRENCYHUB_CONFIG"); v != "" {
		return v
	}
	return "/etc/currencyhub/config.json"
}

// Load reads path (a missing file is fine), applies env overrides, fills
// defaults and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config json: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("CURRENCYHUB_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("CURRENCY"); v != "" {
		c.Currency = quotes.Currency(v)
	}
	if v := os.Getenv("CURRENCYHUB_CURRENCY"); v != "" {
		c.Currency = quotes.Currency(v)
	}
	if v := os.Getenv("CURRENCYHUB_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CURRENCYHUB_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("CURRENCYHUB_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("CURRENCYHUB_REDIS_PASSWORD"); v != "" {
		c.Store.RedisPassword = v
	}
	if v := os.Getenv("CURRENCYHUB_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("CURRENCYHUB_ALERT_CHATS"); v != "" && len(c.Telegram.AlertChatIDs) == 0 {
		c.Telegram.AlertChatIDs = parseIDList(v)
	}
	if v := os.Getenv("CURRENCYHUB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CURRENCYHUB_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("CURRENCYHUB_DEBUG"); v != "" {
		c.Debug = parseBool(v)
	}
	if v := os.Getenv("CURRENCYHUB_INSECURE_TLS"); v != "" {
		c.InsecureTLS = parseBool(v)
	}
	if v := os.Getenv("CURRENCYHUB_MAX_REDIRECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CURRENCYHUB_MAX_REDIRECTS: %w", err)
		}
		c.MaxRedirects = &n
	}
	if v := os.Getenv("CURRENCYHUB_REFRESH_INTERVAL_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CURRENCYHUB_REFRESH_INTERVAL_SEC: %w", err)
		}
		c.RefreshIntervalSec = &n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.DataDir = filepath.Clean(c.DataDir)
	if c.Currency == "" {
		c.Currency = quotes.CurrencyARS
	}
	c.Currency = quotes.Currency(strings.ToUpper(string(c.Currency)))
	if c.FreshnessWindowSec == 0 {
		c.FreshnessWindowSec = 60
	}
	if c.FetchTimeoutSec == 0 {
		c.FetchTimeoutSec = 15
	}
	if c.MaxRedirects == nil {
		n := 5
		c.MaxRedirects = &n
	}
	if c.RefreshIntervalSec == nil {
		n := 50
		c.RefreshIntervalSec = &n
	}
	if c.RetentionSec == 0 {
		c.RetentionSec = 86400
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "currencyhub.db")
	}
	if c.Store.RedisPrefix == "" {
		c.Store.RedisPrefix = "currencyhub:"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
		if c.Debug {
			c.LogLevel = "debug"
		}
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c Config) Validate() error {
	if !sources.Supported(c.Currency) {
		return fmt.Errorf("unsupported currency %q", c.Currency)
	}
	if c.FreshnessWindowSec < 0 || c.FetchTimeoutSec < 0 || c.Redirects() < 0 || c.RetentionSec < 0 {
		return errors.New("durations and limits must not be negative")
	}
	if iv := c.RefreshInterval(); iv < 0 || (iv > 0 && iv >= c.FreshnessWindow()) {
		return fmt.Errorf("refresh_interval_sec %d must be shorter than freshness_window_sec %d", *c.RefreshIntervalSec, c.FreshnessWindowSec)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if (c.QuietStart == "") != (c.QuietEnd == "") {
		return errors.New("quiet_start and quiet_end must be set together")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSec) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalSec == nil {
		return 0
	}
	return time.Duration(*c.RefreshIntervalSec) * time.Second
}

// Redirects is the redirect cap for source fetches.
func (c Config) Redirects() int {
	if c.MaxRedirects == nil {
		return 5
	}
	return *c.MaxRedirects
}

func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionSec) * time.Second
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

func parseIDList(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}
