package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Tables struct {
	PostTracking string `yaml:"post_tracking"`
	BlogContent  string `yaml:"blog_content"`
	Keywords     string `yaml:"keywords"`
	ContentMap   string `yaml:"content_map"`
	Metrics      string `yaml:"metrics"`
	Revenue      string `yaml:"revenue"`
}

// All lists every table in a stable order, for health probing.
func (t Tables) All() []string {
	return []string{t.PostTracking, t.BlogContent, t.Keywords, t.ContentMap, t.Metrics, t.Revenue}
}

type Completion struct {
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	MaxTokens int    `yaml:"max_tokens"`
}

type Config struct {
	Port           string        `yaml:"port"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	LogLevel       slog.Level    `yaml:"-"`
	StoreDriver    string        `yaml:"store_driver"`
	StorePath      string        `yaml:"store_path"`
	Tables         Tables        `yaml:"tables"`
	MatchThreshold int           `yaml:"match_threshold"`
	Concurrency    int           `yaml:"concurrency"`
	Completion     Completion    `yaml:"completion"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"-"`
	RedisDB        int           `yaml:"redis_db"`
	Region         string        `yaml:"region"`
}

func Defaults() Config {
	return Config{
		Port:         "8080",
		HTTPTimeout:  15 * time.Second,
		StoreTimeout: 5 * time.Second,
		LogLevel:     slog.LevelInfo,
		StoreDriver:  "memory",
		StorePath:    "data/bridge.db",
		Tables: Tables{
			PostTracking: "post-publish-tracking",
			BlogContent:  "blog-content-pipeline",
			Keywords:     "pse-keyword-intelligence",
			ContentMap:   "pse-content-mapping",
			Metrics:      "pse-performance-metrics",
			Revenue:      "pse-revenue-attribution",
		},
		MatchThreshold: 70,
		Concurrency:    8,
		Completion:     Completion{MaxTokens: 1000},
		Region:         "eu-west-2",
	}
}

// FromEnv returns the defaults overlaid by the YAML file named in
// BRIDGE_CONFIG (if any) and then by environment variables.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if p := os.Getenv("BRIDGE_CONFIG"); p != "" {
		if err := cfg.loadFile(p); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			c.HTTPTimeout = d
		}
	}
	if v := os.Getenv("STORE_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			c.StoreTimeout = d
		}
	}
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		c.LogLevel = slog.LevelDebug
	case "warn":
		c.LogLevel = slog.LevelWarn
	case "error":
		c.LogLevel = slog.LevelError
	}
	c.Port = envOr("PORT", c.Port)
	c.StoreDriver = envOr("STORE_DRIVER", c.StoreDriver)
	c.StorePath = envOr("STORE_PATH", c.StorePath)
	c.Tables.PostTracking = envOr("POST_TRACKING_TABLE", c.Tables.PostTracking)
	c.Tables.BlogContent = envOr("BLOG_CONTENT_TABLE", c.Tables.BlogContent)
	c.Tables.Keywords = envOr("KEYWORDS_TABLE", c.Tables.Keywords)
	c.Tables.ContentMap = envOr("CONTENT_MAP_TABLE", c.Tables.ContentMap)
	c.Tables.Metrics = envOr("METRICS_TABLE", c.Tables.Metrics)
	c.Tables.Revenue = envOr("REVENUE_TABLE", c.Tables.Revenue)
	c.MatchThreshold = envInt("MATCH_THRESHOLD", c.MatchThreshold)
	c.Concurrency = envInt("FANOUT_CONCURRENCY", c.Concurrency)
	c.Completion.URL = envOr("COMPLETION_URL", c.Completion.URL)
	c.Completion.Model = envOr("COMPLETION_MODEL", c.Completion.Model)
	c.Completion.APIKey = envOr("COMPLETION_API_KEY", c.Completion.APIKey)
	c.Completion.MaxTokens = envInt("COMPLETION_MAX_TOKENS", c.Completion.MaxTokens)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envOr("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envInt("REDIS_DB", c.RedisDB)
	c.Region = envOr("AWS_REGION", c.Region)
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("config: match threshold %d outside 0-100", c.MatchThreshold)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
