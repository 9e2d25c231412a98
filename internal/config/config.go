package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"RealEstateCrawler/internal/domain"
)

const (
	defaultTimezone = "Asia/Ho_Chi_Minh"
	configPathEnv   = "REALESTATE_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	schemaEnv       = "DATABASE_SCHEMA"
	logLevelEnv     = "LOG_LEVEL"
	crawlDelayEnv   = "CRAWL_DELAY"
	crawlTimeoutEnv = "CRAWL_TIMEOUT"
	maxPagesEnv     = "CRAWL_MAX_PAGES"
	httpAddrEnv     = "HTTP_ADDR"
	cronEnv         = "CRAWL_CRON"
	defaultMaxPages = 500
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig sets the slog level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig points at the SQLite file and picks its table layout.
type DatabaseConfig struct {
	Path   string `yaml:"path"`
	Schema string `yaml:"schema"`
}

// CrawlerConfig tunes fetching and pagination.
type CrawlerConfig struct {
	Scanner      string         `yaml:"scanner"`
	Timeout      time.Duration  `yaml:"timeout"`
	Delay        time.Duration  `yaml:"delay"`
	MaxPages     *int           `yaml:"maxPages"`
	FetchDetails *bool          `yaml:"fetchDetails"`
	UserAgent    string         `yaml:"userAgent"`
	Targets      []TargetConfig `yaml:"targets"`
}

// TargetConfig is one listing index to sweep. Selling is inferred from the
// URL when omitted.
type TargetConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Selling *bool  `yaml:"selling"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines when re-crawls run. An empty expression disables them.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
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

// DetailsEnabled reports whether detail pages are fetched. Unset, it follows
// the schema: only the detailed layout has columns for detail fields.
func (c Config) DetailsEnabled() bool {
	if c.Crawler.FetchDetails != nil {
		return *c.Crawler.FetchDetails
	}
	return strings.EqualFold(c.Database.Schema, "detailed")
}

// PageCap is the per-target page limit. 0 disables the cap, so an explicit
// maxPages: 0 must survive the merge; unset falls back to the default.
func (c Config) PageCap() int {
	if c.Crawler.MaxPages != nil {
		return *c.Crawler.MaxPages
	}
	return defaultMaxPages
}

// CrawlTargets converts the configured targets into domain values.
func (c Config) CrawlTargets() []domain.CrawlTarget {
	targets := make([]domain.CrawlTarget, 0, len(c.Crawler.Targets))
	for _, t := range c.Crawler.Targets {
		if strings.TrimSpace(t.URL) == "" {
			continue
		}
		selling := domain.InferSelling(t.URL)
		if t.Selling != nil {
			selling = *t.Selling
		}
		name := t.Name
		if name == "" {
			name = t.URL
		}
		targets = append(targets, domain.CrawlTarget{Name: name, URL: t.URL, IsSelling: selling})
	}
	return targets
}

// Load reads .env and the YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Crawler.Targets) == 0 {
		cfg.Crawler.Targets = defaultConfig().Crawler.Targets
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(schemaEnv); v != "" {
		c.Database.Schema = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(crawlDelayEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Crawler.Delay = d
		} else {
			log.Printf("config: ignoring %s=%q", crawlDelayEnv, v)
		}
	}

	if v := os.Getenv(crawlTimeoutEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Crawler.Timeout = d
		} else {
			log.Printf("config: ignoring %s=%q", crawlTimeoutEnv, v)
		}
	}

	if v := os.Getenv(maxPagesEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Crawler.MaxPages = &n
		} else {
			log.Printf("config: ignoring %s=%q", maxPagesEnv, v)
		}
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v, ok := os.LookupEnv(cronEnv); ok {
		c.Scheduler.CronExpression = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		tz = defaultTimezone
		if loc, err = time.LoadLocation(defaultTimezone); err != nil {
			loc = time.UTC
		}
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Database.Schema != "" {
		base.Database.Schema = override.Database.Schema
	}

	if override.Crawler.Scanner != "" {
		base.Crawler.Scanner = override.Crawler.Scanner
	}
	if override.Crawler.Timeout > 0 {
		base.Crawler.Timeout = override.Crawler.Timeout
	}
	if override.Crawler.Delay > 0 {
		base.Crawler.Delay = override.Crawler.Delay
	}
	if override.Crawler.MaxPages != nil {
		base.Crawler.MaxPages = override.Crawler.MaxPages
	}
	if override.Crawler.FetchDetails != nil {
		base.Crawler.FetchDetails = override.Crawler.FetchDetails
	}
	if override.Crawler.UserAgent != "" {
		base.Crawler.UserAgent = override.Crawler.UserAgent
	}
	if len(override.Crawler.Targets) > 0 {
		base.Crawler.Targets = override.Crawler.Targets
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data.db", Schema: "detailed"},
		Crawler: CrawlerConfig{
			Scanner: "mogi",
			Timeout: 20 * time.Second,
			Delay:   time.Second,
			Targets: []TargetConfig{
				{Name: "buy", URL: "https://mogi.vn/da-nang/mua-can-ho"},
				{Name: "rent", URL: "https://mogi.vn/da-nang/thue-can-ho"},
			},
		},
		Server:    ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone},
	}
}
