package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, databasePathEnv, schemaEnv, logLevelEnv, crawlDelayEnv,
		crawlTimeoutEnv, maxPagesEnv, httpAddrEnv,
	} {
		t.Setenv(key, "")
	}
	// CRAWL_CRON is read with LookupEnv, so it must be absent rather than empty
	t.Setenv(cronEnv, "")
	if err := os.Unsetenv(cronEnv); err != nil {
		t.Fatalf("unset %s: %v", cronEnv, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Crawler.Scanner != "mogi" || cfg.Crawler.Delay != time.Second || cfg.Crawler.Timeout != 20*time.Second {
		t.Fatalf("unexpected crawler defaults: %+v", cfg.Crawler)
	}
	if cfg.PageCap() != 500 {
		t.Fatalf("unexpected max pages: %d", cfg.PageCap())
	}
	if cfg.Scheduler.CronExpression != "" {
		t.Fatalf("re-crawl should be disabled by default, got %q", cfg.Scheduler.CronExpression)
	}

	targets := cfg.CrawlTargets()
	if len(targets) != 2 || !targets[0].IsSelling || targets[1].IsSelling {
		t.Fatalf("unexpected default targets: %+v", targets)
	}
	if !cfg.DetailsEnabled() {
		t.Fatal("detailed schema should fetch detail pages by default")
	}
}

func TestLoadMergesYAMLAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
logging:
  level: debug
database:
  path: /tmp/listings.db
  schema: basic
crawler:
  delay: 3s
  maxPages: 10
  targets:
    - name: ban-nha
      url: https://mogi.vn/da-nang/mua-nha
    - name: override
      url: https://mogi.vn/da-nang/mua-can-ho
      selling: false
scheduler:
  cronExpression: "0 6 * * *"
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(crawlTimeoutEnv, "5s")
	t.Setenv(maxPagesEnv, "0")

	cfg := Load()

	if cfg.Logging.Level != "debug" || cfg.Database.Path != "/tmp/listings.db" || cfg.Database.Schema != "basic" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Crawler.Delay != 3*time.Second || cfg.Crawler.Timeout != 5*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg.Crawler)
	}
	if cfg.PageCap() != 0 {
		t.Fatalf("env should set unlimited pages, got %d", cfg.PageCap())
	}
	if cfg.Crawler.Scanner != "mogi" {
		t.Fatalf("default scanner lost in merge: %q", cfg.Crawler.Scanner)
	}
	if cfg.DetailsEnabled() {
		t.Fatal("basic schema should not fetch detail pages")
	}
	if cfg.Scheduler.Location() != time.UTC {
		t.Fatalf("unexpected location %s", cfg.Scheduler.Location())
	}

	targets := cfg.CrawlTargets()
	if len(targets) != 2 || !targets[0].IsSelling || targets[1].IsSelling {
		t.Fatalf("unexpected targets: %+v", targets)
	}
}

func TestLoadYAMLCanDisablePageCap(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("crawler:\n  maxPages: 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	if cfg := Load(); cfg.PageCap() != 0 {
		t.Fatalf("maxPages: 0 should disable the cap, got %d", cfg.PageCap())
	}
}

func TestLoadUnknownTimezoneFallsBack(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Scheduler.Timezone != defaultTimezone {
		t.Fatalf("expected fallback to %s, got %s", defaultTimezone, cfg.Scheduler.Timezone)
	}
}

func TestLoadCronFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(cronEnv, "@every 6h")

	if cfg := Load(); cfg.Scheduler.CronExpression != "@every 6h" {
		t.Fatalf("unexpected cron expression %q", cfg.Scheduler.CronExpression)
	}
}
