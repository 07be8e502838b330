package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
database:
  driver: postgres
  dsn: postgres://file
pipeline:
  defaultTopic: Київ
  keywordTokens: 3
retention:
  interval: 12h
categories:
  - id: 10
    name: Спорт
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env")
	t.Setenv(wpSiteURLEnv, "https://example.org/")

	cfg := Load()

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://env" {
		t.Fatalf("env override not applied: %s", cfg.Database.DSN)
	}
	if cfg.Pipeline.DefaultTopic != "Київ" || cfg.Pipeline.KeywordTokens != 3 {
		t.Fatalf("pipeline not merged: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.SeedResults != 10 {
		t.Fatalf("default seed results lost: %d", cfg.Pipeline.SeedResults)
	}
	if cfg.Retention.Interval != 12*time.Hour {
		t.Fatalf("unexpected retention interval: %s", cfg.Retention.Interval)
	}
	if cfg.WordPress.SiteURL != "https://example.org" {
		t.Fatalf("site url not trimmed: %s", cfg.WordPress.SiteURL)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "Спорт" {
		t.Fatalf("categories not overridden: %+v", cfg.Categories)
	}
}

func TestValidateReportsMissingSecrets(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	missing := cfg.Validate()
	if len(missing) != 5 {
		t.Fatalf("expected 5 missing secrets, got %v", missing)
	}

	cfg.Telegram.BotToken = "t"
	cfg.OpenAI.APIKey = "o"
	cfg.GNews.APIKey = "g"
	cfg.WordPress.Username = "u"
	cfg.WordPress.AppPassword = "p"
	if missing := cfg.Validate(); len(missing) != 0 {
		t.Fatalf("expected no missing secrets, got %v", missing)
	}
}
