package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "NEWS_PUBLISHER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	databaseDrvEnv   = "DATABASE_DRIVER"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	gnewsAPIKeyEnv   = "GNEWS_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChanEnv  = "TELEGRAM_CHANNEL_ID"
	wpSiteURLEnv     = "WP_SITE_URL"
	wpUsernameEnv    = "WP_USERNAME"
	wpPasswordEnv    = "WP_APP_PASSWORD"
	apiTokenEnv      = "API_TOKEN"
	logLevelEnv      = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	GNews      GNewsConfig      `yaml:"gnews"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	WordPress  WordPressConfig  `yaml:"wordpress"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Images     ImageConfig      `yaml:"images"`
	Retention  RetentionConfig  `yaml:"retention"`
	API        APIConfig        `yaml:"api"`
	Categories []CategoryConfig `yaml:"categories"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQL backend; Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig carries the timezone used for operator-facing timestamps.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig tunes search and keyword extraction.
type PipelineConfig struct {
	DefaultTopic    string `yaml:"defaultTopic"`
	Language        string `yaml:"language"`
	Region          string `yaml:"region"`
	SeedResults     int    `yaml:"seedResults"`
	SourceResults   int    `yaml:"sourceResults"`
	KeywordTokens   int    `yaml:"keywordTokens"`
	ChannelMaxRunes int    `yaml:"channelMaxRunes"`
}

// GNewsConfig defines how to contact the aggregator.
type GNewsConfig struct {
	SearchURL string `yaml:"searchUrl"`
	APIKey    string `yaml:"apiKey"`
}

// OpenAIConfig defines how to contact the chat completions API.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// WordPressConfig wires the site destination.
type WordPressConfig struct {
	SiteURL     string `yaml:"siteUrl"`
	SiteName    string `yaml:"siteName"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"appPassword"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase   string `yaml:"apiBase"`
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
}

// ImageConfig bounds cover preprocessing.
type ImageConfig struct {
	MaxWidth    int `yaml:"maxWidth"`
	MaxHeight   int `yaml:"maxHeight"`
	JPEGQuality int `yaml:"jpegQuality"`
}

// RetentionConfig controls audit log pruning.
type RetentionConfig struct {
	Days     int           `yaml:"days"`
	Interval time.Duration `yaml:"interval"`
}

// APIConfig configures the control API listener.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	Token      string `yaml:"token"`
}

// CategoryConfig seeds the site category mirror.
type CategoryConfig struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
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

	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultConfig().Categories
	}

	return cfg
}

// Validate lists the secrets a production run cannot do without.
func (c Config) Validate() []string {
	required := []struct {
		name  string
		value string
	}{
		{telegramTokenEnv, c.Telegram.BotToken},
		{openAIAPIKeyEnv, c.OpenAI.APIKey},
		{gnewsAPIKeyEnv, c.GNews.APIKey},
		{wpUsernameEnv, c.WordPress.Username},
		{wpPasswordEnv, c.WordPress.AppPassword},
		{databaseDSNEnv, c.Database.DSN},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		databaseDSNEnv:   &c.Database.DSN,
		databaseDrvEnv:   &c.Database.Driver,
		openAIAPIKeyEnv:  &c.OpenAI.APIKey,
		openAIModelEnv:   &c.OpenAI.Model,
		gnewsAPIKeyEnv:   &c.GNews.APIKey,
		telegramTokenEnv: &c.Telegram.BotToken,
		telegramChanEnv:  &c.Telegram.ChannelID,
		wpSiteURLEnv:     &c.WordPress.SiteURL,
		wpUsernameEnv:    &c.WordPress.Username,
		wpPasswordEnv:    &c.WordPress.AppPassword,
		apiTokenEnv:      &c.API.Token,
		logLevelEnv:      &c.Logging.Level,
	}
	for env, target := range overrides {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*target = v
		}
	}

	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.Retention.Days = days
		}
	}

	c.WordPress.SiteURL = strings.TrimRight(c.WordPress.SiteURL, "/")
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Database.Driver, override.Database.Driver)
	mergeString(&base.Database.DSN, override.Database.DSN)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	mergeString(&base.Pipeline.DefaultTopic, override.Pipeline.DefaultTopic)
	mergeString(&base.Pipeline.Language, override.Pipeline.Language)
	mergeString(&base.Pipeline.Region, override.Pipeline.Region)
	mergeInt(&base.Pipeline.SeedResults, override.Pipeline.SeedResults)
	mergeInt(&base.Pipeline.SourceResults, override.Pipeline.SourceResults)
	mergeInt(&base.Pipeline.KeywordTokens, override.Pipeline.KeywordTokens)
	mergeInt(&base.Pipeline.ChannelMaxRunes, override.Pipeline.ChannelMaxRunes)

	mergeString(&base.GNews.SearchURL, override.GNews.SearchURL)
	mergeString(&base.GNews.APIKey, override.GNews.APIKey)

	mergeString(&base.OpenAI.Endpoint, override.OpenAI.Endpoint)
	mergeString(&base.OpenAI.Model, override.OpenAI.Model)
	mergeString(&base.OpenAI.APIKey, override.OpenAI.APIKey)
	mergeString(&base.OpenAI.SystemPrompt, override.OpenAI.SystemPrompt)

	mergeString(&base.WordPress.SiteURL, override.WordPress.SiteURL)
	mergeString(&base.WordPress.SiteName, override.WordPress.SiteName)
	mergeString(&base.WordPress.Username, override.WordPress.Username)
	mergeString(&base.WordPress.AppPassword, override.WordPress.AppPassword)

	mergeString(&base.Telegram.APIBase, override.Telegram.APIBase)
	mergeString(&base.Telegram.BotToken, override.Telegram.BotToken)
	mergeString(&base.Telegram.ChannelID, override.Telegram.ChannelID)

	mergeInt(&base.Images.MaxWidth, override.Images.MaxWidth)
	mergeInt(&base.Images.MaxHeight, override.Images.MaxHeight)
	mergeInt(&base.Images.JPEGQuality, override.Images.JPEGQuality)

	mergeInt(&base.Retention.Days, override.Retention.Days)
	if override.Retention.Interval > 0 {
		base.Retention.Interval = override.Retention.Interval
	}

	mergeString(&base.API.ListenAddr, override.API.ListenAddr)
	mergeString(&base.API.Token, override.API.Token)

	if len(override.Categories) > 0 {
		base.Categories = override.Categories
	}

	return base
}

func mergeString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "newspublisher.db"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		Pipeline: PipelineConfig{
			DefaultTopic:    "Україна",
			Language:        "uk",
			Region:          "ua",
			SeedResults:     10,
			SourceResults:   10,
			KeywordTokens:   5,
			ChannelMaxRunes: 3800,
		},
		GNews: GNewsConfig{SearchURL: "https://gnews.io/api/v4/search"},
		OpenAI: OpenAIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		WordPress: WordPressConfig{SiteURL: "https://spilno.online", SiteName: "Спільно"},
		Telegram:  TelegramConfig{APIBase: "https://api.telegram.org"},
		Images:    ImageConfig{MaxWidth: 1920, MaxHeight: 1080, JPEGQuality: 85},
		Retention: RetentionConfig{Days: 30, Interval: 24 * time.Hour},
		API:       APIConfig{ListenAddr: ":8080"},
		Categories: []CategoryConfig{
			{ID: 1, Name: "У світі"},
			{ID: 2, Name: "Вдома"},
			{ID: 3, Name: "Історії"},
			{ID: 4, Name: "Наші справи"},
			{ID: 5, Name: "Поради"},
			{ID: 6, Name: "Біль"},
		},
	}
}
