// Package config handles configuration loading for consensus.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Screener ScreenerConfig `mapstructure:"screener" yaml:"screener" json:"screener"`
	Holdings HoldingsConfig `mapstructure:"holdings" yaml:"holdings" json:"holdings"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	HTTP     HTTPConfig     `mapstructure:"http"     yaml:"http"     json:"http"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"    json:"cache"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"      json:"api"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"     json:"news"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`
}

// ScreenerConfig holds the fund screener query settings.
type ScreenerConfig struct {
	BaseURL          string `mapstructure:"base_url"          yaml:"base_url"          json:"base_url"`
	UniverseID       string `mapstructure:"universe_id"       yaml:"universe_id"       json:"universe_id"` // e.g. "FOESP$$ALL"
	CurrencyID       string `mapstructure:"currency_id"       yaml:"currency_id"       json:"currency_id"`
	LanguageID       string `mapstructure:"language_id"       yaml:"language_id"       json:"language_id"`
	SortOrder        string `mapstructure:"sort_order"        yaml:"sort_order"        json:"sort_order"` // e.g. "ReturnM120 desc"
	PageSize         int    `mapstructure:"page_size"         yaml:"page_size"         json:"page_size"`
	Pages            int    `mapstructure:"pages"             yaml:"pages"             json:"pages"`             // pages 1..Pages are fetched
	CategoryContains string `mapstructure:"category_contains" yaml:"category_contains" json:"category_contains"` // rows whose category lacks this are skipped
}

// HoldingsConfig holds the per-fund holdings lookup settings.
type HoldingsConfig struct {
	BaseURL         string `mapstructure:"base_url"          yaml:"base_url"          json:"base_url"`
	FallbackPageURL string `mapstructure:"fallback_page_url" yaml:"fallback_page_url" json:"fallback_page_url"` // HTML snapshot page, scraped when the JSON API fails
	Country         string `mapstructure:"country"           yaml:"country"           json:"country"` // e.g. "United States"
	TopN            int    `mapstructure:"top_n"             yaml:"top_n"             json:"top_n"`   // holdings kept per fund
}

// PipelineConfig holds the two pipeline tunables and the ticker denylist.
type PipelineConfig struct {
	MinAppearances      int      `mapstructure:"min_appearances"      yaml:"min_appearances"      json:"min_appearances"`
	SimilarityThreshold int      `mapstructure:"similarity_threshold" yaml:"similarity_threshold" json:"similarity_threshold"` // 0-100
	ExcludedTickers     []string `mapstructure:"excluded_tickers"     yaml:"excluded_tickers"     json:"excluded_tickers"`
}

// HTTPConfig holds the outbound fetch settings. The original tool kept
// these headers in a module-level global; they are explicit config here.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"      yaml:"user_agent"      json:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language" yaml:"accept_language" json:"accept_language"`
	TimeoutSec     int    `mapstructure:"timeout_sec"     yaml:"timeout_sec"     json:"timeout_sec"`
}

// CacheConfig holds the result cache settings.
type CacheConfig struct {
	TTLSec int `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// NewsConfig holds the market-news panel settings.
type NewsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Limit   int  `mapstructure:"limit"   yaml:"limit"   json:"limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// configFilePath remembers which file the running config came from.
var configFilePath string

// ConfigFilePath returns the path of the active config file, or "" when
// running on defaults + environment only.
func ConfigFilePath() string { return configFilePath }

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.consensus/config.yaml (home directory)
//  3. /etc/consensus/config.yaml (system)
//
// Environment variables override config file values.
// Format: CONSENSUS_<SECTION>_<KEY>, e.g., CONSENSUS_PIPELINE_MIN_APPEARANCES
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".consensus"))
	v.AddConfigPath("/etc/consensus")

	v.SetEnvPrefix("CONSENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars.
	}
	configFilePath = v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("CONSENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	configFilePath = path

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// SaveToFile persists the given configuration as YAML.
func SaveToFile(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join("config", "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.Set("screener", map[string]any{
		"base_url":          cfg.Screener.BaseURL,
		"universe_id":       cfg.Screener.UniverseID,
		"currency_id":       cfg.Screener.CurrencyID,
		"language_id":       cfg.Screener.LanguageID,
		"sort_order":        cfg.Screener.SortOrder,
		"page_size":         cfg.Screener.PageSize,
		"pages":             cfg.Screener.Pages,
		"category_contains": cfg.Screener.CategoryContains,
	})
	v.Set("holdings", map[string]any{
		"base_url":          cfg.Holdings.BaseURL,
		"fallback_page_url": cfg.Holdings.FallbackPageURL,
		"country":           cfg.Holdings.Country,
		"top_n":             cfg.Holdings.TopN,
	})
	v.Set("pipeline", map[string]any{
		"min_appearances":      cfg.Pipeline.MinAppearances,
		"similarity_threshold": cfg.Pipeline.SimilarityThreshold,
		"excluded_tickers":     cfg.Pipeline.ExcludedTickers,
	})
	v.Set("http", map[string]any{
		"user_agent":      cfg.HTTP.UserAgent,
		"accept_language": cfg.HTTP.AcceptLanguage,
		"timeout_sec":     cfg.HTTP.TimeoutSec,
	})
	v.Set("cache", map[string]any{"ttl_sec": cfg.Cache.TTLSec})
	v.Set("api", map[string]any{
		"host":         cfg.API.Host,
		"port":         cfg.API.Port,
		"cors_origins": cfg.API.CORSOrigins,
	})
	v.Set("news", map[string]any{
		"enabled": cfg.News.Enabled,
		"limit":   cfg.News.Limit,
	})
	v.Set("logging", map[string]any{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	configFilePath = path
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Screener defaults match the public Morningstar screener.
	v.SetDefault("screener.base_url", "https://lt.morningstar.com/api/rest.svc/klr5zyak8x/security/screener")
	v.SetDefault("screener.universe_id", "FOESP$$ALL")
	v.SetDefault("screener.currency_id", "EUR")
	v.SetDefault("screener.language_id", "es-ES")
	v.SetDefault("screener.sort_order", "ReturnM120 desc")
	v.SetDefault("screener.page_size", 50)
	v.SetDefault("screener.pages", 2)
	v.SetDefault("screener.category_contains", "RV")

	// Holdings defaults
	v.SetDefault("holdings.base_url", "https://api-global.morningstar.com/sal-service/v1/fund/portfolio/holding/v2")
	v.SetDefault("holdings.fallback_page_url", "https://lt.morningstar.com/snapshot/snapshot.aspx?tab=3&id=")
	v.SetDefault("holdings.country", "United States")
	v.SetDefault("holdings.top_n", 10)

	// Pipeline defaults (the two spec tunables plus the denylist)
	v.SetDefault("pipeline.min_appearances", 6)
	v.SetDefault("pipeline.similarity_threshold", 85)
	v.SetDefault("pipeline.excluded_tickers", []string{"GOOG"})

	// HTTP fetch defaults
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:93.0) Gecko/20100101 Firefox/93.0")
	v.SetDefault("http.accept_language", "en-US,en;q=0.8,es-ES;q=0.5,es;q=0.3")
	v.SetDefault("http.timeout_sec", 30)

	// Cache defaults (1 hour, same as the dashboard cache)
	v.SetDefault("cache.ttl_sec", 3600)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// News defaults
	v.SetDefault("news.enabled", true)
	v.SetDefault("news.limit", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// FetchHeaders returns the outbound request headers derived from config.
func (c *Config) FetchHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      c.HTTP.UserAgent,
		"Accept-Language": c.HTTP.AcceptLanguage,
		"Cache-Control":   "no-cache",
		"Pragma":          "no-cache",
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
