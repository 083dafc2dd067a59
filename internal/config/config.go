package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"veracity-service/internal/classifier"
	"veracity-service/internal/media"
	"veracity-service/internal/repository"
	"veracity-service/internal/scrape"
	"veracity-service/internal/social"
	"veracity-service/internal/social/facebook"
	"veracity-service/internal/social/instagram"
	"veracity-service/internal/social/twitter"
	"veracity-service/internal/verdict"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		UploadDir      string `yaml:"upload_dir"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`  // "debug" or "info"
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"logging"`

	// Text classification providers, tried in order
	Providers []classifier.ProviderConfig `yaml:"providers"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`

	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		Path string `yaml:"path"` // SQLite path or PostgreSQL URL
	} `yaml:"database"`

	Scoring verdict.Policy `yaml:"scoring"`

	Social struct {
		Timeout         time.Duration    `yaml:"timeout"`
		FallbackKeyword string           `yaml:"fallback_keyword"`
		Twitter         twitter.Config   `yaml:"twitter"`
		Facebook        facebook.Config  `yaml:"facebook"`
		Instagram       instagram.Config `yaml:"instagram"`
	} `yaml:"social"`

	Scraper scrape.Config `yaml:"scraper"`

	TrustedSources []scrape.Source `yaml:"trusted_sources"`

	Media struct {
		Histogram         media.HistogramScorer `yaml:"histogram"`
		EditingSignatures []string              `yaml:"editing_signatures"`
		EditingPenalty    *float64              `yaml:"editing_penalty"`
		TargetFrames      int                   `yaml:"target_frames"`
		Workers           int                   `yaml:"workers"`
		FFmpeg            media.FFmpeg          `yaml:"ffmpeg"`
	} `yaml:"media"`
}

// DefaultEditingPenalty is subtracted from an image score when metadata names an editing tool
const DefaultEditingPenalty = 0.3

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	config.expandSecrets()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8002"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 64 << 20
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.MaxFailuresBeforeSwitch == 0 {
		c.MaxFailuresBeforeSwitch = 3
	}

	if c.Database.Type == "" {
		c.Database.Type = repository.TypeSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/news.db"
	}

	if c.Scoring == (verdict.Policy{}) {
		c.Scoring = verdict.DefaultPolicy()
	}

	if c.Social.Timeout == 0 {
		c.Social.Timeout = social.DefaultTimeout
	}
	if c.Social.FallbackKeyword == "" {
		c.Social.FallbackKeyword = "news"
	}

	if c.Scraper.Mode == "" {
		c.Scraper.Mode = scrape.ModeHTML
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = scrape.DefaultTimeout
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = scrape.DefaultUserAgent
	}

	if c.TrustedSources == nil {
		c.TrustedSources = scrape.DefaultTrustedSources()
	}
	for i := range c.TrustedSources {
		if c.TrustedSources[i].Type == "" {
			c.TrustedSources[i].Type = scrape.ModeHTML
		}
	}

	if c.Media.Histogram == (media.HistogramScorer{}) {
		c.Media.Histogram = media.DefaultHistogramScorer()
	}
	if c.Media.EditingSignatures == nil {
		c.Media.EditingSignatures = media.DefaultEditingSignatures
	}
	if c.Media.EditingPenalty == nil {
		penalty := DefaultEditingPenalty
		c.Media.EditingPenalty = &penalty
	}
	if c.Media.TargetFrames == 0 {
		c.Media.TargetFrames = 10
	}
}

// expandSecrets substitutes environment variables in credentials
func (c *Config) expandSecrets() {
	for i := range c.Providers {
		c.Providers[i].APIKey = os.ExpandEnv(c.Providers[i].APIKey)
	}
	c.Database.Path = os.ExpandEnv(c.Database.Path)

	tw := &c.Social.Twitter
	tw.APIKey = os.ExpandEnv(tw.APIKey)
	tw.APISecret = os.ExpandEnv(tw.APISecret)
	tw.AccessToken = os.ExpandEnv(tw.AccessToken)
	tw.AccessTokenSecret = os.ExpandEnv(tw.AccessTokenSecret)
	tw.BearerToken = os.ExpandEnv(tw.BearerToken)

	fb := &c.Social.Facebook
	fb.AppID = os.ExpandEnv(fb.AppID)
	fb.AppSecret = os.ExpandEnv(fb.AppSecret)
	fb.AccessToken = os.ExpandEnv(fb.AccessToken)

	ig := &c.Social.Instagram
	ig.AccessToken = os.ExpandEnv(ig.AccessToken)
	ig.UserID = os.ExpandEnv(ig.UserID)
}

// Validate checks the configuration once at startup
func (c *Config) Validate() error {
	var errs []error

	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("at least one classification provider must be configured"))
	}
	for i, p := range c.Providers {
		if !p.Type.Valid() {
			errs = append(errs, fmt.Errorf("providers[%d]: unknown type %q", i, p.Type))
		}
	}

	switch c.Database.Type {
	case repository.TypeSQLite, repository.TypePostgres:
	default:
		errs = append(errs, fmt.Errorf("database: unsupported type %q", c.Database.Type))
	}

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}

	if c.Social.Timeout < 0 {
		errs = append(errs, fmt.Errorf("social: timeout must be positive, got %s", c.Social.Timeout))
	}

	switch c.Scraper.Mode {
	case scrape.ModeHTML, scrape.ModeRSS, scrape.ModeBrowser:
	default:
		errs = append(errs, fmt.Errorf("scraper: unsupported mode %q", c.Scraper.Mode))
	}

	for i, src := range c.TrustedSources {
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("trusted_sources[%d]: url is required", i))
		}
		switch src.Type {
		case scrape.ModeHTML, scrape.ModeRSS, scrape.ModeBrowser:
		default:
			errs = append(errs, fmt.Errorf("trusted_sources[%d]: unsupported type %q", i, src.Type))
		}
	}

	if p := c.Media.EditingPenalty; p != nil && (*p < 0 || *p > 1) {
		errs = append(errs, fmt.Errorf("media: editing_penalty must be within [0,1], got %v", *p))
	}
	if c.Media.TargetFrames < 0 || c.Media.Workers < 0 {
		errs = append(errs, errors.New("media: target_frames and workers must not be negative"))
	}

	return errors.Join(errs...)
}
