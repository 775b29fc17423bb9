package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"offerwatch/internal/scrape/util"
)

type Config struct {
	Site struct {
		BaseURL  string `yaml:"base_url"`
		Language string `yaml:"language"`
	} `yaml:"site"`

	Scrape struct {
		Query          string `yaml:"query"`
		MaxOffers      int    `yaml:"max_offers"`
		DelaySeconds   int    `yaml:"delay_seconds"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		UserAgent      string `yaml:"user_agent"`
	} `yaml:"scrape"`

	Store struct {
		Path                 string `yaml:"path"`
		JournalPath          string `yaml:"journal_path"`
		JournalRetentionDays int    `yaml:"journal_retention_days"` // 0 keeps every run
	} `yaml:"store"`

	Browser struct {
		Headless          bool `yaml:"headless"`
		Install           bool `yaml:"install"`
		SettleSeconds     int  `yaml:"settle_seconds"`
		NavTimeoutSeconds int  `yaml:"nav_timeout_seconds"`
	} `yaml:"browser"`

	Notify struct {
		Recipient string `yaml:"recipient"`

		Mail struct {
			Enabled    bool   `yaml:"enabled"`
			Sender     string `yaml:"sender"`
			SMTPHost   string `yaml:"smtp_host"`
			SMTPPort   int    `yaml:"smtp_port"`
			IMAPHost   string `yaml:"imap_host"`
			IMAPPort   int    `yaml:"imap_port"`
			SentFolder string `yaml:"sent_folder"`
		} `yaml:"mail"`

		Telegram struct {
			Enabled bool   `yaml:"enabled"`
			Token   string `yaml:"token"`
			ChatID  int64  `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"notify"`

	Mirror struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		Schema      string `yaml:"schema"`
		MaxConns    int    `yaml:"max_conns"`
		ViaBouncer  bool   `yaml:"via_bouncer"`
	} `yaml:"mirror"`

	Schedule struct {
		Every string `yaml:"every"` // Go duration, empty = run once
	} `yaml:"schedule"`
}

// Default is the configuration used when a field is left out of the file.
func Default() Config {
	var c Config
	c.Site.BaseURL = "https://www.welcometothejungle.com"
	c.Site.Language = "fr"
	c.Scrape.Query = "data scientist"
	c.Scrape.DelaySeconds = 2
	c.Scrape.TimeoutSeconds = 20
	c.Store.JournalRetentionDays = 90
	c.Browser.Headless = true
	c.Browser.SettleSeconds = 5
	c.Browser.NavTimeoutSeconds = 30
	c.Notify.Mail.Enabled = true
	c.Notify.Mail.SMTPHost = "smtp.gmail.com"
	c.Notify.Mail.SMTPPort = 587
	c.Notify.Mail.IMAPPort = 993
	c.Mirror.Schema = "public"
	c.Mirror.MaxConns = 2
	return c
}

// Load reads path over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// StorePath is the CSV store for the configured query. Without an explicit
// path each query gets its own file in dataDir.
func (c Config) StorePath(dataDir string) string {
	if c.Store.Path != "" {
		if filepath.IsAbs(c.Store.Path) {
			return c.Store.Path
		}
		return filepath.Join(dataDir, c.Store.Path)
	}
	name := "offers.csv"
	if slug := util.Slug(c.Scrape.Query); slug != "" {
		name = "offers-" + slug + ".csv"
	}
	return filepath.Join(dataDir, name)
}

func (c Config) JournalPath(dataDir string) string {
	if c.Store.JournalPath != "" {
		if filepath.IsAbs(c.Store.JournalPath) {
			return c.Store.JournalPath
		}
		return filepath.Join(dataDir, c.Store.JournalPath)
	}
	return filepath.Join(dataDir, "offerwatch.db")
}

// JournalRetention is how long runs stay in the journal; zero keeps them all.
func (c Config) JournalRetention() time.Duration {
	return time.Duration(c.Store.JournalRetentionDays) * 24 * time.Hour
}

func (c Config) Delay() time.Duration { return time.Duration(c.Scrape.DelaySeconds) * time.Second }

func (c Config) Timeout() time.Duration { return time.Duration(c.Scrape.TimeoutSeconds) * time.Second }

func (c Config) Settle() time.Duration { return time.Duration(c.Browser.SettleSeconds) * time.Second }

func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// Every parses Schedule.Every; zero means run once.
func (c Config) Every() (time.Duration, error) {
	if c.Schedule.Every == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Schedule.Every)
	if err != nil {
		return 0, fmt.Errorf("schedule.every: %w", err)
	}
	return d, nil
}
