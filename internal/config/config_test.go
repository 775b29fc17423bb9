package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
scrape:
  query: ingénieur données
  max_offers: 10
notify:
  recipient: me@example.com
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ingénieur données", cfg.Scrape.Query)
	assert.Equal(t, 10, cfg.Scrape.MaxOffers)
	assert.Equal(t, "me@example.com", cfg.Notify.Recipient)
	// untouched sections keep their defaults
	assert.Equal(t, "fr", cfg.Site.Language)
	assert.Equal(t, 587, cfg.Notify.Mail.SMTPPort)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Settle())
	assert.NoError(t, Validate(cfg))
}

func TestLoad_ShippedDefaultIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
	assert.Equal(t, Default().Site, cfg.Site)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("scrape: [not, a, map]"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	cfg.Scrape.Query = "Data Scientist"
	assert.Equal(t, filepath.Join("/data", "offers-data-scientist.csv"), cfg.StorePath("/data"))

	cfg.Store.Path = "mine.csv"
	assert.Equal(t, filepath.Join("/data", "mine.csv"), cfg.StorePath("/data"))

	cfg.Store.Path = "/abs/offers.csv"
	assert.Equal(t, "/abs/offers.csv", cfg.StorePath("/data"))

	assert.Equal(t, filepath.Join("/data", "offerwatch.db"), cfg.JournalPath("/data"))
	assert.Equal(t, 90*24*time.Hour, cfg.JournalRetention())
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Site.BaseURL = " https://www.welcometothejungle.com/ "
	cfg.Scrape.Query = "  go  "
	cfg.Scrape.DelaySeconds = 0

	out, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK(), res.Errors)
	assert.Equal(t, "https://www.welcometothejungle.com", out.Site.BaseURL)
	assert.Equal(t, "go", out.Scrape.Query)
	assert.NotEmpty(t, res.Warnings)

	cfg = Default()
	cfg.Site.BaseURL = "not a url"
	cfg.Scrape.Query = ""
	cfg.Scrape.MaxOffers = -1
	cfg.Notify.Telegram.Enabled = true
	cfg.Schedule.Every = "10s"
	cfg.Store.JournalRetentionDays = -1
	_, res = NormalizeAndValidate(cfg)
	assert.Len(t, res.Errors, 6)
}

func TestEvery(t *testing.T) {
	cfg := Default()
	d, err := cfg.Every()
	require.NoError(t, err)
	assert.Zero(t, d)

	cfg.Schedule.Every = "6h"
	d, err = cfg.Every()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, d)

	cfg.Schedule.Every = "often"
	_, err = cfg.Every()
	assert.Error(t, err)
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv(EnvMailSender, "bot@example.com")
	t.Setenv(EnvRecipient, "me@example.com")
	t.Setenv(EnvTelegramChatID, "42")
	t.Setenv(EnvQuery, "")

	cfg := Default()
	require.NoError(t, OverlayEnv(&cfg))
	assert.Equal(t, "bot@example.com", cfg.Notify.Mail.Sender)
	assert.Equal(t, "me@example.com", cfg.Notify.Recipient)
	assert.EqualValues(t, 42, cfg.Notify.Telegram.ChatID)
	assert.Equal(t, "data scientist", cfg.Scrape.Query)

	t.Setenv(EnvTelegramChatID, "forty-two")
	assert.Error(t, OverlayEnv(&cfg))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("OFFERWATCH_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("OFFERWATCH_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("OFFERWATCH_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), env))
	assert.Equal(t, "from-file", os.Getenv("OFFERWATCH_TEST_DOTENV"))
}

func TestEnsureUserConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	def := filepath.Join(t.TempDir(), "default.yml")
	require.NoError(t, os.WriteFile(def, []byte("scrape:\n  query: rust\n"), 0o644))

	p, err := EnsureUserConfig(dir, def)
	require.NoError(t, err)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "rust", cfg.Scrape.Query)

	// second call leaves the user file alone
	require.NoError(t, os.WriteFile(def, []byte("scrape:\n  query: go\n"), 0o644))
	p2, err := EnsureUserConfig(dir, def)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
	cfg, err = Load(p2)
	require.NoError(t, err)
	assert.Equal(t, "rust", cfg.Scrape.Query)
}

func TestEnsureUserConfig_NoShippedDefault(t *testing.T) {
	dir := t.TempDir()
	p, err := EnsureUserConfig(dir, filepath.Join(dir, "nope.yml"))
	require.NoError(t, err)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveAtomic_KeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default()
	require.NoError(t, SaveAtomic(path, cfg))
	cfg.Scrape.Query = "go"
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "go", got.Scrape.Query)
	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)

	cfg.Scrape.Query = ""
	assert.Error(t, SaveAtomic(path, cfg))
}
