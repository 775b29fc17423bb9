package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvMailSender     = "OFFERWATCH_MAIL_SENDER"
	EnvRecipient      = "OFFERWATCH_RECIPIENT"
	EnvQuery          = "OFFERWATCH_QUERY"
	EnvPostgresDSN    = "OFFERWATCH_PG_DSN"
	EnvTelegramToken  = "OFFERWATCH_TELEGRAM_TOKEN"
	EnvTelegramChatID = "OFFERWATCH_TELEGRAM_CHAT_ID"
)

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. Missing files are fine.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// OverlayEnv applies OFFERWATCH_* variables on top of the file values.
func OverlayEnv(cfg *Config) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Notify.Mail.Sender, EnvMailSender)
	set(&cfg.Notify.Recipient, EnvRecipient)
	set(&cfg.Scrape.Query, EnvQuery)
	set(&cfg.Mirror.PostgresDSN, EnvPostgresDSN)
	set(&cfg.Notify.Telegram.Token, EnvTelegramToken)

	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTelegramChatID, err)
		}
		cfg.Notify.Telegram.ChatID = id
	}
	return nil
}
