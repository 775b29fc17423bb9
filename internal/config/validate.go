package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims the free-text fields and checks the rest.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Site.BaseURL = strings.TrimRight(strings.TrimSpace(out.Site.BaseURL), "/")
	out.Site.Language = strings.ToLower(strings.TrimSpace(out.Site.Language))
	out.Scrape.Query = strings.TrimSpace(out.Scrape.Query)
	out.Notify.Recipient = strings.TrimSpace(out.Notify.Recipient)
	out.Notify.Mail.Sender = strings.TrimSpace(out.Notify.Mail.Sender)

	if u, err := url.Parse(out.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("site.base_url must be an absolute URL, got %q", out.Site.BaseURL)
	}
	if out.Site.Language == "" {
		res.addErr("site.language is required")
	}
	if out.Scrape.Query == "" {
		res.addErr("scrape.query is required")
	}
	if out.Scrape.MaxOffers < 0 {
		res.addErr("scrape.max_offers must be >= 0")
	}
	if out.Scrape.DelaySeconds < 0 {
		res.addErr("scrape.delay_seconds must be >= 0")
	} else if out.Scrape.DelaySeconds == 0 {
		res.addWarn("scrape.delay_seconds is 0; offer pages will be fetched back to back.")
	}
	if out.Scrape.TimeoutSeconds <= 0 {
		res.addErr("scrape.timeout_seconds must be > 0")
	}
	if out.Store.JournalRetentionDays < 0 {
		res.addErr("store.journal_retention_days must be >= 0")
	}
	if out.Browser.SettleSeconds < 0 {
		res.addErr("browser.settle_seconds must be >= 0")
	}
	if out.Browser.NavTimeoutSeconds <= 0 {
		res.addErr("browser.nav_timeout_seconds must be > 0")
	}

	// sender and password may also come from the environment, checked at send time
	if out.Notify.Mail.Enabled {
		if strings.TrimSpace(out.Notify.Mail.SMTPHost) == "" {
			res.addErr("notify.mail.smtp_host is required when notify.mail.enabled=true")
		}
		if out.Notify.Mail.SMTPPort <= 0 || out.Notify.Mail.SMTPPort > 65535 {
			res.addErr("notify.mail.smtp_port must be 1..65535")
		}
		if out.Notify.Mail.SentFolder != "" && out.Notify.Mail.IMAPHost == "" {
			res.addErr("notify.mail.imap_host is required when notify.mail.sent_folder is set")
		}
		if out.Notify.Recipient == "" {
			res.addWarn("notify.recipient is empty; pass -recipient to notify.")
		}
	}
	if out.Notify.Telegram.Enabled && out.Notify.Telegram.ChatID == 0 {
		res.addErr("notify.telegram.chat_id is required when notify.telegram.enabled=true")
	}

	if out.Schedule.Every != "" {
		d, err := time.ParseDuration(out.Schedule.Every)
		switch {
		case err != nil:
			res.addErr("schedule.every: %v", err)
		case d < time.Minute:
			res.addErr("schedule.every must be at least 1m, got %s", d)
		case d < time.Hour:
			res.addWarn("schedule.every is %s; the site may throttle frequent searches.", d)
		}
	}

	if out.Mirror.PostgresDSN != "" && out.Mirror.MaxConns <= 0 {
		res.addErr("mirror.max_conns must be > 0")
	}

	return out, res
}
