package notify

import (
	"context"
	"errors"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramConfig struct {
	Token  string
	ChatID int64

	// APIEndpoint overrides tgbotapi.APIEndpoint, mostly for tests.
	APIEndpoint string
}

// Telegram posts the store as a document with the summary as caption.
// The recipient argument is ignored; the chat is fixed by config.
type Telegram struct {
	cfg TelegramConfig
	bot *tgbotapi.BotAPI
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	return &Telegram{cfg: cfg}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, _ string, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.bot == nil {
		endpoint := t.cfg.APIEndpoint
		if endpoint == "" {
			endpoint = tgbotapi.APIEndpoint
		}
		bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.cfg.Token, endpoint)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		t.bot = bot
	}

	if m.AttachmentPath == "" {
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.cfg.ChatID, m.Subject)); err != nil {
			return fmt.Errorf("telegram send message: %w", err)
		}
		return nil
	}

	f, err := os.Open(m.AttachmentPath)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	doc := tgbotapi.NewDocument(t.cfg.ChatID, tgbotapi.FileReader{Name: m.AttachmentName, Reader: f})
	doc.Caption = m.Subject
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram send document: %w", err)
	}
	return nil
}
