// Package notify delivers run summaries and failure alerts to the user.
package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier receives human-readable sync status messages.
type Notifier interface {
	Notify(text string) error
}

// Nop discards every message. Used when no notification channel is configured.
type Nop struct{}

func (Nop) Notify(string) error { return nil }

// Telegram sends messages to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot token once at startup.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) Notify(text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}
