package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"agri-market/config"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Sender is the subset of *telebot.Bot used for alerts.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Alerter posts operator alerts to a single Telegram chat.
type Alerter struct {
	sender  Sender
	chat    telebot.Recipient
	limiter *rate.Limiter
	mu      sync.Mutex
}

// NewAlerter builds an alerter from config. It returns nil, nil when no bot
// token is configured so callers can skip alerting entirely.
func NewAlerter(cfg config.TelegramConfig) (*Alerter, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, nil
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: true,
		Client:  &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewAlerterWithSender(bot, cfg.ChatID), nil
}

func NewAlerterWithSender(sender Sender, chatID int64) *Alerter {
	return &Alerter{
		sender: sender,
		chat:   &telebot.Chat{ID: chatID},
		// Telegram allows ~20 messages per minute into one group.
		limiter: rate.NewLimiter(rate.Limit(20.0/60.0), 3),
	}
}

func (a *Alerter) Alert(ctx context.Context, message string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.sender.Send(a.chat, message, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		return fmt.Errorf("failed to send telegram alert: %w", err)
	}
	return nil
}
