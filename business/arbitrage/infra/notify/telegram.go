// Package notify delivers trade notifications to external channels.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	defaultTimeout     = 5 * time.Second
)

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// Telegram sends notifications through the Bot API sendMessage method.
type Telegram struct {
	client *httpclient.Client
	token  string
	chatID string
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("telegram needs bot_token and chat_id"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTelegramURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client, err := httpclient.New(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithProvider("telegram"),
	)
	if err != nil {
		return nil, err
	}
	return &Telegram{client: client, token: cfg.BotToken, chatID: cfg.ChatID}, nil
}

// Notify posts n.Text to the configured chat.
func (t *Telegram) Notify(ctx context.Context, n domain.Notification) error {
	var resp sendMessageResponse
	err := t.client.PostJSON(ctx, fmt.Sprintf("/bot%s/sendMessage", t.token), sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  n.Text,
		DisableWebPagePreview: true,
	}, &resp)
	if err != nil {
		// the request path carries the token; keep it out of the error
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithContext("telegram "+n.Event), apperror.WithCause(redact(err, t.token)))
	}
	if !resp.OK {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithContext("telegram "+n.Event+": "+resp.Description))
	}
	return nil
}
