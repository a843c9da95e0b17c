package notify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	_ app.Notifier = (*Telegram)(nil)
	_ app.Notifier = (*Webhook)(nil)
	_ app.Notifier = (*Multi)(nil)
)

// Multi fans a notification out to every channel concurrently.
type Multi struct {
	channels []app.Notifier
}

// NewMulti combines channels. Nil entries are dropped.
func NewMulti(channels ...app.Notifier) *Multi {
	m := &Multi{}
	for _, c := range channels {
		if c != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

// Len is the number of channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// Notify delivers n to every channel and joins their errors.
// One failing channel does not stop the others.
func (m *Multi) Notify(ctx context.Context, n domain.Notification) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, c := range m.channels {
		g.Go(func() error {
			if err := c.Notify(ctx, n); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// New builds the channels enabled in cfg. A channel that cannot be built is logged and left out.
func New(cfg config.NotifyConfig, log logger.LoggerInterface) *Multi {
	var channels []app.Notifier

	if cfg.Telegram.BotToken != "" {
		tg, err := NewTelegram(TelegramConfig{
			BaseURL:  cfg.Telegram.BaseURL,
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			log.Warn(context.Background(), "telegram notifier disabled", "error", err.Error())
		} else {
			channels = append(channels, tg)
		}
	}

	if cfg.Webhook.URL != "" {
		wh, err := NewWebhook(cfg.Webhook.URL, cfg.Timeout)
		if err != nil {
			log.Warn(context.Background(), "webhook notifier disabled", "error", err.Error())
		} else {
			channels = append(channels, wh)
		}
	}

	return NewMulti(channels...)
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redact(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "<redacted>"), cause: err}
}
