package notify

import (
	"context"
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
)

// Webhook posts notifications as JSON to a single URL.
type Webhook struct {
	client *httpclient.Client
	url    string
	now    func() time.Time
}

type webhookPayload struct {
	Event     string    `json:"event"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("webhook url is empty"))
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := httpclient.New(
		httpclient.WithTimeout(timeout),
		httpclient.WithProvider("webhook"),
	)
	if err != nil {
		return nil, err
	}
	return &Webhook{client: client, url: url, now: time.Now}, nil
}

// Notify posts n. Any 2xx response counts as delivered.
func (w *Webhook) Notify(ctx context.Context, n domain.Notification) error {
	err := w.client.PostJSON(ctx, w.url, webhookPayload{
		Event:     n.Event,
		Text:      n.Text,
		Timestamp: w.now().UTC(),
	}, nil)
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithContext("webhook "+n.Event), apperror.WithCause(err))
	}
	return nil
}
