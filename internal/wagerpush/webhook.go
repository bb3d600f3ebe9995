package wagerpush

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSink POSTs each event as JSON to a fixed URL. Retries are left to
// the manager so backoff and circuit state stay in one place.
type WebhookSink struct {
	client *resty.Client
	url    string
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "betpro-wagerpush")
	return &WebhookSink{client: client, url: url}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", msg.Type).
		SetHeader("X-Event-ID", msg.ID).
		SetBody(msg.Body).
		Post(s.url)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook status %d", resp.StatusCode())
	}
	return nil
}
