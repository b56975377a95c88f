// Package webhook notifies subscribers when harvest jobs finish.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Event types.
const (
	EventHarvestCompleted = "harvest.completed"
	EventHarvestFailed    = "harvest.failed"
)

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret
// is configured.
const SignatureHeader = "X-Cadastre-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier delivers events, retrying failed deliveries.
type Notifier struct {
	http   *resty.Client
	delays []time.Duration
}

// DefaultDelays are the waits before each delivery attempt.
var DefaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// NewNotifier creates a Notifier using delays between attempts; nil means
// DefaultDelays.
func NewNotifier(delays []time.Duration) *Notifier {
	if delays == nil {
		delays = DefaultDelays
	}
	return &Notifier{
		http: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "Cadastre-Webhook/1.0"),
		delays: delays,
	}
}

// Deliver sends one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.http.R().SetContext(ctx).SetBody(body)
	if secret != "" {
		req.SetHeader(SignatureHeader, Sign(secret, body))
	}
	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode())
	}
	return nil
}

// DeliverAsync sends an event in the background, retrying per the
// Notifier's delays. done, if non-nil, is closed once delivery ends.
func (n *Notifier) DeliverAsync(url, secret string, event *Event, done chan<- struct{}) {
	go func() {
		if done != nil {
			defer close(done)
		}
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", url,
					"event", event.Type,
					"job_id", event.JobID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
			"job_id", event.JobID,
		)
	}()
}
