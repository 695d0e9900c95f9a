package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/resilience"
)

// WebhookNotifier posts emitted events to a subscriber endpoint. Delivery
// goes through the resilient HTTP client so a flapping subscriber cannot
// stall the request path that emitted the event.
type WebhookNotifier struct {
	Endpoint string
	HTTP     *resilience.HTTPClient
	Logger   zerolog.Logger
}

type webhookEnvelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notify delivers the event envelope as JSON. Non-2xx responses count as
// delivery failures.
func (n *WebhookNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	if n == nil || n.Endpoint == "" || n.HTTP == nil {
		return nil
	}

	body, err := json.Marshal(webhookEnvelope{
		ID:          event.ID.String(),
		Topic:       event.Topic,
		AggregateID: event.AggregateID.String(),
		Payload:     event.Payload,
		OccurredAt:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("events: marshal webhook envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("events: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(ctx, req)
	if err != nil {
		n.Logger.Warn().Err(err).Str("topic", event.Topic).Msg("webhook delivery failed")
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("events: webhook returned status %d", resp.StatusCode)
		n.Logger.Warn().Err(err).Str("topic", event.Topic).Msg("webhook delivery rejected")
		return err
	}
	return nil
}
