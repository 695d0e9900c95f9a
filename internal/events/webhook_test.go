package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/resilience"
)

func testEvent() db.DomainEvent {
	return db.DomainEvent{
		ID:          uuid.New(),
		Topic:       TopicRentalConfirmed,
		AggregateID: uuid.New(),
		Payload:     []byte(`{"rentalId":"abc"}`),
		OccurredAt:  time.Now(),
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received webhookEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := &WebhookNotifier{
		Endpoint: srv.URL,
		HTTP:     &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Logger:   zerolog.Nop(),
	}

	event := testEvent()
	require.NoError(t, notifier.Notify(context.Background(), event))
	require.Equal(t, event.Topic, received.Topic)
	require.Equal(t, event.AggregateID.String(), received.AggregateID)
	require.JSONEq(t, `{"rentalId":"abc"}`, string(received.Payload))
}

func TestWebhookNotifierRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	notifier := &WebhookNotifier{
		Endpoint: srv.URL,
		HTTP:     &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Logger:   zerolog.Nop(),
	}

	require.Error(t, notifier.Notify(context.Background(), testEvent()))
}

func TestWebhookNotifierNoEndpointIsNoop(t *testing.T) {
	notifier := &WebhookNotifier{}
	require.NoError(t, notifier.Notify(context.Background(), testEvent()))
}
