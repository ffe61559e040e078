package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notifyRetryIntervals defines the redelivery schedule for the sink.
var notifyRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotifyPayload is the JSON structure sent to the notification sink.
type NotifyPayload struct {
	EventType string `json:"event_type"`
	Amount    int64  `json:"amount"`
	MemberID  string `json:"member_id"`
	Timestamp int64  `json:"timestamp"`
}

// SinkNotifier implements ports.Notifier by POSTing events to a configured
// sink URL. Delivery is fire-and-forget: a ledger operation is never blocked
// or failed by the sink.
type SinkNotifier struct {
	url        string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewSinkNotifier creates a new SinkNotifier. An empty URL disables delivery.
func NewSinkNotifier(url string, httpClient HTTPClient, log zerolog.Logger) *SinkNotifier {
	return &SinkNotifier{url: url, httpClient: httpClient, log: log}
}

// Notify emits one event. It returns immediately; delivery and retries run
// in their own goroutine.
func (n *SinkNotifier) Notify(eventType string, amount int64, memberID uuid.UUID) {
	if n.url == "" {
		return
	}
	payload := NotifyPayload{
		EventType: eventType,
		Amount:    amount,
		MemberID:  memberID.String(),
		Timestamp: time.Now().Unix(),
	}
	go n.deliverWithRetries(payload)
}

func (n *SinkNotifier) deliverWithRetries(payload NotifyPayload) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Msg("notify: failed to marshal payload")
		return
	}

	for attempt := 0; attempt <= len(notifyRetryIntervals); attempt++ {
		if attempt > 0 {
			time.Sleep(notifyRetryIntervals[attempt-1])
		}

		req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(payloadBytes))
		if err != nil {
			n.log.Error().Err(err).Str("event", payload.EventType).Msg("notify: failed to create request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			n.log.Warn().Err(err).Str("event", payload.EventType).Int("attempt", attempt+1).Msg("notify: delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n.log.Debug().Str("event", payload.EventType).Int("attempt", attempt+1).Msg("notify: delivered")
			return
		}
		n.log.Warn().Str("event", payload.EventType).Int("attempt", attempt+1).Int("status", resp.StatusCode).Msg("notify: non-2xx response, retrying")
	}

	n.log.Error().Str("event", payload.EventType).Msg("notify: all retry attempts exhausted")
}
