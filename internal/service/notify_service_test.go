package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func TestSinkNotifier_DeliversPayload(t *testing.T) {
	memberID := uuid.New()
	delivered := make(chan NotifyPayload, 1)

	client := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			var payload NotifyPayload
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			delivered <- payload
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		},
	}

	n := NewSinkNotifier("http://sink.local/events", client, zerolog.Nop())
	n.Notify(EventCommissionPaid, 5000, memberID)

	select {
	case payload := <-delivered:
		assert.Equal(t, EventCommissionPaid, payload.EventType)
		assert.Equal(t, int64(5000), payload.Amount)
		assert.Equal(t, memberID.String(), payload.MemberID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never delivered")
	}
}

func TestSinkNotifier_EmptyURLIsNoOp(t *testing.T) {
	client := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			t.Fatal("no request expected with empty sink URL")
			return nil, nil
		},
	}

	n := NewSinkNotifier("", client, zerolog.Nop())
	n.Notify(EventWalletTopup, 100, uuid.New())
	// Give a stray goroutine a chance to trip the fatal above.
	time.Sleep(50 * time.Millisecond)
}

func TestSinkNotifier_NeverBlocksCaller(t *testing.T) {
	block := make(chan struct{})
	client := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			<-block
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
		},
	}

	n := NewSinkNotifier("http://sink.local/events", client, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		n.Notify(EventVIPActivated, 25000, uuid.New())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked the caller")
	}
	close(block)
}
