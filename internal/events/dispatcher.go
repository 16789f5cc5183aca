package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dhawalhost/dirsync/internal/sync"
	"go.uber.org/zap"
)

// Endpoint is one webhook destination for sync events.
type Endpoint struct {
	URL    string
	Secret string
}

// Dispatcher delivers sync events to configured webhook endpoints.
// Deliveries are signed with the endpoint secret so receivers can
// authenticate the payload.
type Dispatcher struct {
	endpoints  []Endpoint
	logger     *zap.Logger
	httpClient *http.Client
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(endpoints []Endpoint, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints:  endpoints,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish fires an event asynchronously. Delivery runs detached from
// the caller's context so a finishing sync run does not cancel it.
func (d *Dispatcher) Publish(event sync.Event) {
	if len(d.endpoints) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("failed to marshal event payload", zap.Error(err))
		return
	}

	for _, endpoint := range d.endpoints {
		go d.send(context.Background(), endpoint, payload, event.ID)
	}
}

func (d *Dispatcher) send(ctx context.Context, endpoint Endpoint, payload []byte, eventID string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewBuffer(payload))
	if err != nil {
		d.logger.Error("failed to create webhook request", zap.Error(err))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dirsync-Event-ID", eventID)

	if endpoint.Secret != "" {
		mac := hmac.New(sha256.New, []byte(endpoint.Secret))
		mac.Write(payload)
		signature := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Dirsync-Signature", "sha256="+signature)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("webhook delivery failed", zap.String("url", endpoint.URL), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.logger.Warn("webhook received non-2xx response",
			zap.String("url", endpoint.URL),
			zap.Int("status", resp.StatusCode))
	} else {
		d.logger.Debug("webhook delivered", zap.String("url", endpoint.URL))
	}
}
