package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/speckit/gateway/signature"
	"github.com/speckit/gateway/subscription"
)

const maxResponseBody = 1024 // 1KB cap on response body storage

// Sender performs the HTTP webhook push.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// wireBody builds the flat body subscribers receive: the payload fields at
// top level, narrowed by the subscription's allowlist, plus the eventType
// and timestamp envelope keys. Envelope keys win on collision, so a payload
// can never spoof them.
func wireBody(evt *Event, fields []string, ts int64) map[string]any {
	data := filterFields(evt.Data, fields)
	body := make(map[string]any, len(data)+2)
	for k, v := range data {
		body[k] = v
	}
	body["eventType"] = evt.Type
	body["timestamp"] = ts
	return body
}

// Send pushes an event to a subscription's URL and returns the raw outcome.
// The payload honors the subscription's field filter before signing, so the
// signature always covers exactly the bytes on the wire.
func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, evt *Event, d *Delivery) Result {
	ts := time.Now().Unix()
	body, err := json.Marshal(wireBody(evt, sub.PayloadFields, ts))
	if err != nil {
		return Result{Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Speckit-Gateway/1.0")
	req.Header.Set("X-Speckit-Event", evt.Type)
	req.Header.Set("X-Speckit-Delivery-ID", d.ID.String())
	req.Header.Set("X-Speckit-Signature", signature.Sign(body, sub.Secret, ts))
	req.Header.Set("X-Speckit-Timestamp", strconv.FormatInt(ts, 10))

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: URL is a user-configured webhook destination; SSRF is by design.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}

// filterFields narrows data to the subscription's payload-field allowlist.
// An empty allowlist means the full payload.
func filterFields(data map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return data
	}
	filtered := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := data[f]; ok {
			filtered[f] = v
		}
	}
	return filtered
}
