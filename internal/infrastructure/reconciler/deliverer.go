package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderly/backend/internal/domain/stats"
)

// Deliverer applies a statistics delta at the customer aggregate.
// applied is false when the aggregate had already absorbed the delta;
// that is a success, not an error.
type Deliverer interface {
	Deliver(ctx context.Context, delta stats.Delta) (applied bool, err error)
}

// HTTPDeliverer posts deltas to the profiles service
type HTTPDeliverer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDeliverer creates a deliverer targeting the profiles service at baseURL
func NewHTTPDeliverer(baseURL string, timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPDeliverer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type deltaPayload struct {
	CustomerID              uuid.UUID       `json:"customer_id"`
	OrderCountDelta         int64           `json:"order_count_delta"`
	OrderValueDelta         decimal.Decimal `json:"order_value_delta"`
	ComplaintCountDelta     int64           `json:"complaint_count_delta"`
	OpenComplaintCountDelta int64           `json:"open_complaint_count_delta"`
	DedupKey                uuid.UUID       `json:"dedup_key"`
}

type deltaEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Applied bool `json:"applied"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Deliver posts the delta and reports whether the aggregate changed
func (d *HTTPDeliverer) Deliver(ctx context.Context, delta stats.Delta) (bool, error) {
	payload := deltaPayload{
		CustomerID:              delta.CustomerID,
		OrderCountDelta:         delta.OrderCountDelta,
		OrderValueDelta:         delta.OrderValueDelta,
		ComplaintCountDelta:     delta.ComplaintCountDelta,
		OpenComplaintCountDelta: delta.OpenComplaintCountDelta,
		DedupKey:                delta.DedupKey,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode delta: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/v1/profiles/deltas", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to reach profiles service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope deltaEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		if envelope.Error != nil {
			return false, fmt.Errorf("profiles service rejected delta: %s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return false, fmt.Errorf("profiles service returned status %d", resp.StatusCode)
	}

	return envelope.Data.Applied, nil
}

var _ Deliverer = (*HTTPDeliverer)(nil)
