package checkout

import (
	"encoding/json"
	"time"
)

const (
	EventHoldCreated  = "HoldCreated"
	EventOrderCreated = "OrderCreated"
	EventOrderSettled = "OrderSettled"
	EventHoldReleased = "HoldReleased"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // hold_id / order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type HoldCreatedPayload struct {
	HoldID    string    `json:"hold_id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type OrderCreatedPayload struct {
	OrderID    string `json:"order_id"`
	HoldID     string `json:"hold_id"`
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	TotalCents int    `json:"total_cents"`
	Status     string `json:"status"`
}

type OrderSettledPayload struct {
	OrderID     string `json:"order_id"`
	FinalStatus string `json:"final_status"` // paid | cancelled
	Reason      string `json:"reason,omitempty"`
}

type HoldReleasedPayload struct {
	HoldID    string `json:"hold_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Cause     string `json:"cause"` // expired | payment_failed | insufficient_stock
}
