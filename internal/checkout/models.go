package checkout

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Hold struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	Released  bool      `json:"released"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID         string      `json:"id"`
	HoldID     string      `json:"hold_id"`
	ProductID  string      `json:"product_id"`
	Qty        int         `json:"quantity"`
	TotalCents int         `json:"total_cents"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Payment struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotency_key"`
	OrderID        string          `json:"order_id,omitempty"` // nullable: webhook bisa datang sebelum order ada
	HoldID         string          `json:"hold_id,omitempty"`
	Status         PaymentStatus   `json:"status"`
	AmountCents    int             `json:"amount_cents"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Applied        bool            `json:"applied"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Gateway diambil dari metadata (mis. {"gateway":"stripe"}), dipakai buat pilih strategy.
func (p *Payment) Gateway() string {
	if len(p.Metadata) == 0 {
		return ""
	}
	var m struct {
		Gateway string `json:"gateway"`
	}
	if err := json.Unmarshal(p.Metadata, &m); err != nil {
		return ""
	}
	return m.Gateway
}
