package checkout

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrHoldNotFound      = errors.New("hold not found")
)

// PlaceOrderCode: hasil bisnis dari PlaceOrder. Bukan error, kegagalan rule
// diputuskan di dalam transaksi dan dikembalikan sebagai nilai biasa, supaya
// commit/rollback murni soal storage.
type PlaceOrderCode string

const (
	PlaceOK                    PlaceOrderCode = "ok"
	PlaceHoldNotFound          PlaceOrderCode = "hold_not_found"
	PlaceHoldExpiredOrReleased PlaceOrderCode = "hold_expired_or_released"
	PlaceHoldAlreadyUsed       PlaceOrderCode = "hold_already_used"
	PlaceProductMissing        PlaceOrderCode = "product_missing"
	PlaceInsufficientStock     PlaceOrderCode = "insufficient_stock"
)

type PlaceOrderResult struct {
	Code  PlaceOrderCode
	Order *Order // terisi saat PlaceOK atau PlaceInsufficientStock (order cancelled)
}

// WebhookResult: status resolved untuk caller webhook. Untuk key yang sudah
// pernah diproses, Status mengulang outcome yang dulu, apa pun body sekarang.
// OrderID terisi kalau notifikasi men-settle (atau me-replay) sebuah order.
type WebhookResult struct {
	Status  string `json:"status"` // recorded | paid | cancelled | success | failure
	Reason  string `json:"reason,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

const (
	WebhookRecorded = "recorded"

	ReasonInsufficientStock = "insufficient_stock"
)
