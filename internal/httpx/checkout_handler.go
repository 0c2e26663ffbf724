package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-flash-checkout.git/internal/kafka"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type CheckoutHandler struct {
	Products *checkout.ProductRepo
	Orders   *checkout.OrderRepo
	HoldSvc  *checkout.HoldService
	OrderSvc *checkout.OrderService
	Payments *checkout.PaymentService

	// producer per topic; nil = publish dimatikan (mis. di test)
	Producers map[string]*kafkax.Producer
	Service   string
	Log       zerolog.Logger
}

type CreateHoldReq struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CreateHoldResp struct {
	HoldID    string    `json:"hold_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateOrderReq struct {
	HoldID string `json:"hold_id"`
}

type ProductResp struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Stock      int    `json:"stock"`
	Available  int    `json:"available"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Post("/holds", h.createHold)
	r.Post("/orders", h.createOrder)
	r.Post("/payments/webhook", h.paymentWebhook)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *CheckoutHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CheckoutHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if uuid.Validate(id) != nil {
		// id bukan uuid nggak mungkin ada
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	product, err := h.Products.Get(ctx, id)
	if errors.Is(err, checkout.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	available, err := h.HoldSvc.Availability(ctx, product)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, ProductResp{
		ID:         product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Stock:      product.Stock,
		Available:  available,
	})
}

func (h *CheckoutHandler) createHold(w http.ResponseWriter, r *http.Request) {
	var req CreateHoldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.Qty < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	if uuid.Validate(req.ProductID) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	hold, err := h.HoldSvc.CreateHold(ctx, req.ProductID, req.Qty)
	if errors.Is(err, checkout.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	if errors.Is(err, checkout.ErrInsufficientStock) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "not enough stock"})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("create hold")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.publish(checkout.TopicHoldCreated, checkout.EventHoldCreated, hold.ID, r,
		checkout.HoldCreatedPayload{HoldID: hold.ID, ProductID: hold.ProductID, Qty: hold.Qty, ExpiresAt: hold.ExpiresAt})

	writeJSON(w, http.StatusCreated, CreateHoldResp{HoldID: hold.ID, ExpiresAt: hold.ExpiresAt})
}

func (h *CheckoutHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.HoldID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing hold_id"})
		return
	}
	if uuid.Validate(req.HoldID) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hold_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.OrderSvc.PlaceOrder(ctx, req.HoldID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	switch res.Code {
	case checkout.PlaceOK:
		h.publish(checkout.TopicOrderCreated, checkout.EventOrderCreated, res.Order.ID, r,
			checkout.OrderCreatedPayload{
				OrderID: res.Order.ID, HoldID: res.Order.HoldID, ProductID: res.Order.ProductID,
				Qty: res.Order.Qty, TotalCents: res.Order.TotalCents, Status: string(res.Order.Status),
			})
		writeJSON(w, http.StatusCreated, res.Order)
	case checkout.PlaceHoldNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Hold not found."})
	case checkout.PlaceHoldExpiredOrReleased:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Hold expired or released."})
	case checkout.PlaceHoldAlreadyUsed:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Hold already used."})
	case checkout.PlaceProductMissing:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Hold product missing."})
	case checkout.PlaceInsufficientStock:
		h.publish(checkout.TopicOrderSettled, checkout.EventOrderSettled, res.Order.ID, r,
			checkout.OrderSettledPayload{OrderID: res.Order.ID, FinalStatus: string(checkout.OrderCancelled), Reason: checkout.ReasonInsufficientStock})
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Insufficient stock, order cancelled"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *CheckoutHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var in checkout.PaymentNotification
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.IdempotencyKey == "" || !in.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	if in.OrderID != "" && uuid.Validate(in.OrderID) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}
	if in.HoldID != "" && uuid.Validate(in.HoldID) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hold_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Payments.HandleNotification(ctx, in)
	if errors.Is(err, checkout.ErrOrderNotFound) || errors.Is(err, checkout.ErrHoldNotFound) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("payment webhook")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if res.Status == string(checkout.OrderPaid) || res.Status == string(checkout.OrderCancelled) {
		h.publish(checkout.TopicOrderSettled, checkout.EventOrderSettled, in.IdempotencyKey, r,
			checkout.OrderSettledPayload{OrderID: res.OrderID, FinalStatus: res.Status, Reason: res.Reason})
	}

	// gagal karena stok habis -> 422, selain itu 200
	if res.Reason == checkout.ReasonInsufficientStock {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CheckoutHandler) publish(topic, eventType, correlationID string, r *http.Request, payload any) {
	p, ok := h.Producers[topic]
	if !ok || p == nil {
		return
	}
	ev := checkout.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(checkout.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
