package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/config"
	kafkax "github.com/ariefcatur/go-flash-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-flash-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-flash-checkout.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// sink: konsumsi notifikasi payment dari topic dan suapkan ke processor.
// Delivery duplikat aman, processor idempoten di idempotency_key.
type sink struct {
	Payments *checkout.PaymentService
	Redis    *redis.Client
	Log      zerolog.Logger
}

// decode: value bisa Envelope v1 (payload = notifikasi) atau notifikasi polos.
func decode(value []byte) (checkout.PaymentNotification, error) {
	var ev checkout.Envelope
	if err := kafkax.UnmarshalEnvelope(value, &ev); err == nil && len(ev.Payload) > 0 {
		return kafkax.UnwrapPayload[checkout.PaymentNotification](ev.Payload)
	}
	var in checkout.PaymentNotification
	err := json.Unmarshal(value, &in)
	return in, err
}

func (s *sink) handle(ctx context.Context, m kafkago.Message) error {
	in, err := decode(m.Value)
	if err != nil {
		// pesan rusak: log lalu commit, retry nggak bakal nolong
		s.Log.Error().Err(err).Msg("bad notification payload")
		return nil
	}
	if in.IdempotencyKey == "" || !in.Status.Valid() {
		s.Log.Error().Str("idempotency_key", in.IdempotencyKey).Msg("invalid notification, drop")
		return nil
	}
	if (in.OrderID != "" && uuid.Validate(in.OrderID) != nil) ||
		(in.HoldID != "" && uuid.Validate(in.HoldID) != nil) {
		s.Log.Error().Str("idempotency_key", in.IdempotencyKey).Msg("malformed reference, drop")
		return nil
	}

	// dedup cepat via redis; DB tetap jadi kebenaran
	dkey := fmt.Sprintf(redisx.KeyDedup, "payment-sink", in.IdempotencyKey)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	res, err := s.Payments.HandleNotification(ctx, in)
	if errors.Is(err, checkout.ErrOrderNotFound) || errors.Is(err, checkout.ErrHoldNotFound) {
		// referensi nggak dikenal nggak bakal sembuh di-retry
		s.Log.Error().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("unknown reference, drop")
		return nil
	}
	if err != nil {
		return err // jangan commit, biar ke-retry
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	s.Log.Info().Str("idempotency_key", in.IdempotencyKey).Str("status", res.Status).
		Msg("notification processed")
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-payments").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	products := &checkout.ProductRepo{DB: db}
	holds := &checkout.HoldRepo{DB: db}
	orders := &checkout.OrderRepo{DB: db}
	payments := &checkout.PaymentRepo{DB: db}

	s := &sink{
		Payments: &checkout.PaymentService{
			DB: db, Products: products, Holds: holds, Orders: orders,
			Payments: payments, Cache: &redisx.AvailabilityCache{R: rdb}, Log: log,
		},
		Redis: rdb,
		Log:   log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.PaymentGroup, checkout.TopicPaymentNotification, cfg.PaymentWorkers, log)

	go func() {
		log.Info().Str("group", cfg.PaymentGroup).Str("topic", checkout.TopicPaymentNotification).
			Int("workers", cfg.PaymentWorkers).Msg("payment consumer started")
		if err := cons.Start(ctx, s.handle); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
