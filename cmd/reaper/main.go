package main

import (
	"context"
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
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName+"-reaper").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicHoldReleased, 1024, log)
	prod.Start(ctx)

	reaper := &checkout.Reaper{
		DB:       db,
		Products: &checkout.ProductRepo{DB: db},
		Holds:    &checkout.HoldRepo{DB: db},
		Cache:    &redisx.AvailabilityCache{R: rdb},
		Log:      log,
		OnReleased: func(ctx context.Context, h checkout.Hold) {
			ev := checkout.Envelope{
				EventID:       uuid.NewString(),
				EventType:     checkout.EventHoldReleased,
				EventVersion:  1,
				OccurredAt:    time.Now().UTC(),
				Producer:      cfg.ServiceName + "-reaper",
				CorrelationID: h.ID,
				Payload: kafkax.MustMarshal(checkout.HoldReleasedPayload{
					HoldID: h.ID, ProductID: h.ProductID, Qty: h.Qty, Cause: "expired",
				}),
			}
			prod.Publish(checkout.PartitionKey(h.ID), kafkax.MustMarshal(ev),
				kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventHoldReleased)},
				kafkago.Header{Key: "x-event-version", Value: []byte("1")},
			)
		},
	}

	go reaper.Run(ctx, cfg.ReaperInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down reaper...")
	cancel()
	time.Sleep(200 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}
