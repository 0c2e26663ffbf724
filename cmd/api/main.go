package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-flash-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-flash-checkout.git/internal/config"
	"github.com/ariefcatur/go-flash-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-flash-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-flash-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-flash-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-flash-checkout.git/migrations"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := &redisx.AvailabilityCache{R: rdb}

	// Kafka producers (satu per topic, seperti worker lain)
	producers := map[string]*kafkax.Producer{}
	for _, topic := range []string{checkout.TopicHoldCreated, checkout.TopicOrderCreated, checkout.TopicOrderSettled} {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024, log)
		p.Start(ctx)
		producers[topic] = p
	}

	// Repos & services
	products := &checkout.ProductRepo{DB: db}
	holds := &checkout.HoldRepo{DB: db}
	orders := &checkout.OrderRepo{DB: db}
	payments := &checkout.PaymentRepo{DB: db}
	registry := checkout.DefaultRegistry(products, orders, payments)

	holdSvc := &checkout.HoldService{
		DB: db, Products: products, Holds: holds,
		Cache: cache, HoldTTL: cfg.HoldTTL, Log: log,
	}
	orderSvc := &checkout.OrderService{
		DB: db, Products: products, Holds: holds, Orders: orders,
		Payments: payments, Registry: registry, Cache: cache, Log: log,
	}
	paymentSvc := &checkout.PaymentService{
		DB: db, Products: products, Holds: holds, Orders: orders,
		Payments: payments, Cache: cache, Log: log,
	}

	router := httpx.NewRouter()
	ch := &httpx.CheckoutHandler{
		Products:  products,
		Orders:    orders,
		HoldSvc:   holdSvc,
		OrderSvc:  orderSvc,
		Payments:  paymentSvc,
		Producers: producers,
		Service:   cfg.ServiceName,
		Log:       log,
	}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
