package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// ctx cancel dan Close() bisa dateng barengan (shutdown reaper); dua-duanya
// harus berujung WaitClosed balik, bukan hang.
func TestProducerShutdownRaceDoesNotHang(t *testing.T) {
	for i := 0; i < 10; i++ {
		p := NewProducer([]string{"localhost:0"}, "race-topic", 8, zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		p.Start(ctx)

		cancel()
		p.Close()

		done := make(chan struct{})
		go func() {
			p.WaitClosed()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("WaitClosed hang after concurrent cancel+Close")
		}
	}
}

func TestProducerCloseFlushesAndStops(t *testing.T) {
	p := NewProducer([]string{"localhost:0"}, "close-topic", 8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Close()

	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitClosed hang after Close")
	}
}
