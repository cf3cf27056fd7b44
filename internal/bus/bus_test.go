package bus

import (
	"errors"
	"testing"
	"time"

	"ConeCast/internal/domain/models"
)

func trade() models.TradePrint {
	return models.TradePrint{
		EventBase: models.EventBase{
			TS:     time.Now(),
			RecvTS: time.Now(),
			Symbol: "BTC",
			Venue:  models.VenueSynthetic,
			Etype:  models.KindTradePrint,
		},
		Price: 100, Size: 1, Side: models.SideBuy,
	}
}

func TestPublishInRegistrationOrder(t *testing.T) {
	b := New()
	var order []int
	b.Subscribe(models.KindTradePrint, func(models.Event) error {
		order = append(order, 1)
		return nil
	})
	b.Subscribe(models.KindTradePrint, func(models.Event) error {
		order = append(order, 2)
		return nil
	})
	if err := b.Publish(trade()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v", order)
	}
}

func TestPublishStopsOnError(t *testing.T) {
	b := New()
	want := errors.New("boom")
	called := false
	b.Subscribe(models.KindTradePrint, func(models.Event) error { return want })
	b.Subscribe(models.KindTradePrint, func(models.Event) error {
		called = true
		return nil
	})
	if err := b.Publish(trade()); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatalf("second handler ran after error")
	}
}

func TestPublishIgnoresUnsubscribedKind(t *testing.T) {
	b := New()
	b.Subscribe(models.KindOITick, func(models.Event) error {
		t.Fatal("wrong kind dispatched")
		return nil
	})
	if err := b.Publish(trade()); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
