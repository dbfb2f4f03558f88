package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Jray937/TrustMeBro/internal/domain"
	"github.com/Jray937/TrustMeBro/internal/watchlist"
)

// scriptedResolver отдает цены по заранее заданному сценарию циклов
type scriptedResolver struct {
	mu     sync.Mutex
	prices map[string][]float64 // очередь цен на тикер
	errs   map[string]error
}

func (r *scriptedResolver) ResolvePrice(ctx context.Context, ticker string) (*domain.ResolvedPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.errs[ticker]; err != nil {
		return nil, err
	}
	queue := r.prices[ticker]
	if len(queue) == 0 {
		return nil, &domain.NotFoundError{Ticker: ticker}
	}
	price := queue[0]
	if len(queue) > 1 {
		r.prices[ticker] = queue[1:]
	}
	return &domain.ResolvedPrice{Ticker: ticker, Price: price, Class: domain.ClassEquity}, nil
}

func (r *scriptedResolver) ResolveHistory(ctx context.Context, ticker, startDate string) ([]domain.OHLCBar, error) {
	return nil, &domain.NotFoundError{Ticker: ticker}
}

// recordingNotifier копит доставленные алерты; может падать по команде
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []domain.Subscription
	fail  bool
	calls int
}

func (n *recordingNotifier) AlertTriggered(ctx context.Context, sub domain.Subscription, price float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return &domain.DeliveryError{Err: errors.New("telegram down")}
	}
	n.sent = append(n.sent, sub)
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestMonitor(store *watchlist.Store, resolver domain.MarketResolver, notifier domain.AlertNotifier) *AlertMonitor {
	return NewAlertMonitor(store, resolver, notifier, nil, discard(), time.Minute, 0)
}

func TestCheckOnceFiresOnCross(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	// Три цикла: ниже цели, ниже цели, выше цели
	resolver := &scriptedResolver{prices: map[string][]float64{
		"TSLA": {148.0, 149.5, 151.2},
	}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(store, resolver, notifier)

	ctx := context.Background()
	m.checkOnce(ctx)
	m.checkOnce(ctx)
	if notifier.sentCount() != 0 {
		t.Fatalf("alert fired below target: %d sends", notifier.sentCount())
	}

	m.checkOnce(ctx)
	if notifier.sentCount() != 1 {
		t.Fatalf("expected exactly 1 send, got %d", notifier.sentCount())
	}
	if store.Len() != 0 {
		t.Error("fired subscription must be removed")
	}

	// Дальнейшие циклы ничего не шлют
	m.checkOnce(ctx)
	if notifier.sentCount() != 1 {
		t.Error("alert must fire at most once")
	}
}

func TestCheckOnceBelowDirection(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionBelow,
	})

	resolver := &scriptedResolver{prices: map[string][]float64{
		"TSLA": {151.0, 149.9},
	}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(store, resolver, notifier)

	ctx := context.Background()
	m.checkOnce(ctx)
	if notifier.sentCount() != 0 {
		t.Fatal("below-alert fired above target")
	}
	m.checkOnce(ctx)
	if notifier.sentCount() != 1 {
		t.Fatalf("expected 1 send at or under target, got %d", notifier.sentCount())
	}
}

func TestCheckOnceExactTargetFires(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	resolver := &scriptedResolver{prices: map[string][]float64{"TSLA": {150.0}}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(store, resolver, notifier)

	m.checkOnce(context.Background())
	if notifier.sentCount() != 1 {
		t.Fatal("price equal to target must trigger")
	}
}

func TestCheckOnceFailedDeliveryKeepsSubscription(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	resolver := &scriptedResolver{prices: map[string][]float64{"TSLA": {155.0}}}
	notifier := &recordingNotifier{fail: true}
	m := newTestMonitor(store, resolver, notifier)

	ctx := context.Background()
	m.checkOnce(ctx)
	if store.Len() != 1 {
		t.Fatal("subscription must survive failed delivery")
	}

	// Сток ожил: следующий цикл доставляет
	notifier.fail = false
	m.checkOnce(ctx)
	if notifier.sentCount() != 1 {
		t.Fatalf("expected delivery after sink recovery, got %d", notifier.sentCount())
	}
	if store.Len() != 0 {
		t.Error("subscription must be removed after successful delivery")
	}
}

func TestCheckOnceResolveErrorKeepsSubscription(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	resolver := &scriptedResolver{
		prices: map[string][]float64{},
		errs:   map[string]error{"TSLA": &domain.TransportError{Source: "equity", Err: errors.New("timeout")}},
	}
	notifier := &recordingNotifier{}
	m := newTestMonitor(store, resolver, notifier)

	m.checkOnce(context.Background())
	if store.Len() != 1 {
		t.Fatal("subscription must survive resolve errors")
	}
	if notifier.sentCount() != 0 {
		t.Fatal("nothing must be sent on resolve error")
	}
}

func TestCheckOnceOtherAlertsUnaffected(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{ChatID: 1, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove})
	kept := store.Add(domain.Subscription{ChatID: 2, Ticker: "AAPL", TargetPrice: 500.0, Direction: domain.DirectionAbove})

	resolver := &scriptedResolver{prices: map[string][]float64{
		"TSLA": {155.0},
		"AAPL": {180.0},
	}}
	notifier := &recordingNotifier{}
	m := newTestMonitor(store, resolver, notifier)

	m.checkOnce(context.Background())

	entries := store.Snapshot()
	if len(entries) != 1 || entries[0].Handle != kept {
		t.Fatalf("untriggered alert must keep its handle, got %+v", entries)
	}
}

func TestStreamEventFiresImmediately(t *testing.T) {
	store := watchlist.NewStore()
	store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	notifier := &recordingNotifier{}
	m := newTestMonitor(store, &scriptedResolver{}, notifier)

	events := make(chan domain.PriceUpdateEvent, 1)
	// Стрим нормализует тикеры в нижний регистр
	events <- domain.PriceUpdateEvent{Ticker: "tsla", Price: 152.0, Timestamp: time.Now()}
	close(events)

	m.consumeStream(context.Background(), events)

	if notifier.sentCount() != 1 {
		t.Fatalf("expected stream fast-path delivery, got %d", notifier.sentCount())
	}
	if store.Len() != 0 {
		t.Error("fired subscription must be removed")
	}
}

func TestStreamAndPollDoNotDoubleFire(t *testing.T) {
	store := watchlist.NewStore()
	h := store.Add(domain.Subscription{
		ChatID: 10, Ticker: "TSLA", TargetPrice: 150.0, Direction: domain.DirectionAbove,
	})

	// Симулируем гонку: polling-проход уже захватил подписку
	if !store.Claim(h) {
		t.Fatal("setup claim failed")
	}

	notifier := &recordingNotifier{}
	m := newTestMonitor(store, &scriptedResolver{}, notifier)

	events := make(chan domain.PriceUpdateEvent, 1)
	events <- domain.PriceUpdateEvent{Ticker: "tsla", Price: 152.0, Timestamp: time.Now()}
	close(events)

	m.consumeStream(context.Background(), events)

	if notifier.calls != 0 {
		t.Fatal("claimed subscription must not be dispatched twice")
	}
}
