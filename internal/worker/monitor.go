package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Jray937/TrustMeBro/internal/domain"
	"github.com/Jray937/TrustMeBro/internal/watchlist"
)

// AlertMonitor - фоновый цикл проверки ценовых алертов. Базовая гарантия -
// polling-проход раз в интервал; websocket-стрим лишь ускоряет срабатывание
// между проходами. Алерт уходит не больше одного раза: оба пути проходят
// через Claim в сторе.
type AlertMonitor struct {
	store    *watchlist.Store
	resolver domain.MarketResolver
	notifier domain.AlertNotifier
	streamer domain.MarketStreamer // nil = только polling
	logger   *slog.Logger

	pollInterval time.Duration
	checkGap     time.Duration // пауза между тикерами внутри прохода (rate limit)
}

func NewAlertMonitor(
	store *watchlist.Store,
	resolver domain.MarketResolver,
	notifier domain.AlertNotifier,
	streamer domain.MarketStreamer,
	logger *slog.Logger,
	pollInterval time.Duration,
	checkGap time.Duration,
) *AlertMonitor {
	return &AlertMonitor{
		store:        store,
		resolver:     resolver,
		notifier:     notifier,
		streamer:     streamer,
		logger:       logger.With(slog.String("component", "alert_monitor")),
		pollInterval: pollInterval,
		checkGap:     checkGap,
	}
}

// Run крутится до отмены контекста. Ни одна ошибка цикла не фатальна.
func (m *AlertMonitor) Run(ctx context.Context) {
	m.logger.Info("Starting price alert monitor...")

	if m.streamer != nil {
		events, err := m.streamer.Subscribe(ctx, m.store.Tickers())
		if err != nil {
			m.logger.Error("Failed to start stream, polling only", "err", err)
		} else {
			go m.consumeStream(ctx, events)
		}
	}

	for {
		m.checkOnce(ctx)

		if !sleep(ctx, m.pollInterval) {
			m.logger.Info("Alert monitor stopped")
			return
		}
	}
}

// ReloadSubscriptions досылает в стрим тикеры, появившиеся после добавления
// алерта. Вызывается хендлером бота.
func (m *AlertMonitor) ReloadSubscriptions() {
	if m.streamer == nil {
		return
	}
	if err := m.streamer.AddSubscriptions(m.store.Tickers()); err != nil {
		m.logger.Error("Failed to refresh stream subscriptions", "err", err)
	}
}

// checkOnce - один polling-проход: снапшот, резолв каждой цены, доставка,
// удаление сработавших по хэндлу после прохода
func (m *AlertMonitor) checkOnce(ctx context.Context) {
	entries := m.store.Snapshot()
	if len(entries) == 0 {
		return
	}

	var fired []int64

	for i, e := range entries {
		price, err := m.resolver.ResolvePrice(ctx, e.Sub.Ticker)
		if err != nil {
			// Подписка остается и будет перепроверена в следующем цикле
			m.logger.Error("Error checking price for alert",
				slog.String("ticker", e.Sub.Ticker),
				slog.String("err", err.Error()))
		} else if e.Sub.Triggered(price.Price) {
			if m.dispatch(ctx, e, price.Price) {
				fired = append(fired, e.Handle)
			}
		}

		if i < len(entries)-1 && !sleep(ctx, m.checkGap) {
			break
		}
	}

	for _, h := range fired {
		m.store.Remove(h)
	}
}

// consumeStream - fast-path: событие из стрима проверяет алерты этого тикера
// немедленно, не дожидаясь прохода
func (m *AlertMonitor) consumeStream(ctx context.Context, events <-chan domain.PriceUpdateEvent) {
	m.logger.Info("Stream fast-path active")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			for _, e := range m.store.ByTicker(event.Ticker) {
				if e.Sub.Triggered(event.Price) {
					if m.dispatch(ctx, e, event.Price) {
						m.store.Remove(e.Handle)
					}
				}
			}
		}
	}
}

// dispatch доставляет алерт ровно один раз: Claim исключает гонку между
// polling-проходом и стримом. true = доставлено, подписку можно удалять.
func (m *AlertMonitor) dispatch(ctx context.Context, e watchlist.Entry, price float64) bool {
	if !m.store.Claim(e.Handle) {
		return false
	}

	if err := m.notifier.AlertTriggered(ctx, e.Sub, price); err != nil {
		// Неудачная доставка: условие скорее всего продержится до следующего цикла
		m.logger.Error("Failed to send alert",
			slog.String("ticker", e.Sub.Ticker),
			slog.String("err", err.Error()))
		m.store.Release(e.Handle)
		return false
	}

	m.logger.Info("🚨 Alert triggered",
		slog.String("ticker", e.Sub.Ticker),
		slog.Float64("price", price))
	return true
}

// sleep ждет d или отмену контекста. false = пора останавливаться.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
