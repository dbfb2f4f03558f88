package domain

import (
	"context"
)

// MarketDataProvider - сырые котировки и история по двум классам инструментов.
// Пустой ответ источника (тикер не покрыт) - это (nil, nil) / пустой срез, не ошибка.
type MarketDataProvider interface {
	EquityQuote(ctx context.Context, ticker string) (*EquityQuote, error)
	CryptoQuote(ctx context.Context, ticker string) (*CryptoQuote, error)
	EquityHistory(ctx context.Context, ticker string, startDate string) ([]OHLCBar, error)
	CryptoHistory(ctx context.Context, ticker string, startDate string) ([]OHLCBar, error)
}

// MarketResolver - резолвер цен с фоллбэком по источникам (акции -> крипта)
type MarketResolver interface {
	// Получить текущую цену. Если ни один источник не дал данных - NotFoundError.
	ResolvePrice(ctx context.Context, ticker string) (*ResolvedPrice, error)

	// Получить дневные свечи начиная с startDate, отсортированные по возрастанию даты.
	ResolveHistory(ctx context.Context, ticker string, startDate string) ([]OHLCBar, error)
}

// NewsFetcher - источник новостного фида
type NewsFetcher interface {
	// Вернуть до limit свежих новостей, опционально отфильтрованных по тикерам/тегам
	FetchNews(ctx context.Context, limit int) ([]NewsItem, error)
}

// AlertNotifier - доставка сработавшего алерта. Форматирование - забота реализации,
// циклы смотрят только на успех/ошибку.
type AlertNotifier interface {
	AlertTriggered(ctx context.Context, sub Subscription, price float64) error
}

// NewsNotifier - доставка новости в канал
type NewsNotifier interface {
	NewsPublished(ctx context.Context, chatID int64, item NewsItem) error
}

// UserRepository - реестр пользователей в БД
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
}

// AlertHistoryRepository - архив сработавших алертов (для /history)
type AlertHistoryRepository interface {
	Record(ctx context.Context, fired *FiredAlert) error
	RecentByChatID(ctx context.Context, chatID int64, limit int) ([]FiredAlert, error)
}

// MarketStreamer - живой поток цен поверх websocket.
// Канал закрывается после отмены контекста.
type MarketStreamer interface {
	Subscribe(ctx context.Context, tickers []string) (<-chan PriceUpdateEvent, error)
	AddSubscriptions(tickers []string) error
}
