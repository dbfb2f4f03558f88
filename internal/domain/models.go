package domain

import (
	"time"
)

// --- Enums & Constants ---

// AlertDirection - в какую сторону должна пройти цена
type AlertDirection string

const (
	DirectionAbove AlertDirection = "ABOVE" // цена >= цели
	DirectionBelow AlertDirection = "BELOW" // цена <= цели
)

// InstrumentClass - откуда пришла цена (влияет на доступные поля)
type InstrumentClass string

const (
	ClassEquity InstrumentClass = "EQUITY"
	ClassCrypto InstrumentClass = "CRYPTO"
)

// --- Entities ---

// User - пользователь бота
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	CreatedAt  time.Time
}

// Subscription - подписка на ценовой алерт.
// После создания неизменяема; удаляется ровно один раз после успешной доставки.
type Subscription struct {
	UserID      int64
	ChatID      int64 // куда слать уведомление
	Ticker      string
	TargetPrice float64
	Direction   AlertDirection
	CreatedAt   time.Time
}

// Triggered проверяет условие срабатывания по текущей цене
func (s Subscription) Triggered(price float64) bool {
	switch s.Direction {
	case DirectionAbove:
		return price >= s.TargetPrice
	case DirectionBelow:
		return price <= s.TargetPrice
	}
	return false
}

// FiredAlert - запись об уже сработавшем алерте (история для /history)
type FiredAlert struct {
	ID          int64
	ChatID      int64
	Ticker      string
	TargetPrice float64
	Direction   AlertDirection
	FiredPrice  float64
	FiredAt     time.Time
}

// --- Value Objects ---

// ResolvedPrice - результат резолва цены. Живет один вызов, не кэшируется.
type ResolvedPrice struct {
	Ticker    string
	Price     float64
	PrevClose *float64 // только для акций, крипта не отдает
	Class     InstrumentClass
}

// ChangePercent - изменение к предыдущему закрытию, nil если PrevClose нет
func (p ResolvedPrice) ChangePercent() *float64 {
	if p.PrevClose == nil || *p.PrevClose == 0 {
		return nil
	}
	ch := (p.Price - *p.PrevClose) / *p.PrevClose * 100.0
	return &ch
}

// EquityQuote - сырая котировка фондового источника. Поля опциональны:
// провайдеры расходятся в том, какие из них заполнены.
type EquityQuote struct {
	Ticker    string
	Last      *float64
	Mid       *float64
	Ask       *float64
	PrevClose *float64
	Open      *float64
}

// CryptoQuote - сырая котировка крипто-источника
type CryptoQuote struct {
	Ticker    string
	LastPrice *float64
}

// OHLCBar - дневная свеча. Серия всегда отсортирована по дате по возрастанию.
type OHLCBar struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume *float64
}

// NewsItem - новость из фида
type NewsItem struct {
	Title       string
	URL         string
	Description string
	PublishedAt time.Time // UTC
	Tags        []string
	Tickers     []string
	Source      string
}
