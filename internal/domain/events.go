package domain

import "time"

// MarketEvent - маркерный интерфейс
type MarketEvent interface {
	GetTicker() string
	GetTime() time.Time
}

// PriceUpdateEvent - событие изменения цены из стрима, триггерит внеочередную проверку алертов
type PriceUpdateEvent struct {
	Ticker    string
	Price     float64
	Timestamp time.Time
	Source    string
}

func (e PriceUpdateEvent) GetTicker() string  { return e.Ticker }
func (e PriceUpdateEvent) GetTime() time.Time { return e.Timestamp }
