package tiingo

import "time"

// --- DTOs для конкретных эндпоинтов ---

// iexQuoteDTO - элемент ответа /iex/?tickers=...
// Числовые поля указательные: Tiingo отдает null для неторгуемых полей.
type iexQuoteDTO struct {
	Ticker    string   `json:"ticker"`
	Last      *float64 `json:"last"`
	TngoLast  *float64 `json:"tngoLast"`
	Mid       *float64 `json:"mid"`
	AskPrice  *float64 `json:"askPrice"`
	BidPrice  *float64 `json:"bidPrice"`
	PrevClose *float64 `json:"prevClose"`
	Open      *float64 `json:"open"`
	Timestamp string   `json:"timestamp"`
}

// cryptoQuoteDTO - элемент ответа /tiingo/crypto/top?tickers=...
type cryptoQuoteDTO struct {
	Ticker         string   `json:"ticker"`
	LastPrice      *float64 `json:"lastPrice"`
	QuoteTimestamp string   `json:"quoteTimestamp"`
}

// barDTO - дневная свеча, общая для /tiingo/daily и крипто-истории
type barDTO struct {
	Date   string   `json:"date"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume"`
}

// cryptoHistoryDTO - крипто-история завернута на уровень глубже:
// [{"ticker": "btcusd", "priceData": [...]}]
type cryptoHistoryDTO struct {
	Ticker    string   `json:"ticker"`
	PriceData []barDTO `json:"priceData"`
}

// newsItemDTO - элемент ответа /tiingo/news
type newsItemDTO struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Description   string    `json:"description"`
	PublishedDate time.Time `json:"publishedDate"`
	Tags          []string  `json:"tags"`
	Tickers       []string  `json:"tickers"`
	Source        string    `json:"source"`
}
