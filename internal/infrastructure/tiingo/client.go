package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

const (
	BaseURL = "https://api.tiingo.com"

	sourceIEX    = "tiingo-iex"
	sourceCrypto = "tiingo-crypto"
	sourceNews   = "tiingo-news"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// Фильтры новостного фида, задаются один раз при старте
	newsTickers []string
	newsTags    []string
}

// NewClient - timeout обязателен, чтобы зависший апстрим не завесил цикл
func NewClient(token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    BaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithNewsFilters задает фильтры для FetchNews. Пустые списки = без фильтра.
func (c *Client) WithNewsFilters(tickers, tags []string) *Client {
	c.newsTickers = tickers
	c.newsTags = tags
	return c
}

// --- Implementation of domain.MarketDataProvider ---

// EquityQuote возвращает котировку IEX. Пустой список = тикер не покрыт, (nil, nil).
func (c *Client) EquityQuote(ctx context.Context, ticker string) (*domain.EquityQuote, error) {
	params := url.Values{}
	params.Set("tickers", ticker)

	var quotes []iexQuoteDTO
	if err := c.get(ctx, sourceIEX, "/iex/", params, &quotes); err != nil {
		return nil, err
	}

	if len(quotes) == 0 {
		return nil, nil
	}

	q := quotes[0]
	last := q.Last
	if last == nil {
		// IEX вне торговой сессии кладет последнюю цену в tngoLast
		last = q.TngoLast
	}

	return &domain.EquityQuote{
		Ticker:    q.Ticker,
		Last:      last,
		Mid:       q.Mid,
		Ask:       q.AskPrice,
		PrevClose: q.PrevClose,
		Open:      q.Open,
	}, nil
}

// CryptoQuote возвращает верхушку стакана крипто-фида. Пустой список = (nil, nil).
func (c *Client) CryptoQuote(ctx context.Context, ticker string) (*domain.CryptoQuote, error) {
	params := url.Values{}
	params.Set("tickers", ticker)

	var quotes []cryptoQuoteDTO
	if err := c.get(ctx, sourceCrypto, "/tiingo/crypto/top", params, &quotes); err != nil {
		return nil, err
	}

	if len(quotes) == 0 {
		return nil, nil
	}

	return &domain.CryptoQuote{
		Ticker:    quotes[0].Ticker,
		LastPrice: quotes[0].LastPrice,
	}, nil
}

// EquityHistory - дневные свечи, плоский массив
func (c *Client) EquityHistory(ctx context.Context, ticker string, startDate string) ([]domain.OHLCBar, error) {
	params := url.Values{}
	params.Set("startDate", startDate)

	var bars []barDTO
	endpoint := fmt.Sprintf("/tiingo/daily/%s/prices", url.PathEscape(ticker))
	if err := c.get(ctx, sourceIEX, endpoint, params, &bars); err != nil {
		return nil, err
	}

	return mapBars(bars), nil
}

// CryptoHistory - свечи ресемплятся до дневных; ответ обернут на уровень глубже
func (c *Client) CryptoHistory(ctx context.Context, ticker string, startDate string) ([]domain.OHLCBar, error) {
	params := url.Values{}
	params.Set("tickers", ticker)
	params.Set("startDate", startDate)
	params.Set("resampleFreq", "1day")

	var wrappers []cryptoHistoryDTO
	if err := c.get(ctx, sourceCrypto, "/tiingo/crypto/prices", params, &wrappers); err != nil {
		return nil, err
	}

	if len(wrappers) == 0 {
		return nil, nil
	}

	return mapBars(wrappers[0].PriceData), nil
}

// --- Implementation of domain.NewsFetcher ---

func (c *Client) FetchNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if len(c.newsTickers) > 0 {
		params.Set("tickers", strings.Join(c.newsTickers, ","))
	}
	if len(c.newsTags) > 0 {
		params.Set("tags", strings.Join(c.newsTags, ","))
	}

	var articles []newsItemDTO
	if err := c.get(ctx, sourceNews, "/tiingo/news", params, &articles); err != nil {
		return nil, err
	}

	items := make([]domain.NewsItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, domain.NewsItem{
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: a.PublishedDate.UTC(),
			Tags:        a.Tags,
			Tickers:     a.Tickers,
			Source:      a.Source,
		})
	}
	return items, nil
}

// --- Private Helpers ---

// get выполняет GET с токеном и раскладывает ошибки по таксономии:
// сеть/не-2xx -> TransportError, битое тело -> ParseError (с куском тела для логов)
func (c *Client) get(ctx context.Context, source, endpoint string, params url.Values, result interface{}) error {
	params.Set("token", c.token)
	fullURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return &domain.TransportError{Source: source, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Source: source, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.TransportError{
			Source: source,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &domain.ParseError{
			Source: source,
			Err:    fmt.Errorf("%w | body: %s", err, truncate(body, 500)),
		}
	}

	return nil
}

func mapBars(bars []barDTO) []domain.OHLCBar {
	out := make([]domain.OHLCBar, 0, len(bars))
	for _, b := range bars {
		out = append(out, domain.OHLCBar{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
