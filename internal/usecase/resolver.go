package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

// MarketService реализует domain.MarketResolver поверх двух источников
// (акции, затем крипта). Фоллбэк выражен упорядоченным списком попыток,
// а не вложенными ветками: новый источник - одна строка в списке.
type MarketService struct {
	provider domain.MarketDataProvider
	logger   *slog.Logger
}

func NewMarketService(provider domain.MarketDataProvider, logger *slog.Logger) *MarketService {
	return &MarketService{
		provider: provider,
		logger:   logger.With(slog.String("component", "market_service")),
	}
}

// priceAttempt - один источник цены. fetch возвращает (nil, nil),
// когда источник тикер не покрывает: это не ошибка, а переход дальше.
type priceAttempt struct {
	name  string
	fetch func(ctx context.Context, ticker string) (*domain.ResolvedPrice, error)
}

type historyAttempt struct {
	name  string
	fetch func(ctx context.Context, ticker, startDate string) ([]domain.OHLCBar, error)
}

// ResolvePrice пробует источники по порядку: первый успех выигрывает.
// Акции всегда в приоритете: если IEX дал цену, крипта не опрашивается.
func (s *MarketService) ResolvePrice(ctx context.Context, ticker string) (*domain.ResolvedPrice, error) {
	attempts := []priceAttempt{
		{name: "equity", fetch: s.equityPrice},
		{name: "crypto", fetch: s.cryptoPrice},
	}

	for _, a := range attempts {
		price, err := a.fetch(ctx, ticker)
		if err != nil {
			// Transport/Parse одного источника не валит резолв целиком
			s.logger.Warn("Price source failed, trying next",
				slog.String("source", a.name),
				slog.String("ticker", ticker),
				slog.String("err", err.Error()))
			continue
		}
		if price != nil {
			return price, nil
		}
	}

	return nil, &domain.NotFoundError{Ticker: ticker}
}

// ResolveHistory - тот же порядок источников для дневных свечей
func (s *MarketService) ResolveHistory(ctx context.Context, ticker string, startDate string) ([]domain.OHLCBar, error) {
	attempts := []historyAttempt{
		{name: "equity", fetch: s.provider.EquityHistory},
		{name: "crypto", fetch: s.provider.CryptoHistory},
	}

	for _, a := range attempts {
		bars, err := a.fetch(ctx, ticker, startDate)
		if err != nil {
			s.logger.Warn("History source failed, trying next",
				slog.String("source", a.name),
				slog.String("ticker", ticker),
				slog.String("err", err.Error()))
			continue
		}
		if len(bars) > 0 {
			sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
			return bars, nil
		}
	}

	return nil, &domain.NotFoundError{Ticker: ticker}
}

// fieldCandidate - одно поле котировки в цепочке фоллбэка
type fieldCandidate struct {
	name  string
	value *float64
}

func (s *MarketService) equityPrice(ctx context.Context, ticker string) (*domain.ResolvedPrice, error) {
	quote, err := s.provider.EquityQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, nil
	}

	// Цепочка полей: отсутствие одного поля не должно ронять котировку,
	// у которой есть следующее
	chain := []fieldCandidate{
		{name: "last", value: quote.Last},
		{name: "mid", value: quote.Mid},
		{name: "ask", value: quote.Ask},
		{name: "prevClose", value: quote.PrevClose},
		{name: "open", value: quote.Open},
	}

	for _, c := range chain {
		if c.value != nil {
			return &domain.ResolvedPrice{
				Ticker:    quote.Ticker,
				Price:     *c.value,
				PrevClose: quote.PrevClose,
				Class:     domain.ClassEquity,
			}, nil
		}
	}

	// Запись пришла, но ни одного числового поля - считаем, что данных нет
	s.logger.Warn("Equity quote had no usable price field", slog.String("ticker", ticker))
	return nil, nil
}

func (s *MarketService) cryptoPrice(ctx context.Context, ticker string) (*domain.ResolvedPrice, error) {
	quote, err := s.provider.CryptoQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.LastPrice == nil {
		return nil, nil
	}

	return &domain.ResolvedPrice{
		Ticker: quote.Ticker,
		Price:  *quote.LastPrice,
		// Крипто-фид не отдает предыдущее закрытие
		PrevClose: nil,
		Class:     domain.ClassCrypto,
	}, nil
}
