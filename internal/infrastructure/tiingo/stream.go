package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

const (
	// Публичный IEX-стрим: трейды и верх стакана по подписанным тикерам
	StreamURL = "wss://api.tiingo.com/iex"

	reconnectDelay = 5 * time.Second
	pingInterval   = 20 * time.Second

	// thresholdLevel=5 - только трейды, без котировочного шума
	tradeThreshold = 5
)

// Позиции в data-массиве трейд-сообщения ("T")
const (
	idxUpdateType = 0
	idxTicker     = 3
	idxLastPrice  = 9
)

type MarketStream struct {
	url       string
	token     string
	logger    *slog.Logger
	reconnect time.Duration

	// mu закрывает conn; sendSubscribe сам замок не берет,
	// писать в conn можно только держа mu
	conn *websocket.Conn
	mu   sync.Mutex

	// Храним список активных подписок для автоматического реконнекта
	activeSubs []string
	subsMu     sync.RWMutex
}

func NewMarketStream(token string, logger *slog.Logger) *MarketStream {
	return &MarketStream{
		url:        StreamURL,
		token:      token,
		logger:     logger.With(slog.String("component", "market_stream")),
		reconnect:  reconnectDelay,
		activeSubs: make([]string, 0),
	}
}

// Subscribe сохраняет тикеры и запускает процесс чтения.
// Канал закрывается, когда контекст отменен.
func (s *MarketStream) Subscribe(ctx context.Context, tickers []string) (<-chan domain.PriceUpdateEvent, error) {
	out := make(chan domain.PriceUpdateEvent, 100)

	s.subsMu.Lock()
	s.activeSubs = normalize(tickers)
	s.subsMu.Unlock()

	go s.maintainConnection(ctx, out)

	return out, nil
}

// AddSubscriptions добавляет новые тикеры "на лету" без разрыва соединения
func (s *MarketStream) AddSubscriptions(tickers []string) error {
	s.subsMu.Lock()
	var newSubs []string
	for _, raw := range normalize(tickers) {
		exists := false
		for _, old := range s.activeSubs {
			if raw == old {
				exists = true
				break
			}
		}
		if !exists {
			s.activeSubs = append(s.activeSubs, raw)
			newSubs = append(newSubs, raw)
		}
	}
	s.subsMu.Unlock()

	if len(newSubs) == 0 {
		return nil
	}

	// Если соединение активно, отправляем команду подписки немедленно
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.sendSubscribe(newSubs)
	}
	return nil
}

func (s *MarketStream) maintainConnection(ctx context.Context, out chan domain.PriceUpdateEvent) {
	defer close(out)

	for {
		s.subsMu.RLock()
		subs := s.activeSubs
		s.subsMu.RUnlock()

		if err := s.connectAndListen(ctx, subs, out); err != nil {
			s.logger.Error("Connection lost or failed", "err", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Market stream stopped")
			return
		case <-time.After(s.reconnect):
			s.logger.Info("Reconnecting...")
		}
	}
}

func (s *MarketStream) connectAndListen(ctx context.Context, tickers []string, out chan<- domain.PriceUpdateEvent) error {
	s.logger.Info("Connecting to Tiingo IEX stream...", "url", s.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	// Подписываемся сразу на все накопленные тикеры. Замок обязателен:
	// AddSubscriptions из горутины бота уже видит s.conn.
	if len(tickers) > 0 {
		s.mu.Lock()
		err := s.sendSubscribe(tickers)
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.heartbeat(connCtx)
	go func() {
		// Отмена контекста рвет соединение, чтобы разблокировать ReadMessage
		<-connCtx.Done()
		conn.Close()
	}()

	// Цикл чтения
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		// Игнорируем heartbeat и ответы на subscribe
		if msg.MessageType != "A" || len(msg.Data) <= idxLastPrice {
			continue
		}

		updateType, ok := msg.Data[idxUpdateType].(string)
		if !ok || updateType != "T" {
			continue
		}

		ticker, ok := msg.Data[idxTicker].(string)
		if !ok {
			continue
		}

		price, ok := msg.Data[idxLastPrice].(float64)
		if !ok || price == 0 {
			continue
		}

		event := domain.PriceUpdateEvent{
			Ticker:    ticker,
			Price:     price,
			Timestamp: time.Now().UTC(),
			Source:    "tiingo-iex-ws",
		}

		select {
		case out <- event:
		default:
			// Канал переполнен - пропускаем устаревший тик
		}
	}
}

// sendSubscribe пишет команду подписки. Вызывающий держит s.mu:
// у websocket.Conn может быть только один писатель.
func (s *MarketStream) sendSubscribe(tickers []string) error {
	if len(tickers) == 0 {
		return nil
	}

	req := map[string]interface{}{
		"eventName":     "subscribe",
		"authorization": s.token,
		"eventData": map[string]interface{}{
			"thresholdLevel": tradeThreshold,
			"tickers":        tickers,
		},
	}

	s.logger.Info("Sending subscription request", "tickers", tickers)

	return s.conn.WriteJSON(req)
}

func (s *MarketStream) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != nil {
				if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					s.logger.Error("Ping failed", "err", err)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Стрим ждет тикеры в нижнем регистре
func normalize(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, strings.ToLower(t))
	}
	return out
}

// wsMessage - конверт сообщения стрима; data гетерогенный массив
type wsMessage struct {
	MessageType string        `json:"messageType"`
	Service     string        `json:"service"`
	Data        []interface{} `json:"data"`
}
