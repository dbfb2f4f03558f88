package watchlist

import (
	"sort"
	"strings"
	"sync"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

// Entry - подписка вместе с ее стабильным хэндлом
type Entry struct {
	Handle int64
	Sub    domain.Subscription
}

// Store - потокобезопасный список активных алертов. Ключ - сгенерированный
// хэндл, а не позиция в списке: удаление не зависит от конкурентных вставок.
// Замок держится только на in-memory операциях, никогда поверх сети.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	subs     map[int64]domain.Subscription
	inFlight map[int64]bool // хэндлы, которые сейчас доставляются
}

func NewStore() *Store {
	return &Store{
		subs:     make(map[int64]domain.Subscription),
		inFlight: make(map[int64]bool),
	}
}

// Add регистрирует подписку и возвращает ее хэндл
func (s *Store) Add(sub domain.Subscription) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.subs[s.nextID] = sub
	return s.nextID
}

// Snapshot возвращает защитную копию в порядке вставки. Потребитель
// отпускает замок до любых медленных вызовов.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.subs))
	for h, sub := range s.subs {
		entries = append(entries, Entry{Handle: h, Sub: sub})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Handle < entries[j].Handle })
	return entries
}

// ByTicker возвращает записи по тикеру (для стримового fast-path).
// Сравнение без учета регистра: стрим шлет тикеры в нижнем.
func (s *Store) ByTicker(ticker string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []Entry
	for h, sub := range s.subs {
		if strings.EqualFold(sub.Ticker, ticker) {
			entries = append(entries, Entry{Handle: h, Sub: sub})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Handle < entries[j].Handle })
	return entries
}

// ByChatID - активные подписки чата (для /alerts)
func (s *Store) ByChatID(chatID int64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []Entry
	for h, sub := range s.subs {
		if sub.ChatID == chatID {
			entries = append(entries, Entry{Handle: h, Sub: sub})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Handle < entries[j].Handle })
	return entries
}

// Tickers - уникальные тикеры всех подписок (для синка websocket-подписок)
func (s *Store) Tickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.subs))
	var tickers []string
	for _, sub := range s.subs {
		if !seen[sub.Ticker] {
			seen[sub.Ticker] = true
			tickers = append(tickers, sub.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}

// Claim помечает подписку как доставляемую. false - если хэндла нет или он
// уже у другого доставщика: polling-проход и стрим не сработают дважды.
func (s *Store) Claim(handle int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[handle]; !ok {
		return false
	}
	if s.inFlight[handle] {
		return false
	}
	s.inFlight[handle] = true
	return true
}

// Release снимает пометку после неудачной доставки: подписка останется
// и будет перепроверена на следующем цикле
func (s *Store) Release(handle int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, handle)
}

// Remove удаляет подписку по хэндлу. Идемпотентна: отсутствующий хэндл - no-op.
func (s *Store) Remove(handle int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, handle)
	delete(s.inFlight, handle)
}

// Len - количество активных подписок
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
