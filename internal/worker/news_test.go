package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

type fakeFetcher struct {
	mu    sync.Mutex
	items []domain.NewsItem
	err   error
}

func (f *fakeFetcher) FetchNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeFetcher) set(items []domain.NewsItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

type recordingNewsSink struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool // заголовки, доставка которых падает
}

func (s *recordingNewsSink) NewsPublished(ctx context.Context, chatID int64, item domain.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[item.Title] {
		return &domain.DeliveryError{Err: errors.New("channel gone")}
	}
	s.sent = append(s.sent, item.Title)
	return nil
}

func (s *recordingNewsSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func newsAt(title string, t time.Time) domain.NewsItem {
	return domain.NewsItem{Title: title, URL: "https://example.com/" + title, PublishedAt: t, Source: "test"}
}

func newTestPoller(fetcher domain.NewsFetcher, sink domain.NewsNotifier) *NewsPoller {
	return NewNewsPoller(fetcher, sink, 42, discard(), time.Hour, time.Minute, 0, 50)
}

func TestPollOnceSendsOldestFirst(t *testing.T) {
	base := time.Now().UTC()
	t1 := base.Add(-30 * time.Minute)
	t2 := base.Add(-20 * time.Minute)
	t3 := base.Add(-10 * time.Minute)

	fetcher := &fakeFetcher{items: []domain.NewsItem{
		// Апстрим отдает свежие сверху
		newsAt("C", t3), newsAt("A", t1), newsAt("B", t2),
	}}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	p.pollOnce(context.Background())

	got := sink.titles()
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected chronological order %v, got %v", want, got)
		}
	}
	if !p.watermark.Equal(t3) {
		t.Errorf("watermark must land on newest delivered item, got %v", p.watermark)
	}
}

func TestPollOnceSkipsAlreadySeen(t *testing.T) {
	base := time.Now().UTC()
	t3 := base.Add(-30 * time.Minute)
	t6 := base.Add(-5 * time.Minute)

	fetcher := &fakeFetcher{items: []domain.NewsItem{newsAt("old", t3), newsAt("fresh", t6)}}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	// Предыдущий цикл уже дошел до t5
	p.watermark = base.Add(-10 * time.Minute)

	p.pollOnce(context.Background())

	got := sink.titles()
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("expected only the fresh item, got %v", got)
	}
}

func TestPollOnceBoundaryNotResent(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Second)

	fetcher := &fakeFetcher{items: []domain.NewsItem{newsAt("edge", base)}}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	ctx := context.Background()
	p.pollOnce(ctx)
	if len(sink.titles()) != 1 {
		t.Fatal("first cycle must deliver")
	}

	// Та же новость во втором цикле: метка равна watermark, не позже
	p.pollOnce(ctx)
	if len(sink.titles()) != 1 {
		t.Fatal("item at the watermark must not be resent")
	}
}

func TestPollOnceFetchErrorKeepsWatermark(t *testing.T) {
	fetcher := &fakeFetcher{err: &domain.TransportError{Source: "news", Err: errors.New("504")}}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	before := p.watermark
	p.pollOnce(context.Background())

	if len(sink.titles()) != 0 {
		t.Fatal("nothing must be sent on fetch error")
	}
	if !p.watermark.Equal(before) {
		t.Error("watermark must not move on fetch error")
	}
}

func TestPollOnceDeliveryFailureDoesNotBlockBatch(t *testing.T) {
	base := time.Now().UTC()
	t1 := base.Add(-30 * time.Minute)
	t2 := base.Add(-20 * time.Minute)
	t3 := base.Add(-10 * time.Minute)

	fetcher := &fakeFetcher{items: []domain.NewsItem{
		newsAt("A", t1), newsAt("B", t2), newsAt("C", t3),
	}}
	sink := &recordingNewsSink{failOn: map[string]bool{"B": true}}
	p := newTestPoller(fetcher, sink)

	p.pollOnce(context.Background())

	got := sink.titles()
	if len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Fatalf("failed item must not block the rest, got %v", got)
	}
	// Watermark дошел до максимальной успешно доставленной метки
	if !p.watermark.Equal(t3) {
		t.Errorf("watermark must advance past the failed item, got %v", p.watermark)
	}
}

func TestPollOnceEmptyFeed(t *testing.T) {
	fetcher := &fakeFetcher{}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	before := p.watermark
	p.pollOnce(context.Background())

	if len(sink.titles()) != 0 {
		t.Fatal("empty feed must send nothing")
	}
	if !p.watermark.Equal(before) {
		t.Error("watermark must not move on empty feed")
	}
}

func TestWatermarkMonotonicAcrossCycles(t *testing.T) {
	base := time.Now().UTC()
	fetcher := &fakeFetcher{}
	sink := &recordingNewsSink{}
	p := newTestPoller(fetcher, sink)

	ctx := context.Background()

	fetcher.set([]domain.NewsItem{newsAt("first", base.Add(-20 * time.Minute))})
	p.pollOnce(ctx)
	w1 := p.watermark

	// Апстрим внезапно вернул более старую новость: фильтр ее отбрасывает
	fetcher.set([]domain.NewsItem{newsAt("stale", base.Add(-40 * time.Minute))})
	p.pollOnce(ctx)

	if p.watermark.Before(w1) {
		t.Error("watermark must never move backwards")
	}
	if len(sink.titles()) != 1 {
		t.Errorf("stale item must not be delivered, got %v", sink.titles())
	}
}
