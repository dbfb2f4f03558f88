package worker

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

// NewsPoller - фоновый цикл новостного фида. Дедупликация через watermark:
// одна метка времени на процесс, двигается только вперед. Стартует с отступом
// в прошлое, чтобы первый опрос принес ограниченный бэклог, а не всю историю.
type NewsPoller struct {
	fetcher   domain.NewsFetcher
	notifier  domain.NewsNotifier
	channelID int64
	logger    *slog.Logger

	watermark time.Time

	pollInterval time.Duration
	sendGap      time.Duration
	fetchLimit   int
}

func NewNewsPoller(
	fetcher domain.NewsFetcher,
	notifier domain.NewsNotifier,
	channelID int64,
	logger *slog.Logger,
	graceBack time.Duration,
	pollInterval time.Duration,
	sendGap time.Duration,
	fetchLimit int,
) *NewsPoller {
	return &NewsPoller{
		fetcher:      fetcher,
		notifier:     notifier,
		channelID:    channelID,
		logger:       logger.With(slog.String("component", "news_poller")),
		watermark:    time.Now().UTC().Add(-graceBack),
		pollInterval: pollInterval,
		sendGap:      sendGap,
		fetchLimit:   fetchLimit,
	}
}

// Run крутится до отмены контекста
func (p *NewsPoller) Run(ctx context.Context) {
	p.logger.Info("Starting news monitor...",
		slog.Int64("channel_id", p.channelID),
		slog.Time("watermark", p.watermark))

	for {
		p.pollOnce(ctx)

		if !sleep(ctx, p.pollInterval) {
			p.logger.Info("News poller stopped")
			return
		}
	}
}

// pollOnce - один проход: fetch, срез по watermark, сортировка по возрастанию
// времени, доставка по порядку. Неудачная доставка не блокирует остальные
// новости пачки; watermark доходит до максимальной успешно доставленной метки,
// так что хронически падающая новость не запирает фид навсегда.
func (p *NewsPoller) pollOnce(ctx context.Context) {
	items, err := p.fetcher.FetchNews(ctx, p.fetchLimit)
	if err != nil {
		// ParseError уже несет кусок сырого тела - в лог и ноль новостей за цикл
		p.logger.Error("Error fetching news", slog.String("err", err.Error()))
		return
	}

	fresh := items[:0:0]
	for _, it := range items {
		if it.PublishedAt.After(p.watermark) {
			fresh = append(fresh, it)
		}
	}

	// Апстрим отдает новые сверху, потребители канала ждут старые первыми
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].PublishedAt.Before(fresh[j].PublishedAt)
	})

	for i, item := range fresh {
		if err := p.notifier.NewsPublished(ctx, p.channelID, item); err != nil {
			p.logger.Error("Failed to send news",
				slog.String("title", item.Title),
				slog.String("err", err.Error()))
		} else {
			p.logger.Info("Sent news", slog.String("title", item.Title))
			if item.PublishedAt.After(p.watermark) {
				p.watermark = item.PublishedAt
			}
		}

		if i < len(fresh)-1 && !sleep(ctx, p.sendGap) {
			return
		}
	}
}
