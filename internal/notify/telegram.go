package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

// TelegramNotifier - сток уведомлений поверх Telegram. Форматирование живет
// здесь, циклы видят только успех/ошибку. Сработавшие алерты попутно
// архивируются в БД (best-effort: ошибка записи не отменяет доставку).
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	history domain.AlertHistoryRepository // nil = без архива
	logger  *slog.Logger
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI, history domain.AlertHistoryRepository, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		history: history,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// AlertTriggered - доставка сработавшего алерта в чат подписчика
func (n *TelegramNotifier) AlertTriggered(ctx context.Context, sub domain.Subscription, price float64) error {
	direction := "поднялась выше"
	if sub.Direction == domain.DirectionBelow {
		direction = "опустилась ниже"
	}

	text := fmt.Sprintf(
		"🚨 *Ценовой алерт!*\n*%s* %s *$%.2f*!\nТекущая цена: *$%.2f*",
		strings.ToUpper(sub.Ticker), direction, sub.TargetPrice, price,
	)

	msg := tgbotapi.NewMessage(sub.ChatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.bot.Send(msg); err != nil {
		return &domain.DeliveryError{Err: err}
	}

	if n.history != nil {
		fired := &domain.FiredAlert{
			ChatID:      sub.ChatID,
			Ticker:      sub.Ticker,
			TargetPrice: sub.TargetPrice,
			Direction:   sub.Direction,
			FiredPrice:  price,
		}
		if err := n.history.Record(ctx, fired); err != nil {
			n.logger.Error("Failed to archive fired alert", "err", err)
		}
	}

	return nil
}

// NewsPublished - доставка новости в канал
func (n *TelegramNotifier) NewsPublished(ctx context.Context, chatID int64, item domain.NewsItem) error {
	tickers := "General"
	if len(item.Tickers) > 0 {
		tickers = strings.ToUpper(strings.Join(item.Tickers, ", "))
	}

	description := item.Description
	if description == "" {
		description = "Без описания."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📰 *%s*\n", escapeMarkdown(item.Title)))
	sb.WriteString(escapeMarkdown(description))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Тикеры: %s | Источник: %s\n", tickers, item.Source))
	sb.WriteString(fmt.Sprintf("Опубликовано: %s\n", item.PublishedAt.Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(item.URL)

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = "Markdown"

	if _, err := n.bot.Send(msg); err != nil {
		return &domain.DeliveryError{Err: err}
	}
	return nil
}

// Telegram Markdown ломается на непарных */_ в заголовках новостей
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}
