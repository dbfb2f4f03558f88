package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/Jray937/TrustMeBro/internal/charts"
	"github.com/Jray937/TrustMeBro/internal/domain"
	"github.com/Jray937/TrustMeBro/internal/watchlist"
	"github.com/Jray937/TrustMeBro/internal/worker"
)

const historyWindowDays = 30

type Handler struct {
	bot         *tgbotapi.BotAPI
	userRepo    domain.UserRepository
	historyRepo domain.AlertHistoryRepository
	store       *watchlist.Store
	resolver    domain.MarketResolver
	monitor     *worker.AlertMonitor
	charts      *charts.Renderer

	adminID int64
	logger  *slog.Logger
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	userRepo domain.UserRepository,
	historyRepo domain.AlertHistoryRepository,
	store *watchlist.Store,
	resolver domain.MarketResolver,
	monitor *worker.AlertMonitor,
	renderer *charts.Renderer,
	adminID int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:         bot,
		userRepo:    userRepo,
		historyRepo: historyRepo,
		store:       store,
		resolver:    resolver,
		monitor:     monitor,
		charts:      renderer,
		adminID:     adminID,
		logger:      logger,
	}
}

func (h *Handler) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			go h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		h.send(msg.Chat.ID, "Используйте команды. /help покажет список.")
		return
	}

	switch msg.Command() {
	case "start":
		h.cmdStart(ctx, msg)
	case "price":
		h.cmdPrice(ctx, msg)
	case "chart":
		h.cmdChart(ctx, msg)
	case "alert":
		h.cmdAlert(ctx, msg)
	case "alerts":
		h.cmdAlerts(msg)
	case "history":
		h.cmdHistory(ctx, msg)
	case "help":
		h.cmdHelp(msg)
	case "stats":
		if msg.From.ID == h.adminID {
			h.cmdStats(msg)
		}
	default:
		h.send(msg.Chat.ID, "Неизвестная команда. /help покажет список.")
	}
}

// --- Commands ---

func (h *Handler) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.userRepo.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		h.logger.Error("DB error", "err", err)
		h.send(msg.Chat.ID, "⚠️ Ошибка регистрации.")
		return
	}

	// Регистрация нового пользователя
	if user == nil {
		newUser := &domain.User{
			TelegramID: msg.From.ID,
			Username:   msg.From.UserName,
		}
		if err := h.userRepo.Create(ctx, newUser); err != nil {
			h.logger.Error("Failed to register user", "err", err)
			h.send(msg.Chat.ID, "⚠️ Ошибка регистрации.")
			return
		}
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\nЯ слежу за ценами акций и крипты.\n\n/price TSLA - текущая цена\n/alert TSLA 150 - ценовой алерт\n/help - все команды",
		msg.From.FirstName,
	)
	h.send(msg.Chat.ID, text)
}

func (h *Handler) cmdPrice(ctx context.Context, msg *tgbotapi.Message) {
	ticker := strings.TrimSpace(msg.CommandArguments())
	if ticker == "" {
		h.send(msg.Chat.ID, "Формат: /price <тикер>")
		return
	}

	price, err := h.resolver.ResolvePrice(ctx, ticker)
	if err != nil {
		h.logger.Warn("Price lookup failed", "ticker", ticker, "err", err)
		h.send(msg.Chat.ID, fmt.Sprintf("❌ Не нашел цену для *%s*.", strings.ToUpper(ticker)))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💹 *%s*: $%s\n", strings.ToUpper(price.Ticker), formatPrice(price.Price)))

	if change := price.ChangePercent(); change != nil {
		arrow := "📈"
		if *change < 0 {
			arrow = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s %+.2f%% за день\n", arrow, *change))
	}
	if price.Class == domain.ClassCrypto {
		sb.WriteString("Источник: крипто-фид")
	}

	h.send(msg.Chat.ID, sb.String())
}

func (h *Handler) cmdChart(ctx context.Context, msg *tgbotapi.Message) {
	ticker := strings.TrimSpace(msg.CommandArguments())
	if ticker == "" {
		h.send(msg.Chat.ID, "Формат: /chart <тикер>")
		return
	}

	startDate := time.Now().UTC().AddDate(0, 0, -historyWindowDays).Format("2006-01-02")
	bars, err := h.resolver.ResolveHistory(ctx, ticker, startDate)
	if err != nil {
		h.logger.Warn("History lookup failed", "ticker", ticker, "err", err)
		h.send(msg.Chat.ID, fmt.Sprintf("❌ Нет истории для *%s*.", strings.ToUpper(ticker)))
		return
	}

	png, err := h.charts.RenderClose(ticker, bars)
	if err != nil {
		h.logger.Error("Failed to render chart", "ticker", ticker, "err", err)
		h.send(msg.Chat.ID, "⚠️ Не удалось построить график.")
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  strings.ToUpper(ticker) + ".png",
		Bytes: png,
	})
	photo.Caption = fmt.Sprintf("%s, закрытия за %d дней", strings.ToUpper(ticker), historyWindowDays)
	if _, err := h.bot.Send(photo); err != nil {
		h.logger.Error("Failed to send chart", "err", err)
	}
}

func (h *Handler) cmdAlert(ctx context.Context, msg *tgbotapi.Message) {
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		h.send(msg.Chat.ID, "Формат: /alert <тикер> <цена>")
		return
	}
	ticker := parts[0]

	target, err := decimal.NewFromString(parts[1])
	if err != nil || !target.IsPositive() {
		h.send(msg.Chat.ID, "❌ Неверная цена. Введите положительное число.")
		return
	}

	// Направление выводим из текущей цены: цель выше рынка = ABOVE
	current, err := h.resolver.ResolvePrice(ctx, ticker)
	if err != nil {
		h.logger.Warn("Alert setup: price lookup failed", "ticker", ticker, "err", err)
		h.send(msg.Chat.ID, fmt.Sprintf("❌ Не нашел тикер *%s*, алерт не создан.", strings.ToUpper(ticker)))
		return
	}

	targetF, _ := target.Float64()
	direction := domain.DirectionAbove
	if targetF <= current.Price {
		direction = domain.DirectionBelow
	}

	h.store.Add(domain.Subscription{
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
		Ticker:      strings.ToUpper(ticker),
		TargetPrice: targetF,
		Direction:   direction,
		CreatedAt:   time.Now().UTC(),
	})
	h.monitor.ReloadSubscriptions()

	word := "поднимется выше"
	if direction == domain.DirectionBelow {
		word = "опустится ниже"
	}
	h.send(msg.Chat.ID, fmt.Sprintf(
		"✅ Алерт создан: *%s* %s *$%s* (сейчас $%s).",
		strings.ToUpper(ticker), word, target.StringFixed(2), formatPrice(current.Price),
	))
}

func (h *Handler) cmdAlerts(msg *tgbotapi.Message) {
	entries := h.store.ByChatID(msg.Chat.ID)
	if len(entries) == 0 {
		h.send(msg.Chat.ID, "📭 У вас нет активных алертов.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 *Активные алерты (%d):*\n\n", len(entries)))
	for _, e := range entries {
		arrow := "⬆️"
		if e.Sub.Direction == domain.DirectionBelow {
			arrow = "⬇️"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* %s $%.2f\n", arrow, e.Sub.Ticker, directionWord(e.Sub.Direction), e.Sub.TargetPrice))
	}
	h.send(msg.Chat.ID, sb.String())
}

func (h *Handler) cmdHistory(ctx context.Context, msg *tgbotapi.Message) {
	fired, err := h.historyRepo.RecentByChatID(ctx, msg.Chat.ID, 10)
	if err != nil {
		h.logger.Error("Failed to fetch alert history", "err", err)
		h.send(msg.Chat.ID, "⚠️ Ошибка получения истории.")
		return
	}
	if len(fired) == 0 {
		h.send(msg.Chat.ID, "📭 Сработавших алертов пока не было.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 *Последние сработавшие алерты:*\n\n")
	for _, f := range fired {
		sb.WriteString(fmt.Sprintf("• *%s* %s $%.2f, сработал на $%.2f (%s)\n",
			f.Ticker, directionWord(f.Direction), f.TargetPrice, f.FiredPrice,
			f.FiredAt.Format("2006-01-02 15:04")))
	}
	h.send(msg.Chat.ID, sb.String())
}

func (h *Handler) cmdStats(msg *tgbotapi.Message) {
	h.send(msg.Chat.ID, fmt.Sprintf(
		"Активных алертов: %d\nТикеров под наблюдением: %d",
		h.store.Len(), len(h.store.Tickers()),
	))
}

func (h *Handler) cmdHelp(msg *tgbotapi.Message) {
	h.send(msg.Chat.ID, strings.Join([]string{
		"*Команды:*",
		"/price <тикер> - текущая цена (акции, затем крипта)",
		"/chart <тикер> - график закрытий за 30 дней",
		"/alert <тикер> <цена> - алерт на пересечение цены",
		"/alerts - ваши активные алерты",
		"/history - сработавшие алерты",
	}, "\n"))
}

// directionWord - локализованное направление для текста сообщений
func directionWord(d domain.AlertDirection) string {
	if d == domain.DirectionBelow {
		return "ниже"
	}
	return "выше"
}

// formatPrice - компактный вывод: крипта бывает сильно меньше цента
func formatPrice(p float64) string {
	if p != 0 && p < 0.01 {
		return decimal.NewFromFloat(p).String()
	}
	return decimal.NewFromFloat(p).StringFixed(2)
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("Failed to send message", "err", err)
	}
}
