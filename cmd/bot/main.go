package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/Jray937/TrustMeBro/internal/bot"
	"github.com/Jray937/TrustMeBro/internal/charts"
	"github.com/Jray937/TrustMeBro/internal/config"
	"github.com/Jray937/TrustMeBro/internal/domain"
	"github.com/Jray937/TrustMeBro/internal/infrastructure/database"
	"github.com/Jray937/TrustMeBro/internal/infrastructure/tiingo"
	"github.com/Jray937/TrustMeBro/internal/notify"
	"github.com/Jray937/TrustMeBro/internal/usecase"
	"github.com/Jray937/TrustMeBro/internal/watchlist"
	"github.com/Jray937/TrustMeBro/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbConnConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.NewConnection(dbConnConfig)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	userRepo := database.NewUserRepository(db)
	historyRepo := database.NewAlertHistoryRepository(db, logger)

	tiingoClient := tiingo.NewClient(cfg.TiingoToken, cfg.HTTPTimeout).
		WithNewsFilters(cfg.NewsTickers, cfg.NewsTags)

	marketService := usecase.NewMarketService(tiingoClient, logger)
	store := watchlist.NewStore()

	var streamer domain.MarketStreamer
	if cfg.StreamEnabled {
		streamer = tiingo.NewMarketStream(cfg.TiingoToken, logger)
	}

	tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	notifier := notify.NewTelegramNotifier(tgBot, historyRepo, logger)

	monitor := worker.NewAlertMonitor(
		store, marketService, notifier, streamer, logger,
		cfg.PollInterval, cfg.AlertCheckGap,
	)
	newsPoller := worker.NewNewsPoller(
		tiingoClient, notifier, cfg.NewsChannelID, logger,
		cfg.NewsGraceBack, cfg.PollInterval, cfg.NewsSendGap, cfg.NewsFetchLimit,
	)

	botHandler := bot.NewHandler(
		tgBot, userRepo, historyRepo, store, marketService, monitor,
		charts.NewRenderer(), cfg.AdminID, logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting bot...",
		slog.String("env", cfg.Env),
		slog.Bool("stream", cfg.StreamEnabled))

	go monitor.Run(ctx)
	go newsPoller.Run(ctx)
	go botHandler.Start(ctx)

	<-ctx.Done()
	logger.Info("Bot stopped gracefully")
}
