package main

import (
	"context"
	"log"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Jray937/TrustMeBro/internal/config"
	"github.com/Jray937/TrustMeBro/internal/domain"
	"github.com/Jray937/TrustMeBro/internal/infrastructure/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          BIGSERIAL PRIMARY KEY,
    telegram_id BIGINT NOT NULL UNIQUE,
    username    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alert_history (
    id           BIGSERIAL PRIMARY KEY,
    chat_id      BIGINT NOT NULL,
    ticker       TEXT NOT NULL,
    target_price DOUBLE PRECISION NOT NULL,
    direction    TEXT NOT NULL,
    fired_price  DOUBLE PRECISION NOT NULL,
    fired_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_alert_history_chat ON alert_history (chat_id, fired_at DESC);
`

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.Env != "local" {
		log.Fatal("Seeder allowed only in local environment")
	}

	db, err := database.NewConnection(database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, DBName: cfg.Database.DBName, SSLMode: cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns, MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- ШАГ 1: Схема ---
	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("✅ Schema applied")

	// --- ШАГ 2: Тестовый пользователь ---
	userRepo := database.NewUserRepository(db)

	user := &domain.User{
		TelegramID: 12345,
		Username:   "test_trader",
	}

	existing, _ := userRepo.GetByTelegramID(ctx, user.TelegramID)
	if existing != nil {
		log.Printf("[Seeder] User already exists (ID: %d).", existing.ID)
		return
	}

	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("✅ User created! ID: %d", user.ID)
}
