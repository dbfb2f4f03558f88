package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Jray937/TrustMeBro/internal/domain"
)

// ---------------- UserRepository ----------------

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (telegram_id, username, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		user.TelegramID, user.Username,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `
		SELECT id, telegram_id, username, created_at
		FROM users
		WHERE telegram_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, telegramID)

	user := &domain.User{}
	err := row.Scan(&user.ID, &user.TelegramID, &user.Username, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ---------------- AlertHistoryRepository ----------------

type AlertHistoryRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewAlertHistoryRepository(db *DB, logger *slog.Logger) *AlertHistoryRepository {
	return &AlertHistoryRepository{db: db, logger: logger}
}

// Record пишет сработавший алерт в архив. Ошибка записи не должна ломать
// доставку, поэтому вызывающий ее только логирует.
func (r *AlertHistoryRepository) Record(ctx context.Context, fired *domain.FiredAlert) error {
	query := `
		INSERT INTO alert_history (chat_id, ticker, target_price, direction, fired_price, fired_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, fired_at
	`

	err := r.db.QueryRowContext(
		ctx, query,
		fired.ChatID, fired.Ticker, fired.TargetPrice, fired.Direction, fired.FiredPrice,
	).Scan(&fired.ID, &fired.FiredAt)

	if err != nil {
		return fmt.Errorf("failed to record fired alert: %w", err)
	}

	return nil
}

func (r *AlertHistoryRepository) RecentByChatID(ctx context.Context, chatID int64, limit int) ([]domain.FiredAlert, error) {
	query := `
		SELECT id, chat_id, ticker, target_price, direction, fired_price, fired_at
		FROM alert_history
		WHERE chat_id = $1
		ORDER BY fired_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert history: %w", err)
	}
	defer rows.Close()

	var fired []domain.FiredAlert
	for rows.Next() {
		var f domain.FiredAlert
		err := rows.Scan(&f.ID, &f.ChatID, &f.Ticker, &f.TargetPrice, &f.Direction, &f.FiredPrice, &f.FiredAt)
		if err != nil {
			return nil, fmt.Errorf("scan row error: %w", err)
		}
		fired = append(fired, f)
	}
	return fired, rows.Err()
}
