package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bookMarketBot/internal/domain/models"
	repo "bookMarketBot/internal/repository"
)

// UpsertUser создает пользователя при первом контакте и обновляет
// username/display_name при каждом следующем
func (s *Storage) UpsertUser(ctx context.Context, tgUserID int64, username *string, displayName string) (*models.User, error) {
	query := `
		INSERT INTO users (tg_user_id, username, display_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tg_user_id) DO UPDATE
		SET username = EXCLUDED.username, display_name = EXCLUDED.display_name
		RETURNING id, tg_user_id, username, display_name, created_at
	`

	var user models.User
	err := s.db.QueryRow(ctx, query, tgUserID, username, displayName).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, nil
}

// UserByTelegramID возвращает пользователя по telegram id
func (s *Storage) UserByTelegramID(ctx context.Context, tgUserID int64) (*models.User, error) {
	query := `SELECT id, tg_user_id, username, display_name, created_at FROM users WHERE tg_user_id = $1`

	var user models.User
	err := s.db.QueryRow(ctx, query, tgUserID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}
