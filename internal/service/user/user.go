package userservice

import (
	"context"
	"fmt"
	"log/slog"

	"bookMarketBot/internal/domain/models"
)

type UserSaver interface {
	UpsertUser(ctx context.Context, tgUserID int64, username *string, displayName string) (*models.User, error)
}

// Service создает пользователя при первом контакте и обновляет его
// данные при каждом следующем; строки users не удаляются.
type Service struct {
	log   *slog.Logger
	saver UserSaver
}

func New(log *slog.Logger, saver UserSaver) *Service {
	return &Service{
		log:   log,
		saver: saver,
	}
}

// Ensure гарантирует актуальную строку users для пользователя Telegram
func (s *Service) Ensure(ctx context.Context, tgUserID int64, username *string, displayName string) (*models.User, error) {
	const op = "UserService.Ensure"

	user, err := s.saver.UpsertUser(ctx, tgUserID, username, displayName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
