package listingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookMarketBot/internal/domain/models"
	"bookMarketBot/internal/pkg/logger/sl"
)

var (
	ErrEmptyTitle = errors.New("title must not be empty")
	// ErrNotOwner — попытка изменить чужое объявление
	ErrNotOwner = errors.New("acting user is not the seller")
)

type BookSaver interface {
	CreateBook(ctx context.Context, sellerID int64, draft models.BookDraft) (*models.Book, error)
	MarkBookSold(ctx context.Context, bookID int64) error
}

type BookProvider interface {
	BookByID(ctx context.Context, bookID int64) (*models.Book, error)
}

// Service управляет жизненным циклом объявления: создание и переход
// в "продано". Флаг is_sold монотонный — обратно не снимается.
type Service struct {
	log      *slog.Logger
	saver    BookSaver
	provider BookProvider
}

func New(log *slog.Logger, saver BookSaver, provider BookProvider) *Service {
	return &Service{
		log:      log,
		saver:    saver,
		provider: provider,
	}
}

// Create проверяет инварианты черновика и атомарно сохраняет объявление
func (s *Service) Create(ctx context.Context, sellerID int64, draft models.BookDraft) (*models.Book, error) {
	const op = "ListingService.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("sellerId", sellerID),
	)

	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return nil, ErrEmptyTitle
	}
	if draft.Price < 0 {
		return nil, models.ErrNegativePrice
	}
	if _, err := models.ConditionFromValue(string(draft.Condition)); err != nil {
		return nil, err
	}

	book, err := s.saver.CreateBook(ctx, sellerID, draft)
	if err != nil {
		log.Error("failed to create book", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("book listed", slog.Int64("bookId", book.ID))

	return book, nil
}

// Get возвращает объявление по id
func (s *Service) Get(ctx context.Context, bookID int64) (*models.Book, error) {
	return s.provider.BookByID(ctx, bookID)
}

// MarkSold переводит объявление в "продано". Проверка владельца идет
// раньше проверки на повторную продажу; повторный вызов — не ошибка,
// а alreadySold=true без записи в хранилище.
func (s *Service) MarkSold(ctx context.Context, bookID, actingUserID int64) (alreadySold bool, err error) {
	const op = "ListingService.MarkSold"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("bookId", bookID),
		slog.Int64("actingUserId", actingUserID),
	)

	book, err := s.provider.BookByID(ctx, bookID)
	if err != nil {
		return false, err
	}

	if book.SellerID != actingUserID {
		log.Warn("mark sold denied: not the seller")
		return false, ErrNotOwner
	}

	if book.IsSold {
		return true, nil
	}

	if err := s.saver.MarkBookSold(ctx, bookID); err != nil {
		log.Error("failed to mark book sold", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("book marked sold")

	return false, nil
}
