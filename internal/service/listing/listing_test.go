package listingservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookMarketBot/internal/domain/models"
	repo "bookMarketBot/internal/repository"
)

// fakeStorage реализует BookSaver и BookProvider поверх map
type fakeStorage struct {
	books  map[int64]*models.Book
	nextID int64

	markSoldCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{books: make(map[int64]*models.Book), nextID: 1}
}

func (f *fakeStorage) CreateBook(_ context.Context, sellerID int64, draft models.BookDraft) (*models.Book, error) {
	book := &models.Book{
		ID:          f.nextID,
		Title:       draft.Title,
		Author:      draft.Author,
		Price:       draft.Price,
		Condition:   draft.Condition,
		Description: draft.Description,
		CreatedAt:   time.Now(),
		SellerID:    sellerID,
	}
	f.books[f.nextID] = book
	f.nextID++
	return book, nil
}

func (f *fakeStorage) MarkBookSold(_ context.Context, bookID int64) error {
	book, ok := f.books[bookID]
	if !ok {
		return repo.ErrBookNotFound
	}
	f.markSoldCalls++
	book.IsSold = true
	return nil
}

func (f *fakeStorage) BookByID(_ context.Context, bookID int64) (*models.Book, error) {
	book, ok := f.books[bookID]
	if !ok {
		return nil, repo.ErrBookNotFound
	}
	copied := *book
	return &copied, nil
}

func newService(storage *fakeStorage) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, storage, storage)
}

func validDraft() models.BookDraft {
	return models.BookDraft{
		Title:     "Calculus",
		Price:     1250,
		Condition: models.ConditionGood,
	}
}

func TestCreateListing(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	book, err := service.Create(context.Background(), 7, validDraft())
	require.NoError(t, err)

	assert.Equal(t, "Calculus", book.Title)
	assert.Equal(t, models.Price(1250), book.Price)
	assert.Equal(t, int64(7), book.SellerID)
	assert.False(t, book.IsSold)
}

func TestCreateTrimsTitle(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	draft := validDraft()
	draft.Title = "  Calculus  "

	book, err := service.Create(context.Background(), 1, draft)
	require.NoError(t, err)
	assert.Equal(t, "Calculus", book.Title)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	draft := validDraft()
	draft.Title = "   "
	_, err := service.Create(context.Background(), 1, draft)
	require.ErrorIs(t, err, ErrEmptyTitle)

	draft = validDraft()
	draft.Price = -1
	_, err = service.Create(context.Background(), 1, draft)
	require.ErrorIs(t, err, models.ErrNegativePrice)

	draft = validDraft()
	draft.Condition = "mint"
	_, err = service.Create(context.Background(), 1, draft)
	require.ErrorIs(t, err, models.ErrUnknownCondition)

	assert.Empty(t, storage.books)
}

func TestMarkSold(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	book, err := service.Create(context.Background(), 7, validDraft())
	require.NoError(t, err)

	alreadySold, err := service.MarkSold(context.Background(), book.ID, 7)
	require.NoError(t, err)
	assert.False(t, alreadySold)
	assert.True(t, storage.books[book.ID].IsSold)
}

func TestMarkSoldIsIdempotent(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	book, err := service.Create(context.Background(), 7, validDraft())
	require.NoError(t, err)

	_, err = service.MarkSold(context.Background(), book.ID, 7)
	require.NoError(t, err)

	alreadySold, err := service.MarkSold(context.Background(), book.ID, 7)
	require.NoError(t, err)
	assert.True(t, alreadySold)
	assert.Equal(t, 1, storage.markSoldCalls)
}

func TestMarkSoldRejectsNonOwner(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	book, err := service.Create(context.Background(), 7, validDraft())
	require.NoError(t, err)

	_, err = service.MarkSold(context.Background(), book.ID, 8)
	require.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, storage.books[book.ID].IsSold)
}

// владелец проверяется раньше повторной продажи: чужой запрос по
// проданной книге получает отказ по владению, а не alreadySold
func TestMarkSoldOwnershipCheckedBeforeSoldState(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	book, err := service.Create(context.Background(), 7, validDraft())
	require.NoError(t, err)

	_, err = service.MarkSold(context.Background(), book.ID, 7)
	require.NoError(t, err)

	alreadySold, err := service.MarkSold(context.Background(), book.ID, 8)
	require.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, alreadySold)
}

func TestMarkSoldUnknownBook(t *testing.T) {
	storage := newFakeStorage()
	service := newService(storage)

	_, err := service.MarkSold(context.Background(), 999, 7)
	require.ErrorIs(t, err, repo.ErrBookNotFound)
}
