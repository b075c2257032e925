package catalogservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookMarketBot/internal/domain/models"
	repo "bookMarketBot/internal/repository"
)

// BookProvider возвращает страницу книг и общее число подходящих строк
type BookProvider interface {
	Books(ctx context.Context, filter repo.BookFilter, page, perPage int) ([]models.Book, int, error)
}

// Service — движок выборки каталога: листание, поиск, свои объявления
type Service struct {
	log      *slog.Logger
	provider BookProvider
}

func New(log *slog.Logger, provider BookProvider) *Service {
	return &Service{
		log:      log,
		provider: provider,
	}
}

// Browse возвращает страницу непроданных книг, новые сверху
func (s *Service) Browse(ctx context.Context, page, perPage int) ([]models.Book, int, int, error) {
	const op = "CatalogService.Browse"

	books, total, err := s.provider.Books(ctx, repo.BookFilter{}, page, perPage)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return books, total, TotalPages(total, perPage), nil
}

// Search ищет подстроку запроса в title, author и description без учета
// регистра. Пустой запрос дает пустой результат, не обращаясь к хранилищу.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]models.Book, int, int, error) {
	const op = "CatalogService.Search"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, 1, nil
	}

	books, total, err := s.provider.Books(ctx, repo.BookFilter{Query: query}, page, perPage)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return books, total, TotalPages(total, perPage), nil
}

// List отдает страницу каталога по произвольному фильтру. Используется
// HTTP-фасадом; проданные книги фильтр не возвращает.
func (s *Service) List(ctx context.Context, filter repo.BookFilter, page, perPage int) ([]models.Book, int, error) {
	const op = "CatalogService.List"

	filter.IncludeSold = false

	books, total, err := s.provider.Books(ctx, filter, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return books, total, nil
}

// OwnerListings возвращает объявления продавца; проданные — только по запросу
func (s *Service) OwnerListings(ctx context.Context, sellerID int64, includeSold bool) ([]models.Book, error) {
	const op = "CatalogService.OwnerListings"

	filter := repo.BookFilter{
		SellerID:    &sellerID,
		IncludeSold: includeSold,
	}

	// своих объявлений у продавца немного, одной страницы хватает
	books, _, err := s.provider.Books(ctx, filter, 1, ownerListingsLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return books, nil
}

const ownerListingsLimit = 100

// TotalPages вычисляет число страниц: max(1, ceil(total/perPage))
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
