package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bookMarketBot/internal/domain/models"
	"bookMarketBot/internal/pkg/logger/sl"
	repo "bookMarketBot/internal/repository"
	catalogservice "bookMarketBot/internal/service/catalog"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type sellerResponse struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Display    string `json:"display"`
}

type bookResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Author      *string         `json:"author"`
	Price       string          `json:"price"`
	Condition   string          `json:"condition"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	Seller      *sellerResponse `json:"seller"`
}

type listBooksResponse struct {
	Items   []bookResponse `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
}

// NewListBooksHandler отдает страницу непроданных книг в JSON.
// Фильтры author, title и condition комбинируются через AND.
func NewListBooksHandler(
	log *slog.Logger,
	catalog *catalogservice.Service,
) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.ListBooks"

		log := log.With(slog.String("op", op))

		query := r.URL.Query()

		page := parsePositiveInt(query.Get("page"), 1)
		perPage := parsePerPage(query.Get("per_page"))

		filter := repo.BookFilter{
			Author: query.Get("author"),
			Title:  query.Get("title"),
		}

		if raw := query.Get("condition"); raw != "" {
			condition, err := models.ConditionFromValue(raw)
			if err != nil {
				http.Error(w, "Invalid condition parameter.", http.StatusBadRequest)
				return
			}
			filter.Condition = &condition
		}

		books, total, err := catalog.List(r.Context(), filter, page, perPage)
		if err != nil {
			log.Error("failed to list books", sl.Err(err))
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		response := listBooksResponse{
			Items:   make([]bookResponse, 0, len(books)),
			Page:    page,
			PerPage: perPage,
			Total:   total,
		}
		for i := range books {
			response.Items = append(response.Items, toBookResponse(&books[i]))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Error("failed to encode response", sl.Err(err))
		}
	}
}

func toBookResponse(book *models.Book) bookResponse {
	resp := bookResponse{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Price:       book.Price.String(),
		Condition:   string(book.Condition),
		Description: book.Description,
		CreatedAt:   book.CreatedAt,
	}
	if book.Seller != nil {
		resp.Seller = &sellerResponse{
			ID:         book.Seller.ID,
			TelegramID: book.Seller.TelegramID,
			Display:    book.Seller.PublicDisplay(),
		}
	}
	return resp
}

// parsePositiveInt возвращает fallback для пустых, нечисловых
// и неположительных значений
func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

// parsePerPage зажимает присланное значение в [1, 100];
// default действует только для отсутствующего параметра
func parsePerPage(raw string) int {
	if raw == "" {
		return defaultPerPage
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultPerPage
	}
	if value < 1 {
		return 1
	}
	if value > maxPerPage {
		return maxPerPage
	}
	return value
}
