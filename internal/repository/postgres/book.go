package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"bookMarketBot/internal/domain/models"
	repo "bookMarketBot/internal/repository"
)

const bookColumns = `
	b.id, b.title, b.author, b.price::text, b.condition, b.description,
	b.is_sold, b.created_at, b.seller_id,
	u.id, u.tg_user_id, u.username, u.display_name, u.created_at`

// Books возвращает страницу книг по фильтру и общее число подходящих строк.
// Сортировка: новые сверху, при равном created_at — порядок вставки.
func (s *Storage) Books(ctx context.Context, filter repo.BookFilter, page, perPage int) ([]models.Book, int, error) {
	where, args := buildBookFilter(filter)

	var total int
	countQuery := `SELECT count(*) FROM books b` + where
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN users u ON u.id = b.seller_id
		%s
		ORDER BY b.created_at DESC, b.id
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read books: %w", err)
	}

	return books, total, nil
}

// BookByID возвращает книгу вместе с продавцом
func (s *Storage) BookByID(ctx context.Context, bookID int64) (*models.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM books b
		JOIN users u ON u.id = b.seller_id
		WHERE b.id = $1`,
		bookColumns,
	)

	book, err := scanBook(s.db.QueryRow(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrBookNotFound
		}
		return nil, err
	}

	return book, nil
}

// CreateBook вставляет объявление в одной транзакции и возвращает его
// с сгенерированным id
func (s *Storage) CreateBook(ctx context.Context, sellerID int64, draft models.BookDraft) (*models.Book, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO books (title, author, price, condition, description, is_sold, created_at, seller_id)
		VALUES ($1, $2, $3, $4, $5, false, NOW(), $6)
		RETURNING id, created_at
	`

	book := models.Book{
		Title:       draft.Title,
		Author:      draft.Author,
		Price:       draft.Price,
		Condition:   draft.Condition,
		Description: draft.Description,
		SellerID:    sellerID,
	}

	err = tx.QueryRow(
		ctx,
		query,
		draft.Title,
		draft.Author,
		draft.Price.String(),
		string(draft.Condition),
		draft.Description,
		sellerID,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit tx: %w", err)
	}

	return &book, nil
}

// MarkBookSold выставляет is_sold. Повторный вызов для уже проданной
// книги ничего не меняет.
func (s *Storage) MarkBookSold(ctx context.Context, bookID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE books SET is_sold = true WHERE id = $1 AND is_sold = false`

	if _, err := tx.Exec(ctx, query, bookID); err != nil {
		return fmt.Errorf("failed to mark book sold: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func buildBookFilter(filter repo.BookFilter) (string, []any) {
	var conds []string
	var args []any

	if !filter.IncludeSold {
		conds = append(conds, "b.is_sold = false")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(lower(b.title) LIKE $%d OR lower(coalesce(b.author, '')) LIKE $%d OR lower(coalesce(b.description, '')) LIKE $%d)",
			n, n, n,
		))
	}
	if a := strings.TrimSpace(filter.Author); a != "" {
		args = append(args, "%"+strings.ToLower(a)+"%")
		conds = append(conds, fmt.Sprintf("lower(coalesce(b.author, '')) LIKE $%d", len(args)))
	}
	if t := strings.TrimSpace(filter.Title); t != "" {
		args = append(args, "%"+strings.ToLower(t)+"%")
		conds = append(conds, fmt.Sprintf("lower(b.title) LIKE $%d", len(args)))
	}
	if filter.Condition != nil {
		args = append(args, string(*filter.Condition))
		conds = append(conds, fmt.Sprintf("b.condition = $%d", len(args)))
	}
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		conds = append(conds, fmt.Sprintf("b.seller_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanBook(row pgx.Row) (*models.Book, error) {
	var book models.Book
	var seller models.User
	var priceText string
	var condition string

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&priceText,
		&condition,
		&book.Description,
		&book.IsSold,
		&book.CreatedAt,
		&book.SellerID,
		&seller.ID,
		&seller.TelegramID,
		&seller.Username,
		&seller.DisplayName,
		&seller.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}

	price, err := models.ParsePrice(priceText)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q in storage: %w", priceText, err)
	}
	book.Price = price
	book.Condition = models.Condition(condition)
	book.Seller = &seller

	return &book, nil
}
