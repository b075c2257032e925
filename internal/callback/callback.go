package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Пакет callback кодирует намерение пользователя (kind + параметры) в
// компактный непрозрачный токен для inline-кнопки и декодирует его обратно
// при следующем событии. Telegram ограничивает callback data 64 байтами,
// поэтому формат фиксированный и версионированный:
//
//	<version>|<kind>|<page>|<book_id>|<query>
//
// Пустое поле означает отсутствие значения. Кодер и декодер деплоятся
// парой, но на неизвестной версии или kind декодер отказывает, а не
// угадывает раскладку полей.

// Kind — вид действия на кнопке
type Kind string

const (
	// KindMenu — пункт главного меню, имя пункта в поле Query
	KindMenu Kind = "mn"
	// KindPaginate — листание: пустой Query — каталог, непустой — результаты поиска
	KindPaginate Kind = "pg"
	// KindContactSeller — запросить контакт продавца книги BookID
	KindContactSeller Kind = "ct"
	// KindMarkSold — отметить книгу BookID проданной
	KindMarkSold Kind = "ms"
	// KindNewSearch — начать новый поиск
	KindNewSearch Kind = "ns"
	// KindConfirmListing — подтвердить публикацию объявления
	KindConfirmListing Kind = "cf"
	// KindCancelListing — отменить публикацию объявления
	KindCancelListing Kind = "cx"
)

const (
	version      = "1"
	fieldCount   = 5
	maxTokenSize = 64
)

var ErrInvalidToken = errors.New("invalid callback token")

// Action — структурированное намерение пользователя
type Action struct {
	Kind   Kind
	Page   int    // номер страницы, >= 1; 0 — не задан
	BookID int64  // id книги; 0 — не задан
	Query  string // поисковый запрос или имя пункта меню
}

var knownKinds = map[Kind]bool{
	KindMenu:           true,
	KindPaginate:       true,
	KindContactSeller:  true,
	KindMarkSold:       true,
	KindNewSearch:      true,
	KindConfirmListing: true,
	KindCancelListing:  true,
}

// Encode сериализует действие в токен не длиннее 64 байт.
// Слишком длинный запрос обрезается по границе руны.
func Encode(a Action) string {
	page := ""
	if a.Page > 0 {
		page = strconv.Itoa(a.Page)
	}
	bookID := ""
	if a.BookID > 0 {
		bookID = strconv.FormatInt(a.BookID, 10)
	}

	query := strings.ReplaceAll(a.Query, "|", " ")
	head := strings.Join([]string{version, string(a.Kind), page, bookID}, "|") + "|"
	if budget := maxTokenSize - len(head); len(query) > budget {
		query = truncate(query, budget)
	}

	return head + query
}

// Decode разбирает токен обратно в действие. Любая неоднозначность —
// ошибка, которую вызывающий показывает как "устаревшее действие".
func Decode(token string) (Action, error) {
	parts := strings.Split(token, "|")
	if len(parts) != fieldCount {
		return Action{}, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidToken, fieldCount, len(parts))
	}
	if parts[0] != version {
		return Action{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidToken, parts[0])
	}

	kind := Kind(parts[1])
	if !knownKinds[kind] {
		return Action{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, parts[1])
	}

	a := Action{Kind: kind, Query: parts[4]}

	if parts[2] != "" {
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 1 {
			return Action{}, fmt.Errorf("%w: bad page %q", ErrInvalidToken, parts[2])
		}
		a.Page = page
	}

	if parts[3] != "" {
		bookID, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil || bookID < 1 {
			return Action{}, fmt.Errorf("%w: bad book id %q", ErrInvalidToken, parts[3])
		}
		a.BookID = bookID
	}

	return a, nil
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
