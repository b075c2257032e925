package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookMarketBot/internal/callback"
	"bookMarketBot/internal/domain/models"
)

// пункты главного меню, передаются в поле Query callback-действия
const (
	menuPost    = "post"
	menuBrowse  = "browse"
	menuSearch  = "search"
	menuMyBooks = "mybooks"
)

// mainMenuKeyboard собирает inline-меню главных действий
func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Post a book", callback.Encode(callback.Action{Kind: callback.KindMenu, Query: menuPost})),
			tgbotapi.NewInlineKeyboardButtonData("🔍 Browse books", callback.Encode(callback.Action{Kind: callback.KindMenu, Query: menuBrowse})),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 Search books", callback.Encode(callback.Action{Kind: callback.KindMenu, Query: menuSearch})),
			tgbotapi.NewInlineKeyboardButtonData("📋 My listings", callback.Encode(callback.Action{Kind: callback.KindMenu, Query: menuMyBooks})),
		),
	)
}

// conditionKeyboard — reply-клавиатура выбора состояния книги, по две кнопки в ряд
func conditionKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for i, condition := range models.Conditions {
		row = append(row, tgbotapi.NewKeyboardButton(condition.Label()))
		if (i+1)%2 == 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Cancel")))

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true

	return keyboard
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", callback.Encode(callback.Action{Kind: callback.KindConfirmListing})),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", callback.Encode(callback.Action{Kind: callback.KindCancelListing})),
		),
	)
}

// resultsKeyboard — кнопки контакта для каждой книги страницы плюс навигация.
// Непустой query означает выдачу поиска: навигация несет запрос с собой,
// и добавляется кнопка нового поиска.
func resultsKeyboard(books []models.Book, page, totalPages int, query string) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, book := range books {
		token := callback.Encode(callback.Action{
			Kind:   callback.KindContactSeller,
			Page:   page,
			BookID: book.ID,
		})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Contact: "+truncateTitle(book.Title), token),
		))
	}

	if totalPages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
				"⬅️ Prev",
				callback.Encode(callback.Action{Kind: callback.KindPaginate, Page: page - 1, Query: query}),
			))
		}
		if page < totalPages {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(
				"Next ➡️",
				callback.Encode(callback.Action{Kind: callback.KindPaginate, Page: page + 1, Query: query}),
			))
		}
		if len(nav) > 0 {
			rows = append(rows, nav)
		}
	}

	if query != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 New Search", callback.Encode(callback.Action{Kind: callback.KindNewSearch})),
		))
	}

	if len(rows) == 0 {
		return nil
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// manageKeyboard — кнопки "отметить проданной" для своих объявлений
func manageKeyboard(books []models.Book) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, book := range books {
		token := callback.Encode(callback.Action{
			Kind:   callback.KindMarkSold,
			BookID: book.ID,
		})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Mark #%d sold", book.ID), token),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

const maxButtonTitleRunes = 32

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxButtonTitleRunes {
		return title
	}
	return string(runes[:maxButtonTitleRunes])
}
