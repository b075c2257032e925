package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookMarketBot/internal/callback"
	"bookMarketBot/internal/domain/models"
	"bookMarketBot/internal/pkg/logger/sl"
	repo "bookMarketBot/internal/repository"
	"bookMarketBot/internal/service/catalog"
	"bookMarketBot/internal/service/listing"
	"bookMarketBot/internal/service/notify"
	"bookMarketBot/internal/service/user"
	"bookMarketBot/internal/session"
)

// Engine — ядро диалогов. Принимает входящее событие, разрешает текущий
// шаг пользователя из session.Store, вызывает сервисы каталога/объявлений
// и возвращает готовые к отправке сообщения. Транспорта не касается,
// поэтому тестируется без сети.
type Engine struct {
	log      *slog.Logger
	sessions session.Store
	users    *userservice.Service
	catalog  *catalogservice.Service
	listings *listingservice.Service
	notifier *notifyservice.Dispatcher
	pageSize int
}

func NewEngine(
	log *slog.Logger,
	sessions session.Store,
	users *userservice.Service,
	catalog *catalogservice.Service,
	listings *listingservice.Service,
	notifier *notifyservice.Dispatcher,
	pageSize int,
) *Engine {
	return &Engine{
		log:      log,
		sessions: sessions,
		users:    users,
		catalog:  catalog,
		listings: listings,
		notifier: notifier,
		pageSize: pageSize,
	}
}

const (
	welcomeText = "👋 Welcome to the Book Swap Marketplace!\n\n" +
		"• Post textbooks you want to sell\n" +
		"• Browse available books from other students\n" +
		"• Manage your active listings\n\n" +
		"Choose an option from the menu below:"

	helpText = "Here are the main commands:\n" +
		"/start – show welcome menu\n" +
		"/post – start listing flow\n" +
		"/browse – browse available books\n" +
		"/search – search for specific books\n" +
		"/mybooks – manage your listings\n" +
		"/cancel – cancel the current flow"

	searchPromptText = "🔎 <b>Search Books</b>\n\n" +
		"Enter keywords to search for books by:\n" +
		"• Title\n" +
		"• Author\n" +
		"• Description\n\n" +
		"Type your search term:"

	staleActionText = "Stale or invalid action."
)

// HandleMessage обрабатывает команду или свободный текст
func (e *Engine) HandleMessage(ctx context.Context, msg *tgbotapi.Message) ([]tgbotapi.Chattable, error) {
	user, err := e.ensureUser(ctx, msg.From)
	if err != nil {
		return nil, err
	}

	command := msg.Command()
	if command == "" {
		command = buttonCommand(msg.Text)
	}
	if command != "" {
		return e.handleCommand(ctx, msg.Chat.ID, user, command)
	}

	return e.handleText(ctx, msg.Chat.ID, user, msg.Text)
}

func (e *Engine) handleCommand(ctx context.Context, chatID int64, user *models.User, command string) ([]tgbotapi.Chattable, error) {
	switch command {
	case "start":
		e.sessions.Clear(user.TelegramID)
		reply := tgbotapi.NewMessage(chatID, welcomeText)
		reply.ReplyMarkup = mainMenuKeyboard()
		return []tgbotapi.Chattable{reply}, nil

	case "help":
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, helpText)}, nil

	case "post":
		return e.startListingFlow(chatID, user), nil

	case "browse":
		return e.browsePage(ctx, chatID, 1)

	case "search":
		return e.startSearchFlow(chatID, user), nil

	case "mybooks":
		return e.myListings(ctx, chatID, user)

	case "cancel":
		if _, ok := e.sessions.Get(user.TelegramID); !ok {
			return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "❌ You're not in any process to cancel.")}, nil
		}
		e.sessions.Clear(user.TelegramID)
		reply := tgbotapi.NewMessage(chatID, "✅ Canceled! Back to the main menu.")
		reply.ReplyMarkup = mainMenuKeyboard()
		return []tgbotapi.Chattable{reply}, nil

	default:
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see what I can do.")}, nil
	}
}

// handleText продвигает активный диалог. Невалидный ввод не двигает шаг:
// пользователь получает подсказку и пробует снова.
func (e *Engine) handleText(ctx context.Context, chatID int64, user *models.User, rawText string) ([]tgbotapi.Chattable, error) {
	sess, ok := e.sessions.Get(user.TelegramID)
	if !ok {
		reply := tgbotapi.NewMessage(chatID, "Choose an option from the menu below:")
		reply.ReplyMarkup = mainMenuKeyboard()
		return []tgbotapi.Chattable{reply}, nil
	}

	text := strings.TrimSpace(rawText)

	switch sess.Stage {
	case session.StageTitle:
		if text == "" {
			return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Please provide a title.")}, nil
		}
		sess.Draft.Title = text
		sess.Stage = session.StageAuthor
		e.sessions.Set(user.TelegramID, sess)
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Who's the author? Send 'skip' if unknown.")}, nil

	case session.StageAuthor:
		if text != "" && !strings.EqualFold(text, "skip") {
			sess.Draft.Author = &text
		}
		sess.Stage = session.StageCondition
		e.sessions.Set(user.TelegramID, sess)
		reply := tgbotapi.NewMessage(chatID, "Select the condition:")
		reply.ReplyMarkup = conditionKeyboard()
		return []tgbotapi.Chattable{reply}, nil

	case session.StageCondition:
		condition, err := models.ParseCondition(text)
		if err != nil {
			return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Please choose a condition from the keyboard options.")}, nil
		}
		sess.Draft.Condition = condition
		sess.Stage = session.StagePrice
		e.sessions.Set(user.TelegramID, sess)
		reply := tgbotapi.NewMessage(chatID, "What price are you asking? Use numbers only (e.g., 12.50).")
		reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		return []tgbotapi.Chattable{reply}, nil

	case session.StagePrice:
		price, err := models.ParsePrice(text)
		if err != nil {
			return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Please send a valid non-negative price (e.g., 15.00).")}, nil
		}
		sess.Draft.Price = price
		sess.Stage = session.StageDescription
		e.sessions.Set(user.TelegramID, sess)
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Add an optional description or send 'skip'.")}, nil

	case session.StageDescription:
		if text != "" && !strings.EqualFold(text, "skip") {
			sess.Draft.Description = &text
		}
		sess.Stage = session.StageConfirm
		e.sessions.Set(user.TelegramID, sess)
		reply := tgbotapi.NewMessage(chatID, formatPreview(sess.Draft))
		reply.ReplyMarkup = confirmKeyboard()
		return []tgbotapi.Chattable{reply}, nil

	case session.StageConfirm:
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Use the buttons above to confirm or cancel the listing.")}, nil

	case session.StageSearchQuery:
		if text == "" {
			return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, "Please enter a search term.")}, nil
		}
		// поиск без подтверждения: запрос получен — диалог закончен
		e.sessions.Clear(user.TelegramID)
		return e.searchPage(ctx, chatID, text, 1)

	default:
		// закрытый enum: сюда попадаем только при рассинхроне версий
		e.log.Error("unknown session stage", slog.String("stage", string(sess.Stage)), slog.Int64("tgUserId", user.TelegramID))
		return nil, fmt.Errorf("unknown session stage %q", sess.Stage)
	}
}

// HandleCallback обрабатывает нажатие inline-кнопки
func (e *Engine) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) ([]tgbotapi.Chattable, error) {
	action, err := callback.Decode(query.Data)
	if err != nil {
		// битый или чужой токен — не ошибка системы, отвечаем пользователю
		e.log.Warn("undecodable callback token", slog.String("data", query.Data), sl.Err(err))
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(query.ID, staleActionText)}, nil
	}

	if query.Message == nil {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(query.ID, staleActionText)}, nil
	}

	user, err := e.ensureUser(ctx, query.From)
	if err != nil {
		return nil, err
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch action.Kind {
	case callback.KindMenu:
		return e.handleMenu(ctx, query.ID, chatID, user, action.Query)

	case callback.KindPaginate:
		return e.handlePaginate(ctx, query.ID, chatID, messageID, action)

	case callback.KindContactSeller:
		return e.handleContactSeller(ctx, query.ID, chatID, user, action.BookID)

	case callback.KindMarkSold:
		return e.handleMarkSold(ctx, query.ID, chatID, messageID, user, action.BookID)

	case callback.KindNewSearch:
		return append(
			[]tgbotapi.Chattable{tgbotapi.NewCallback(query.ID, "")},
			e.startSearchFlow(chatID, user)...,
		), nil

	case callback.KindConfirmListing:
		return e.handleConfirmListing(ctx, query.ID, chatID, messageID, user)

	case callback.KindCancelListing:
		e.sessions.Clear(user.TelegramID)
		edit := tgbotapi.NewEditMessageText(chatID, messageID, "Listing cancelled.")
		return []tgbotapi.Chattable{tgbotapi.NewCallback(query.ID, ""), edit}, nil

	default:
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(query.ID, staleActionText)}, nil
	}
}

func (e *Engine) handleMenu(ctx context.Context, queryID string, chatID int64, user *models.User, item string) ([]tgbotapi.Chattable, error) {
	answer := tgbotapi.NewCallback(queryID, "")

	switch item {
	case menuPost:
		return append([]tgbotapi.Chattable{answer}, e.startListingFlow(chatID, user)...), nil
	case menuBrowse:
		replies, err := e.browsePage(ctx, chatID, 1)
		if err != nil {
			return nil, err
		}
		return append([]tgbotapi.Chattable{answer}, replies...), nil
	case menuSearch:
		return append([]tgbotapi.Chattable{answer}, e.startSearchFlow(chatID, user)...), nil
	case menuMyBooks:
		replies, err := e.myListings(ctx, chatID, user)
		if err != nil {
			return nil, err
		}
		return append([]tgbotapi.Chattable{answer}, replies...), nil
	default:
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, staleActionText)}, nil
	}
}

func (e *Engine) handlePaginate(ctx context.Context, queryID string, chatID int64, messageID int, action callback.Action) ([]tgbotapi.Chattable, error) {
	page := action.Page
	if page < 1 {
		page = 1
	}

	var (
		text   string
		markup *tgbotapi.InlineKeyboardMarkup
		err    error
	)
	if action.Query == "" {
		text, markup, err = e.renderBrowse(ctx, page)
	} else {
		text, markup, err = e.renderSearch(ctx, action.Query, page)
	}
	if err != nil {
		return nil, err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup

	return []tgbotapi.Chattable{tgbotapi.NewCallback(queryID, ""), edit}, nil
}

func (e *Engine) handleContactSeller(ctx context.Context, queryID string, chatID int64, buyer *models.User, bookID int64) ([]tgbotapi.Chattable, error) {
	if bookID == 0 {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "Missing book information.")}, nil
	}

	book, err := e.listings.Get(ctx, bookID)
	if errors.Is(err, repo.ErrBookNotFound) {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "This listing is no longer available.")}, nil
	}
	if err != nil {
		return nil, err
	}
	if book.IsSold {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "This listing is no longer available.")}, nil
	}

	sellerContact := "Unavailable"
	if book.Seller != nil {
		sellerContact = book.Seller.PublicDisplay()
	}

	contact := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Seller contact for '%s': %s\nMention that you're from the Book Swap Marketplace.",
		book.Title, sellerContact,
	))

	// интерес уже зафиксирован, уведомление продавцу — best-effort
	e.notifier.NotifySeller(book, buyer)

	return []tgbotapi.Chattable{tgbotapi.NewCallback(queryID, "Contact sent! 👌"), contact}, nil
}

func (e *Engine) handleMarkSold(ctx context.Context, queryID string, chatID int64, messageID int, user *models.User, bookID int64) ([]tgbotapi.Chattable, error) {
	if bookID == 0 {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "Missing book information.")}, nil
	}

	alreadySold, err := e.listings.MarkSold(ctx, bookID, user.ID)
	switch {
	case errors.Is(err, repo.ErrBookNotFound):
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "This listing is no longer available.")}, nil
	case errors.Is(err, listingservice.ErrNotOwner):
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "You cannot modify this listing.")}, nil
	case err != nil:
		return nil, err
	case alreadySold:
		return []tgbotapi.Chattable{tgbotapi.NewCallback(queryID, "Already marked as sold.")}, nil
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, "Listing marked as sold. Refresh /mybooks to see remaining items.")
	return []tgbotapi.Chattable{tgbotapi.NewCallback(queryID, "Marked as sold."), edit}, nil
}

func (e *Engine) handleConfirmListing(ctx context.Context, queryID string, chatID int64, messageID int, user *models.User) ([]tgbotapi.Chattable, error) {
	sess, ok := e.sessions.Get(user.TelegramID)
	if !ok || sess.Stage != session.StageConfirm {
		return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, staleActionText)}, nil
	}

	book, err := e.listings.Create(ctx, user.ID, sess.Draft)
	if err != nil {
		if errors.Is(err, listingservice.ErrEmptyTitle) ||
			errors.Is(err, models.ErrNegativePrice) ||
			errors.Is(err, models.ErrUnknownCondition) {
			return []tgbotapi.Chattable{tgbotapi.NewCallbackWithAlert(queryID, "Invalid listing data.")}, nil
		}
		// внутренняя ошибка: сессию не трогаем, пользователь может повторить
		return nil, err
	}

	e.sessions.Clear(user.TelegramID)

	edit := tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("✅ Book listed! (ID #%d)", book.ID))
	menu := tgbotapi.NewMessage(chatID, "🎉 Your book has been successfully listed!\n\nWhat would you like to do next?")
	menu.ReplyMarkup = mainMenuKeyboard()

	return []tgbotapi.Chattable{tgbotapi.NewCallback(queryID, "Listing published!"), edit, menu}, nil
}

// startListingFlow начинает диалог создания объявления. Прежняя
// незавершенная сессия молча отбрасывается: действует последний старт.
func (e *Engine) startListingFlow(chatID int64, user *models.User) []tgbotapi.Chattable {
	e.sessions.Set(user.TelegramID, session.NewListingSession())

	reply := tgbotapi.NewMessage(chatID, "Let's list a book! What is the title?")
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	return []tgbotapi.Chattable{reply}
}

func (e *Engine) startSearchFlow(chatID int64, user *models.User) []tgbotapi.Chattable {
	e.sessions.Set(user.TelegramID, session.NewSearchSession())

	reply := tgbotapi.NewMessage(chatID, searchPromptText)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	return []tgbotapi.Chattable{reply}
}

func (e *Engine) browsePage(ctx context.Context, chatID int64, page int) ([]tgbotapi.Chattable, error) {
	text, markup, err := e.renderBrowse(ctx, page)
	if err != nil {
		return nil, err
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		reply.ReplyMarkup = markup
	} else {
		reply.ReplyMarkup = mainMenuKeyboard()
	}
	return []tgbotapi.Chattable{reply}, nil
}

func (e *Engine) searchPage(ctx context.Context, chatID int64, query string, page int) ([]tgbotapi.Chattable, error) {
	text, markup, err := e.renderSearch(ctx, query, page)
	if err != nil {
		return nil, err
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		reply.ReplyMarkup = markup
	} else {
		reply.ReplyMarkup = mainMenuKeyboard()
	}
	return []tgbotapi.Chattable{reply}, nil
}

// renderBrowse строит текст и клавиатуру страницы каталога.
// Пустой каталог — объясняющий текст без пагинации.
func (e *Engine) renderBrowse(ctx context.Context, page int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	books, total, totalPages, err := e.catalog.Browse(ctx, page, e.pageSize)
	if err != nil {
		return "", nil, err
	}

	if total == 0 {
		return "No books are available yet. Try again soon!", nil, nil
	}

	return formatBrowsePage(books, page, totalPages), resultsKeyboard(books, page, totalPages, ""), nil
}

func (e *Engine) renderSearch(ctx context.Context, query string, page int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	books, total, totalPages, err := e.catalog.Search(ctx, query, page, e.pageSize)
	if err != nil {
		return "", nil, err
	}

	if total == 0 {
		text := fmt.Sprintf(
			"🔍 No books found for '<b>%s</b>'\n\nTry different keywords or browse all books instead.",
			html.EscapeString(query),
		)
		return text, nil, nil
	}

	return formatSearchPage(books, query, page, totalPages), resultsKeyboard(books, page, totalPages, query), nil
}

func (e *Engine) myListings(ctx context.Context, chatID int64, user *models.User) ([]tgbotapi.Chattable, error) {
	books, err := e.catalog.OwnerListings(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}

	if len(books) == 0 {
		reply := tgbotapi.NewMessage(chatID, "You have no active listings right now.\n\nUse the menu below to post your first book!")
		reply.ReplyMarkup = mainMenuKeyboard()
		return []tgbotapi.Chattable{reply}, nil
	}

	reply := tgbotapi.NewMessage(chatID, formatMyListings(books))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = manageKeyboard(books)
	return []tgbotapi.Chattable{reply}, nil
}

// ensureUser апсертит пользователя на каждом событии, чтобы имя и
// username оставались свежими
func (e *Engine) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	if from == nil {
		return nil, errors.New("update without sender")
	}

	var username *string
	if from.UserName != "" {
		name := from.UserName
		username = &name
	}

	displayName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if displayName == "" {
		displayName = from.UserName
	}
	if displayName == "" {
		displayName = strconv.FormatInt(from.ID, 10)
	}

	return e.users.Ensure(ctx, from.ID, username, displayName)
}

// buttonCommand распознает текст reply-кнопки как команду
func buttonCommand(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "post a book", "list a book", "📚 post a book":
		return "post"
	case "browse", "browse books", "🔍 browse books":
		return "browse"
	case "search", "search books", "🔎 search books":
		return "search"
	case "my books", "my listings", "📋 my listings":
		return "mybooks"
	case "cancel", "❌ cancel":
		return "cancel"
	}
	return ""
}
