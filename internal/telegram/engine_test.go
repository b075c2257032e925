package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookMarketBot/internal/callback"
	"bookMarketBot/internal/domain/models"
	repo "bookMarketBot/internal/repository"
	catalogservice "bookMarketBot/internal/service/catalog"
	listingservice "bookMarketBot/internal/service/listing"
	notifyservice "bookMarketBot/internal/service/notify"
	userservice "bookMarketBot/internal/service/user"
	"bookMarketBot/internal/session"
)

// fakeStorage — общее in-memory хранилище для всех сервисов движка
type fakeStorage struct {
	users  map[int64]*models.User
	books  map[int64]*models.Book
	nextID int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:  make(map[int64]*models.User),
		books:  make(map[int64]*models.Book),
		nextID: 1,
	}
}

func (f *fakeStorage) UpsertUser(_ context.Context, tgUserID int64, username *string, displayName string) (*models.User, error) {
	if user, ok := f.users[tgUserID]; ok {
		user.Username = username
		user.DisplayName = displayName
		return user, nil
	}
	user := &models.User{
		ID:          f.nextID,
		TelegramID:  tgUserID,
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	f.nextID++
	f.users[tgUserID] = user
	return user, nil
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
	f.nextID++
	f.books[book.ID] = book
	return book, nil
}

func (f *fakeStorage) MarkBookSold(_ context.Context, bookID int64) error {
	book, ok := f.books[bookID]
	if !ok {
		return repo.ErrBookNotFound
	}
	book.IsSold = true
	return nil
}

func (f *fakeStorage) BookByID(_ context.Context, bookID int64) (*models.Book, error) {
	book, ok := f.books[bookID]
	if !ok {
		return nil, repo.ErrBookNotFound
	}
	copied := *book
	copied.Seller = f.sellerOf(book.SellerID)
	return &copied, nil
}

func (f *fakeStorage) Books(_ context.Context, filter repo.BookFilter, page, perPage int) ([]models.Book, int, error) {
	var matched []models.Book
	for id := int64(1); id < f.nextID; id++ {
		book, ok := f.books[id]
		if !ok {
			continue
		}
		if book.IsSold && !filter.IncludeSold {
			continue
		}
		if filter.SellerID != nil && book.SellerID != *filter.SellerID {
			continue
		}
		if filter.Query != "" && !matchesQuery(book, filter.Query) {
			continue
		}
		copied := *book
		copied.Seller = f.sellerOf(book.SellerID)
		matched = append(matched, copied)
	}

	total := len(matched)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeStorage) sellerOf(sellerID int64) *models.User {
	for _, user := range f.users {
		if user.ID == sellerID {
			copied := *user
			return &copied
		}
	}
	return nil
}

func matchesQuery(book *models.Book, query string) bool {
	query = strings.ToLower(query)
	if strings.Contains(strings.ToLower(book.Title), query) {
		return true
	}
	if book.Author != nil && strings.Contains(strings.ToLower(*book.Author), query) {
		return true
	}
	if book.Description != nil && strings.Contains(strings.ToLower(*book.Description), query) {
		return true
	}
	return false
}

type fakeSender struct {
	sent []sentMessage
}

type sentMessage struct {
	chatID int64
	text   string
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeStorage, *fakeSender) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage := newFakeStorage()
	sender := &fakeSender{}

	engine := NewEngine(
		log,
		session.NewMemoryStore(),
		userservice.New(log, storage),
		catalogservice.New(log, storage),
		listingservice.New(log, storage, storage),
		notifyservice.New(log, sender),
		10,
	)

	return engine, storage, sender
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: fmt.Sprintf("User%d", userID)},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
}

func commandMessage(userID int64, command string) *tgbotapi.Message {
	msg := textMessage(userID, "/"+command)
	msg.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command) + 1},
	}
	return msg
}

func callbackQuery(userID int64, action callback.Action) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "query-1",
		From: &tgbotapi.User{ID: userID, FirstName: fmt.Sprintf("User%d", userID)},
		Message: &tgbotapi.Message{
			MessageID: 100,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
		Data: callback.Encode(action),
	}
}

func messageTexts(t *testing.T, replies []tgbotapi.Chattable) []string {
	t.Helper()

	var texts []string
	for _, reply := range replies {
		switch c := reply.(type) {
		case tgbotapi.MessageConfig:
			texts = append(texts, c.Text)
		case tgbotapi.EditMessageTextConfig:
			texts = append(texts, c.Text)
		}
	}
	return texts
}

func send(t *testing.T, engine *Engine, msg *tgbotapi.Message) []string {
	t.Helper()

	replies, err := engine.HandleMessage(context.Background(), msg)
	require.NoError(t, err)
	return messageTexts(t, replies)
}

func TestListingFlowEndToEnd(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	texts := send(t, engine, commandMessage(1, "post"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "What is the title?")

	texts = send(t, engine, textMessage(1, "Calculus"))
	assert.Contains(t, texts[0], "author")

	texts = send(t, engine, textMessage(1, "skip"))
	assert.Contains(t, texts[0], "condition")

	texts = send(t, engine, textMessage(1, "Good"))
	assert.Contains(t, texts[0], "price")

	texts = send(t, engine, textMessage(1, "12.5"))
	assert.Contains(t, texts[0], "description")

	texts = send(t, engine, textMessage(1, "skip"))
	assert.Contains(t, texts[0], "Please confirm your listing")
	assert.Contains(t, texts[0], "Title: Calculus")
	assert.Contains(t, texts[0], "Author: Unknown")
	assert.Contains(t, texts[0], "Price: 12.50")

	replies, err := engine.HandleCallback(ctx, callbackQuery(1, callback.Action{Kind: callback.KindConfirmListing}))
	require.NoError(t, err)
	joined := strings.Join(messageTexts(t, replies), "\n")
	assert.Contains(t, joined, "Book listed!")

	require.Len(t, storage.books, 1)
	var book *models.Book
	for _, b := range storage.books {
		book = b
	}
	assert.Equal(t, "Calculus", book.Title)
	assert.Nil(t, book.Author)
	assert.Equal(t, models.ConditionGood, book.Condition)
	assert.Equal(t, models.Price(1250), book.Price)
	assert.False(t, book.IsSold)
}

func TestListingFlowRepromptsOnInvalidInput(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	send(t, engine, commandMessage(1, "post"))
	send(t, engine, textMessage(1, "Calculus"))
	send(t, engine, textMessage(1, "skip"))

	// невалидное состояние не двигает шаг
	texts := send(t, engine, textMessage(1, "mint"))
	assert.Contains(t, texts[0], "choose a condition")

	texts = send(t, engine, textMessage(1, "Good"))
	assert.Contains(t, texts[0], "price")

	// невалидная цена не двигает шаг
	texts = send(t, engine, textMessage(1, "free"))
	assert.Contains(t, texts[0], "valid non-negative price")

	texts = send(t, engine, textMessage(1, "-5"))
	assert.Contains(t, texts[0], "valid non-negative price")

	texts = send(t, engine, textMessage(1, "15"))
	assert.Contains(t, texts[0], "description")
}

func TestCancelClearsSession(t *testing.T) {
	engine, storage, _ := newTestEngine(t)

	send(t, engine, commandMessage(1, "post"))
	send(t, engine, textMessage(1, "Calculus"))

	texts := send(t, engine, commandMessage(1, "cancel"))
	assert.Contains(t, texts[0], "Canceled")

	// после отмены текст попадает не в диалог, а в меню
	texts = send(t, engine, textMessage(1, "Algebra"))
	assert.Contains(t, texts[0], "Choose an option")
	assert.Empty(t, storage.books)
}

func TestCancelWithoutActiveFlow(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	texts := send(t, engine, commandMessage(1, "cancel"))
	assert.Contains(t, texts[0], "not in any process")
}

func TestConfirmCallbackWithoutSessionIsStale(t *testing.T) {
	engine, storage, _ := newTestEngine(t)

	replies, err := engine.HandleCallback(context.Background(), callbackQuery(1, callback.Action{Kind: callback.KindConfirmListing}))
	require.NoError(t, err)

	require.Len(t, replies, 1)
	alert, ok := replies[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, staleActionText, alert.Text)
	assert.Empty(t, storage.books)
}

func TestBrowseEmptyCatalog(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	texts := send(t, engine, commandMessage(1, "browse"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "No books are available yet")
}

func TestBrowseShowsBooksAndPagination(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	seller, err := storage.UpsertUser(ctx, 2, nil, "Seller")
	require.NoError(t, err)
	for i := 0; i < 13; i++ {
		_, err := storage.CreateBook(ctx, seller.ID, models.BookDraft{
			Title:     fmt.Sprintf("Book %d", i+1),
			Price:     1000,
			Condition: models.ConditionGood,
		})
		require.NoError(t, err)
	}

	texts := send(t, engine, commandMessage(1, "browse"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Page 1/2")
	assert.Contains(t, texts[0], "Book 1")

	replies, err := engine.HandleCallback(ctx, callbackQuery(1, callback.Action{Kind: callback.KindPaginate, Page: 2}))
	require.NoError(t, err)
	joined := strings.Join(messageTexts(t, replies), "\n")
	assert.Contains(t, joined, "Page 2/2")
	assert.Contains(t, joined, "Book 13")
}

func TestSearchFlow(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	seller, err := storage.UpsertUser(ctx, 2, nil, "Seller")
	require.NoError(t, err)
	_, err = storage.CreateBook(ctx, seller.ID, models.BookDraft{
		Title:     "Linear Algebra",
		Price:     2000,
		Condition: models.ConditionLikeNew,
	})
	require.NoError(t, err)

	texts := send(t, engine, commandMessage(1, "search"))
	assert.Contains(t, texts[0], "Search Books")

	texts = send(t, engine, textMessage(1, "algebra"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Search results for")
	assert.Contains(t, texts[0], "- Page 1/1")
	assert.Contains(t, texts[0], "Linear Algebra")
}

func TestSearchNoResults(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	send(t, engine, commandMessage(1, "search"))
	texts := send(t, engine, textMessage(1, "nonexistent"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "No books found")
}

func TestContactSellerNotifiesSeller(t *testing.T) {
	engine, storage, sender := newTestEngine(t)
	ctx := context.Background()

	seller, err := storage.UpsertUser(ctx, 2, nil, "Seller Two")
	require.NoError(t, err)
	book, err := storage.CreateBook(ctx, seller.ID, models.BookDraft{
		Title:     "Calculus",
		Price:     1250,
		Condition: models.ConditionGood,
	})
	require.NoError(t, err)

	replies, err := engine.HandleCallback(ctx, callbackQuery(1, callback.Action{
		Kind:   callback.KindContactSeller,
		Page:   1,
		BookID: book.ID,
	}))
	require.NoError(t, err)

	joined := strings.Join(messageTexts(t, replies), "\n")
	assert.Contains(t, joined, "Seller contact for 'Calculus'")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, seller.TelegramID, sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "interested in your book")
	assert.Contains(t, sender.sent[0].text, "Calculus")
}

func TestContactSellerOnSoldBook(t *testing.T) {
	engine, storage, sender := newTestEngine(t)
	ctx := context.Background()

	seller, err := storage.UpsertUser(ctx, 2, nil, "Seller")
	require.NoError(t, err)
	book, err := storage.CreateBook(ctx, seller.ID, models.BookDraft{
		Title:     "Calculus",
		Price:     1250,
		Condition: models.ConditionGood,
	})
	require.NoError(t, err)
	require.NoError(t, storage.MarkBookSold(ctx, book.ID))

	replies, err := engine.HandleCallback(ctx, callbackQuery(1, callback.Action{
		Kind:   callback.KindContactSeller,
		BookID: book.ID,
	}))
	require.NoError(t, err)

	require.Len(t, replies, 1)
	alert, ok := replies[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "no longer available")
	assert.Empty(t, sender.sent)
}

func TestMarkSoldViaCallback(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	// продавец tg id 2 регистрируется первым событием
	send(t, engine, commandMessage(2, "start"))
	seller := storage.users[2]
	book, err := storage.CreateBook(ctx, seller.ID, models.BookDraft{
		Title:     "Calculus",
		Price:     1250,
		Condition: models.ConditionGood,
	})
	require.NoError(t, err)

	// чужой пользователь получает отказ
	replies, err := engine.HandleCallback(ctx, callbackQuery(1, callback.Action{
		Kind:   callback.KindMarkSold,
		BookID: book.ID,
	}))
	require.NoError(t, err)
	alert, ok := replies[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "cannot modify")
	assert.False(t, storage.books[book.ID].IsSold)

	// владелец отмечает продажу
	replies, err = engine.HandleCallback(ctx, callbackQuery(2, callback.Action{
		Kind:   callback.KindMarkSold,
		BookID: book.ID,
	}))
	require.NoError(t, err)
	joined := strings.Join(messageTexts(t, replies), "\n")
	assert.Contains(t, joined, "marked as sold")
	assert.True(t, storage.books[book.ID].IsSold)

	// повтор — мягкий ответ без изменений
	replies, err = engine.HandleCallback(ctx, callbackQuery(2, callback.Action{
		Kind:   callback.KindMarkSold,
		BookID: book.ID,
	}))
	require.NoError(t, err)
	alert, ok = replies[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, alert.Text, "Already marked as sold")
}

func TestMyListingsHidesSoldBooks(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	send(t, engine, commandMessage(1, "start"))
	owner := storage.users[1]

	active, err := storage.CreateBook(ctx, owner.ID, models.BookDraft{
		Title:     "Active Book",
		Price:     1000,
		Condition: models.ConditionGood,
	})
	require.NoError(t, err)
	sold, err := storage.CreateBook(ctx, owner.ID, models.BookDraft{
		Title:     "Sold Book",
		Price:     1000,
		Condition: models.ConditionGood,
	})
	require.NoError(t, err)
	require.NoError(t, storage.MarkBookSold(ctx, sold.ID))

	texts := send(t, engine, commandMessage(1, "mybooks"))
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], active.Title)
	assert.NotContains(t, texts[0], "Sold Book")
}

func TestUndecodableCallbackIsStale(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	query := &tgbotapi.CallbackQuery{
		ID:      "query-1",
		From:    &tgbotapi.User{ID: 1, FirstName: "User"},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 1}},
		Data:    "garbage data",
	}

	replies, err := engine.HandleCallback(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, replies, 1)
	alert, ok := replies[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, staleActionText, alert.Text)
}

func TestEnsureUserRefreshesProfile(t *testing.T) {
	engine, storage, _ := newTestEngine(t)
	ctx := context.Background()

	msg := textMessage(1, "/start")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	msg.From.UserName = "olduser"
	_, err := engine.HandleMessage(ctx, msg)
	require.NoError(t, err)

	require.NotNil(t, storage.users[1].Username)
	assert.Equal(t, "olduser", *storage.users[1].Username)

	msg = textMessage(1, "/start")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	msg.From.UserName = "newuser"
	_, err = engine.HandleMessage(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, "newuser", *storage.users[1].Username)
}
