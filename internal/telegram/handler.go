package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"bookMarketBot/internal/pkg/logger/sl"
)

// Handler — транспортный слой: long polling, отправка ответов и
// сериализация событий одного пользователя. Логика живет в Engine.
type Handler struct {
	log           *slog.Logger
	bot           *tgbotapi.BotAPI
	engine        *Engine
	locks         userLocks
	updateTimeout int
}

func NewHandler(log *slog.Logger, bot *tgbotapi.BotAPI, engine *Engine, updateTimeout int) *Handler {
	return &Handler{
		log:           log,
		bot:           bot,
		engine:        engine,
		locks:         userLocks{locks: make(map[int64]*sync.Mutex)},
		updateTimeout: updateTimeout,
	}
}

// Start читает обновления до отмены контекста. Каждое обновление
// обрабатывается в своей горутине, события одного пользователя
// выполняются по очереди.
func (h *Handler) Start(ctx context.Context) {
	const op = "TelegramHandler.Start"

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = h.updateTimeout

	updates := h.bot.GetUpdatesChan(updateConfig)

	h.log.Info("telegram long polling started", slog.String("op", op), slog.String("botUsername", h.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			h.log.Info("telegram long polling stopped", slog.String("op", op))
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go h.dispatch(ctx, update)
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, update tgbotapi.Update) {
	const op = "TelegramHandler.dispatch"

	userID, chatID := updateOrigin(update)
	if userID == 0 {
		return
	}

	// очередь на пользователя: два быстрых тапа не гонятся за одну сессию
	lock := h.locks.forUser(userID)
	lock.Lock()
	defer lock.Unlock()

	log := h.log.With(
		slog.String("op", op),
		slog.String("requestId", uuid.NewString()),
		slog.Int64("tgUserId", userID),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling update", slog.Any("panic", r))
			h.replyFailure(chatID)
		}
	}()

	var (
		replies []tgbotapi.Chattable
		err     error
	)
	switch {
	case update.Message != nil:
		replies, err = h.engine.HandleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		replies, err = h.engine.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}
	if err != nil {
		log.Error("failed to handle update", sl.Err(err))
		h.replyFailure(chatID)
		return
	}

	for _, reply := range replies {
		h.send(log, reply)
	}
}

// send доставляет один ответ. Редактирование устаревшего сообщения
// деградирует в отправку нового с тем же содержимым.
func (h *Handler) send(log *slog.Logger, reply tgbotapi.Chattable) {
	switch c := reply.(type) {
	case tgbotapi.CallbackConfig:
		if _, err := h.bot.Request(c); err != nil {
			log.Warn("failed to answer callback query", sl.Err(err))
		}
	case tgbotapi.EditMessageTextConfig:
		if _, err := h.bot.Send(c); err != nil {
			log.Warn("edit failed, sending fresh message", sl.Err(err))
			msg := tgbotapi.NewMessage(c.ChatID, c.Text)
			msg.ParseMode = c.ParseMode
			if c.ReplyMarkup != nil {
				msg.ReplyMarkup = c.ReplyMarkup
			}
			if _, err := h.bot.Send(msg); err != nil {
				log.Error("failed to send fallback message", sl.Err(err))
			}
		}
	default:
		if _, err := h.bot.Send(c); err != nil {
			log.Error("failed to send message", sl.Err(err))
		}
	}
}

func (h *Handler) replyFailure(chatID int64) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, "Something went wrong. Please try again.")
	if _, err := h.bot.Send(msg); err != nil {
		h.log.Error("failed to send failure notice", sl.Err(err))
	}
}

func updateOrigin(update tgbotapi.Update) (userID, chatID int64) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		userID = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
		return userID, chatID
	}
	return 0, 0
}

type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (u *userLocks) forUser(userID int64) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()

	lock, ok := u.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[userID] = lock
	}
	return lock
}

// BotSender адаптирует BotAPI под интерфейс отправителя уведомлений
type BotSender struct {
	bot *tgbotapi.BotAPI
}

func NewBotSender(bot *tgbotapi.BotAPI) *BotSender {
	return &BotSender{bot: bot}
}

func (s *BotSender) SendMessage(chatID int64, text string) error {
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return err
	}
	return nil
}
