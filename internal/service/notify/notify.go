package notifyservice

import (
	"fmt"
	"log/slog"

	"bookMarketBot/internal/domain/models"
	"bookMarketBot/internal/pkg/logger/sl"
)

// Sender доставляет текст в канал пользователя
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Dispatcher отправляет продавцу уведомление об интересе покупателя.
// Доставка best-effort: одна попытка, без очереди повторов. Если продавец
// недоступен (заблокировал бота, удалил аккаунт) — ошибка гасится, интерес
// покупателя к этому моменту уже зафиксирован.
type Dispatcher struct {
	log    *slog.Logger
	sender Sender
}

func New(log *slog.Logger, sender Sender) *Dispatcher {
	return &Dispatcher{
		log:    log,
		sender: sender,
	}
}

const interestTemplate = "📚 Someone is interested in your book!\n\n" +
	"Book: %s\n" +
	"Buyer: %s\n" +
	"Reply directly in Telegram to arrange the exchange."

// NotifySeller вызывается строго после коммита транзакции, породившей интерес
func (d *Dispatcher) NotifySeller(book *models.Book, buyer *models.User) {
	const op = "NotifyDispatcher.NotifySeller"

	if book.Seller == nil {
		d.log.Warn("book has no seller loaded", slog.String("op", op), slog.Int64("bookId", book.ID))
		return
	}

	text := fmt.Sprintf(interestTemplate, book.Title, buyer.PublicDisplay())

	if err := d.sender.SendMessage(book.Seller.TelegramID, text); err != nil {
		d.log.Warn("seller unreachable, notification dropped",
			slog.String("op", op),
			slog.Int64("bookId", book.ID),
			slog.Int64("sellerTgId", book.Seller.TelegramID),
			sl.Err(err),
		)
	}
}
