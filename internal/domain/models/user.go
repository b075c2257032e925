package models

import (
	"fmt"
	"time"
)

// User представляет пользователя Telegram в системе
type User struct {
	ID          int64
	TelegramID  int64
	Username    *string
	DisplayName string
	CreatedAt   time.Time
}

// PublicDisplay возвращает контакт продавца для показа покупателю
func (u *User) PublicDisplay() string {
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return fmt.Sprintf("tg:%d", u.TelegramID)
}
