package models

import (
	"time"
)

// Book представляет объявление о продаже книги
type Book struct {
	ID          int64
	Title       string
	Author      *string
	Price       Price
	Condition   Condition
	Description *string
	IsSold      bool
	CreatedAt   time.Time
	SellerID    int64
	Seller      *User
}

// BookDraft — данные, собранные диалогом создания объявления
type BookDraft struct {
	Title       string
	Author      *string
	Price       Price
	Condition   Condition
	Description *string
}
