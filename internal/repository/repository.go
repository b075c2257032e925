package repository

import (
	"errors"

	"bookMarketBot/internal/domain/models"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")
)

// BookFilter описывает выборку книг. Поля-подстроки матчатся
// без учета регистра; пустые поля не участвуют в фильтре.
type BookFilter struct {
	// Query ищет подстроку в title, author и description одновременно
	Query string
	// Author и Title — фильтры HTTP-фасада по отдельным полям
	Author string
	Title  string

	Condition *models.Condition
	SellerID  *int64

	// IncludeSold включает проданные книги; по умолчанию они скрыты
	IncludeSold bool
}
