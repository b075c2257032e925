package session

import (
	"bookMarketBot/internal/domain/models"
)

// Stage представляет шаг активного диалога пользователя
type Stage string

const (
	// диалог создания объявления
	StageTitle       Stage = "title"
	StageAuthor      Stage = "author"
	StageCondition   Stage = "condition"
	StagePrice       Stage = "price"
	StageDescription Stage = "description"
	StageConfirm     Stage = "confirm"

	// диалог поиска: единственный шаг — ввод запроса
	StageSearchQuery Stage = "search_query"
)

// Session хранит шаг диалога и частично собранные ответы.
// Существует только пока диалог активен; у пользователя не больше одной сессии.
type Session struct {
	Stage Stage
	Draft models.BookDraft
}

// NewListingSession начинает диалог создания объявления с первого шага
func NewListingSession() *Session {
	return &Session{Stage: StageTitle}
}

// NewSearchSession начинает диалог поиска
func NewSearchSession() *Session {
	return &Session{Stage: StageSearchQuery}
}
