package models

import (
	"errors"
	"strings"
)

// Condition представляет физическое состояние книги
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionLikeNew    Condition = "like_new"
	ConditionGood       Condition = "good"
	ConditionAcceptable Condition = "acceptable"
	ConditionPoor       Condition = "poor"
)

// Conditions — фиксированный упорядоченный набор состояний
var Conditions = []Condition{
	ConditionNew,
	ConditionLikeNew,
	ConditionGood,
	ConditionAcceptable,
	ConditionPoor,
}

var ErrUnknownCondition = errors.New("unknown book condition")

var conditionLabels = map[Condition]string{
	ConditionNew:        "New",
	ConditionLikeNew:    "Like New",
	ConditionGood:       "Good",
	ConditionAcceptable: "Acceptable",
	ConditionPoor:       "Poor",
}

// Label возвращает человекочитаемую подпись состояния
func (c Condition) Label() string {
	if label, ok := conditionLabels[c]; ok {
		return label
	}
	return string(c)
}

// ConditionFromValue декодирует состояние из хранимого значения ("new", "like_new", ...).
// Используется HTTP-фасадом: значение должно совпадать точно.
func ConditionFromValue(value string) (Condition, error) {
	for _, c := range Conditions {
		if string(c) == value {
			return c, nil
		}
	}
	return "", ErrUnknownCondition
}

// ParseCondition разбирает пользовательский ввод: подпись или хранимое значение,
// без учета регистра ("good", "Like New", "LIKE_NEW").
func ParseCondition(input string) (Condition, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, c := range Conditions {
		if normalized == string(c) || normalized == strings.ToLower(c.Label()) {
			return c, nil
		}
	}
	return "", ErrUnknownCondition
}
