package models

import (
	"errors"
	"fmt"
	"strings"
)

// Price хранит цену в копейках (центах), чтобы избежать плавающей точки
type Price int64

var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrNegativePrice = errors.New("price must be non-negative")
)

// максимум 8 целых разрядов — под колонку numeric(10,2)
const maxPriceIntDigits = 8

// ParsePrice разбирает и нормализует цену на границе ввода:
// неотрицательное десятичное число, округление до 2 знаков (half-up).
func ParsePrice(text string) (Price, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativePrice
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, ErrInvalidPrice
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidPrice
	}
	if len(intPart) > maxPriceIntDigits {
		return 0, ErrInvalidPrice
	}

	var cents int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidPrice
		}
		cents = cents*10 + int64(r-'0')
	}
	cents *= 100

	for i, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidPrice
		}
		switch i {
		case 0:
			cents += int64(r-'0') * 10
		case 1:
			cents += int64(r - '0')
		case 2:
			// третий знак решает округление half-up, остальные не влияют
			if r >= '5' {
				cents++
			}
		}
	}

	return Price(cents), nil
}

// String форматирует цену с двумя знаками после точки, например "12.50"
func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}
