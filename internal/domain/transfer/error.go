package transfer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("transfer not found")
	ErrVersionConflict = errors.New("transfer version conflict")
	ErrSameStore       = errors.New("source and destination stores must differ")
	ErrNoItems         = errors.New("transfer must contain at least one item")
	ErrEmptyReason     = errors.New("a non-empty reason is required")
	ErrNotCancellable  = errors.New("transfer can no longer be cancelled")
)

// ValidationError ошибка валидации входных данных. Не повторяется —
// вызывающий исправляет запрос.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// InvalidTransitionError недопустимый переход между состояниями.
// Содержит текущее и запрошенное состояние — вызывающий выбирает
// корректный следующий шаг.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.Current, e.Requested)
}

// ItemShortfall нехватка по позиции при согласовании
type ItemShortfall struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError нехватка остатка в магазине-отправителе.
// Ошибка восстановимая: вызывающий уменьшает количество и повторяет.
type InsufficientStockError struct {
	StoreID    string
	Shortfalls []ItemShortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, sf := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", sf.ProductID, sf.Requested, sf.Available)
	}
	return fmt.Sprintf("insufficient stock at %s: %s", e.StoreID, strings.Join(parts, "; "))
}
