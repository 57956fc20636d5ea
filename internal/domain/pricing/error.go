package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("pricing record not found")
	ErrVersionConflict = errors.New("pricing version conflict")
)

// ValidationError ошибка проверки входных данных о цене
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}
