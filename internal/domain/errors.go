package domain

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated возвращается, если операция требует активной сессии.
var ErrNotAuthenticated = errors.New("нет активной сессии")

// ValidationError ошибка проверки входных данных до сетевого вызова.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Required создаёт ошибку об отсутствии обязательного поля.
func Required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// APIError единый тип транспортной ошибки удалённого API.
// Status равен 0 для сетевых сбоев и некорректного JSON.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsValidation сообщает, является ли err ошибкой проверки.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
