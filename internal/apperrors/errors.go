// Package apperrors задаёт доменную таксономию ошибок: стабильный вид
// ошибки плюс сообщение для человека. Обработчики сопоставляют вид с
// HTTP-статусом, не разбирая текст.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind стабильный вид доменной ошибки
type Kind string

const (
	KindValidation    Kind = "validation"    // Некорректный ввод
	KindNotFound      Kind = "not_found"     // Сущность не существует
	KindAuthorization Kind = "authorization" // Актор не владеет ресурсом
	KindConflict      Kind = "conflict"      // Коллизия слота или проигранная гонка
	KindPolicy        Kind = "policy"        // Бизнес-правило (например, нет контакта)
)

// Error доменная ошибка с видом и сообщением
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is позволяет errors.Is сравнивать по виду
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func Policy(format string, args ...any) *Error {
	return newError(KindPolicy, format, args...)
}

// KindOf возвращает вид ошибки, пройдя по цепочке обёрток.
// Для недоменных ошибок возвращает пустой Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind проверяет что ошибка (возможно обёрнутая) имеет заданный вид
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
