package domain

import (
	"errors"
	"net/http"
)

// Error - прикладная ошибка с сообщением для клиента и HTTP-кодом.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func NewUnprocessable(message string, cause error) *Error {
	return newError(http.StatusUnprocessableEntity, message, cause)
}

func NewUnauthorized(message string, cause error) *Error {
	return newError(http.StatusUnauthorized, message, cause)
}

func NewNotFound(message string, cause error) *Error {
	return newError(http.StatusNotFound, message, cause)
}

func NewConflict(message string, cause error) *Error {
	return newError(http.StatusConflict, message, cause)
}

func NewInternal(message string, cause error) *Error {
	return newError(http.StatusInternalServerError, message, cause)
}

func NewTooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, message, nil)
}

// StatusOf возвращает HTTP-код для ошибки. Всё, что не *Error, считается 500.
func StatusOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return http.StatusInternalServerError
}
