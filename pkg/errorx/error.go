package errorx

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code
	Message string
}

func New(code Code, format string, a ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	return e.Message
}

// Is matches any errorx.Error with the same code, so callers can compare
// against a sentinel built with New without caring about the message.
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == code
}
