package config

import (
	"errors"
	"fmt"
)

// Error is a configuration problem detected before any API call is made.
type Error struct {
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error without a field.
func Errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Wrap marks err as a configuration error. Nil stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Msg: msg, Err: err}
}

// IsError reports whether err is, or wraps, a configuration error.
func IsError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}
