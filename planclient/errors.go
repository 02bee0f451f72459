package planclient

import (
	"errors"
	"fmt"
)

// Kind classifies a client error for display and retry decisions.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNetwork
	KindServer
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is the single error type returned by Client methods.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("planclient: %s error (%d): %s", e.Kind, e.Status, e.Message)
	case e.Err != nil && e.Message == "":
		return fmt.Sprintf("planclient: %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("planclient: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is true for network and server errors.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// DisplayMessage is the text a UI shows next to the error.
func (e *Error) DisplayMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "Network error. Check your connection and try again."
	case KindDecode:
		return "The server sent a response we could not read. Please try again."
	}
	return e.Message
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}
