package core

import (
	"errors"
	"fmt"
)

// ErrRateLimited matches with errors.Is when a provider returns 429.
var ErrRateLimited = errors.New("rate limited, retry after backoff")

// MootError wraps domain-specific errors with a kind tag.
type MootError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

type ErrorKind int

const (
	ErrKindLLMAPI ErrorKind = iota
	ErrKindDatabase
	ErrKindConfig
)

func (e *MootError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MootError) Unwrap() error { return e.Cause }

func NewLLMErrorf(format string, args ...any) error {
	return &MootError{Kind: ErrKindLLMAPI, Message: fmt.Sprintf(format, args...)}
}

func NewConfigError(msg string) error {
	return &MootError{Kind: ErrKindConfig, Message: msg}
}

func NewConfigErrorf(format string, args ...any) error {
	return &MootError{Kind: ErrKindConfig, Message: fmt.Sprintf(format, args...)}
}

func WrapDBError(msg string, err error) error {
	return &MootError{Kind: ErrKindDatabase, Message: msg, Cause: err}
}
