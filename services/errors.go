package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures. Controllers map kinds to HTTP status codes.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is the error type returned by every service in this package
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed or inconsistent input
func ValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFoundError reports a missing card, customer or document
func NotFoundError(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// ConflictError reports a request that does not fit the current state of the data
func ConflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// StorageError wraps a database or file storage failure
func StorageError(code, message string, err error) *Error {
	return &Error{Kind: KindStorage, Code: code, Message: message, Err: err}
}

// IsKind reports whether err is a service error of kind k
func IsKind(err error, k ErrorKind) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Kind == k
}

// asServiceError passes service errors through and wraps anything else as a database failure
func asServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return StorageError("DATABASE_ERROR", message, err)
}
