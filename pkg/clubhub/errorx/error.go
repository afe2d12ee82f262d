package errorx

import (
	"errors"

	"gorm.io/gorm"
)

type Code int

const (
	Unknown          Code = 100000
	BadRequest       Code = 100001
	Forbidden        Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	Conflict         Code = 100006
	Internal         Code = 100007
	InvalidOperation Code = 100008

	// UniqueViolation is raised by the store when a write breaks a unique
	// index. It is a Conflict for every caller.
	UniqueViolation Code = 200001
)

// Error carries a stable code and a user-facing message.
// Two Errors match under errors.Is when their codes match, so the
// package-level sentinels can be used as kinds.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, message string) Error {
	return Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) Error {
	return Error{Code: code, Message: message, Err: err}
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == UniqueViolation && t.Code == Conflict
}

var (
	ErrNotFound         = Error{Code: NotFound, Message: "not found"}
	ErrConflict         = Error{Code: Conflict, Message: "conflict"}
	ErrForbidden        = Error{Code: Forbidden, Message: "forbidden"}
	ErrInvalidOperation = Error{Code: InvalidOperation, Message: "invalid operation"}
	ErrUniqueViolation  = Error{Code: UniqueViolation, Message: "unique constraint violation"}
	ErrInternal         = Error{Code: Internal, Message: "internal error"}
)

// FromDB classifies a gorm error. Missing rows become NotFound with the given
// message, unique index violations become UniqueViolation, anything else is
// Internal.
func FromDB(err error, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(NotFound, notFoundMessage, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(UniqueViolation, ErrUniqueViolation.Message, err)
	default:
		return Wrap(Internal, ErrInternal.Message, err)
	}
}

// CodeOf returns the code carried by err, or Unknown.
func CodeOf(err error) Code {
	var e Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
