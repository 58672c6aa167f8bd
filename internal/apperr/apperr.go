// Package apperr is the closed error taxonomy of the account service.
//
// Every failure leaving the service layer is an *Error carrying a stable
// Code. Callers dispatch with errors.Is against the sentinels below or with
// CodeOf, never on the message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind groups codes by the nature of the failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeEmailInUse               Code = "EmailInUse"
	CodeAccountNotFound          Code = "AccountNotFound"
	CodeInvalidCredentials       Code = "InvalidCredentials"
	CodeUnauthenticated          Code = "Unauthenticated"
	CodeTokenInvalid             Code = "TokenInvalid"
	CodeTokenExpired             Code = "TokenExpired"
	CodeTokenMalformed           Code = "TokenMalformed"
	CodeSessionSuperseded        Code = "SessionSuperseded"
	CodePasswordMismatch         Code = "PasswordMismatch"
	CodeCurrentPasswordIncorrect Code = "CurrentPasswordIncorrect"
	CodePasswordUnchanged        Code = "PasswordUnchanged"
	CodeResetTokenNotFound       Code = "ResetTokenNotFound"
	CodeResetTokenExpired        Code = "ResetTokenExpired"
	CodeMissingInput             Code = "MissingInput"
	CodeInvalidDigestFormat      Code = "InvalidDigestFormat"
	CodeStoreUnavailable         Code = "StoreUnavailable"
	CodeDeliveryFailed           Code = "DeliveryFailed"
	CodeInternal                 Code = "Internal"
)

type entry struct {
	kind    Kind
	status  int
	message string
}

var table = map[Code]entry{
	CodeEmailInUse:               {KindConflict, http.StatusConflict, "email is already registered"},
	CodeAccountNotFound:          {KindNotFound, http.StatusNotFound, "account not found"},
	CodeInvalidCredentials:       {KindAuth, http.StatusUnauthorized, "invalid credentials"},
	CodeUnauthenticated:          {KindAuth, http.StatusUnauthorized, "authentication required"},
	CodeTokenInvalid:             {KindAuth, http.StatusUnauthorized, "token is invalid"},
	CodeTokenExpired:             {KindAuth, http.StatusUnauthorized, "token has expired"},
	CodeTokenMalformed:           {KindAuth, http.StatusUnauthorized, "token is malformed"},
	CodeSessionSuperseded:        {KindAuth, http.StatusUnauthorized, "session is no longer current"},
	CodePasswordMismatch:         {KindValidation, http.StatusBadRequest, "passwords do not match"},
	CodeCurrentPasswordIncorrect: {KindAuth, http.StatusUnauthorized, "current password is incorrect"},
	CodePasswordUnchanged:        {KindValidation, http.StatusBadRequest, "new password must differ from the current one"},
	CodeResetTokenNotFound:       {KindNotFound, http.StatusNotFound, "reset token not found"},
	CodeResetTokenExpired:        {KindValidation, http.StatusBadRequest, "reset token has expired"},
	CodeMissingInput:             {KindValidation, http.StatusBadRequest, "required input is missing"},
	CodeInvalidDigestFormat:      {KindInternal, http.StatusInternalServerError, "stored password digest is malformed"},
	CodeStoreUnavailable:         {KindDependency, http.StatusInternalServerError, "account store unavailable"},
	CodeDeliveryFailed:           {KindDependency, http.StatusBadGateway, "email delivery failed"},
	CodeInternal:                 {KindInternal, http.StatusInternalServerError, "internal error"},
}

// Kind reports the kind of c. Unknown codes are internal.
func (c Code) Kind() Kind { return table[c].kind }

// Known reports whether c belongs to the taxonomy.
func (c Code) Known() bool {
	_, ok := table[c]
	return ok
}

// Status reports the outward status number of c.
func (c Code) Status() int {
	if e, ok := table[c]; ok {
		return e.status
	}
	return http.StatusInternalServerError
}

// Error is a taxonomy error. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = table[e.Code].message
	}
	if e.Err != nil {
		return string(e.Code) + ": " + msg + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Kind is shorthand for e.Code.Kind().
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Status is shorthand for e.Code.Status().
func (e *Error) Status() int { return e.Code.Status() }

// Public returns a message safe to show to callers.
func (e *Error) Public() string {
	if e.Message != "" {
		return e.Message
	}
	if m, ok := table[e.Code]; ok {
		return m.message
	}
	return table[CodeInternal].message
}

// New returns an error with code c and its default message.
func New(c Code) *Error { return &Error{Code: c} }

// Wrap returns an error with code c caused by err.
func Wrap(c Code, err error) *Error { return &Error{Code: c, Err: err} }

// CodeOf extracts the code of the first *Error in err's chain.
// Non-taxonomy errors report CodeInternal; nil reports "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// From returns err as an *Error, wrapping foreign errors as CodeInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(CodeInternal, err)
}

// Sentinels for errors.Is.
var (
	ErrEmailInUse               = New(CodeEmailInUse)
	ErrAccountNotFound          = New(CodeAccountNotFound)
	ErrInvalidCredentials       = New(CodeInvalidCredentials)
	ErrUnauthenticated          = New(CodeUnauthenticated)
	ErrTokenInvalid             = New(CodeTokenInvalid)
	ErrTokenExpired             = New(CodeTokenExpired)
	ErrTokenMalformed           = New(CodeTokenMalformed)
	ErrSessionSuperseded        = New(CodeSessionSuperseded)
	ErrPasswordMismatch         = New(CodePasswordMismatch)
	ErrCurrentPasswordIncorrect = New(CodeCurrentPasswordIncorrect)
	ErrPasswordUnchanged        = New(CodePasswordUnchanged)
	ErrResetTokenNotFound       = New(CodeResetTokenNotFound)
	ErrResetTokenExpired        = New(CodeResetTokenExpired)
	ErrMissingInput             = New(CodeMissingInput)
	ErrInvalidDigestFormat      = New(CodeInvalidDigestFormat)
	ErrStoreUnavailable         = New(CodeStoreUnavailable)
	ErrDeliveryFailed           = New(CodeDeliveryFailed)
	ErrInternal                 = New(CodeInternal)
)
