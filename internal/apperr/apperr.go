// Package apperr defines the error taxonomy shared by services and the HTTP
// boundary. Services return *Error values; handlers translate MessageID for the
// caller's locale and map Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnavailable      Kind = "service_unavailable"
	KindInvalidSignature Kind = "invalid_signature"
	KindInternal         Kind = "internal_error"
)

// Message IDs resolved against the locale bundles in internal/i18n.
const (
	MsgValidationFailed   = "ValidationFailed"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgInvalidCredentials = "InvalidCredentials"
	MsgInternal           = "InternalError"
	MsgUserNotFound       = "UserNotFound"
	MsgEmailTaken         = "EmailAlreadyRegistered"
	MsgCouponNotFound     = "CouponNotFound"
	MsgCategoryNotFound   = "CategoryNotFound"
	MsgCategoryInUse      = "CategoryInUse"
	MsgSlugTaken          = "SlugAlreadyExists"
	MsgInvalidDecision    = "InvalidDecision"
	MsgStatusForbidden    = "StatusChangeForbidden"
	MsgPaymentUnavailable = "PaymentUnavailable"
	MsgInvalidSignature   = "InvalidSignature"
	MsgMissingUserID      = "WebhookMissingUserID"
	MsgFileRequired       = "FileRequired"
	MsgFileTooLarge       = "FileTooLarge"
	MsgFileTypeNotAllowed = "FileTypeNotAllowed"
	MsgSessionExpired     = "SessionExpired"
)

type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

type Error struct {
	Kind      Kind
	MessageID string
	Params    map[string]any
	Fields    []FieldError
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.MessageID, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.MessageID)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With adds a template parameter used when translating the message.
func (e *Error) With(key string, value any) *Error {
	if e.Params == nil {
		e.Params = make(map[string]any)
	}
	e.Params[key] = value
	return e
}

func New(kind Kind, messageID string) *Error {
	return &Error{Kind: kind, MessageID: messageID}
}

func Wrap(kind Kind, messageID string, err error) *Error {
	return &Error{Kind: kind, MessageID: messageID, Err: err}
}

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, MessageID: MsgValidationFailed, Fields: fields}
}

func Unauthorized() *Error {
	return New(KindUnauthorized, MsgUnauthorized)
}

func Forbidden() *Error {
	return New(KindForbidden, MsgForbidden)
}

func NotFound(messageID string) *Error {
	return New(KindNotFound, messageID)
}

func Conflict(messageID string) *Error {
	return New(KindConflict, messageID)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, MsgInternal, err)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status. Conflicts are reported as
// 400 to match the documented API contract for duplicate emails and
// categories in use.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict, KindInvalidSignature:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
