// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure. Transports map each Kind to a status.
type Kind int

// Failure kinds.
const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindQuotaExhausted
	KindGeneration
	KindInvalidPlan
	KindPaymentUnavailable
	KindPaymentGateway
	KindInvalidSignature
	KindOrderMismatch
	KindEmailTaken
	KindInvalidCredentials
	KindAccountBusy
	KindPaymentApplied
)

// Kinds lists every Kind, for exhaustiveness checks.
var Kinds = []Kind{
	KindInternal,
	KindInvalidInput,
	KindNotFound,
	KindQuotaExhausted,
	KindGeneration,
	KindInvalidPlan,
	KindPaymentUnavailable,
	KindPaymentGateway,
	KindInvalidSignature,
	KindOrderMismatch,
	KindEmailTaken,
	KindInvalidCredentials,
	KindAccountBusy,
	KindPaymentApplied,
}

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindInvalidInput:       "invalid_input",
	KindNotFound:           "not_found",
	KindQuotaExhausted:     "quota_exhausted",
	KindGeneration:         "generation",
	KindInvalidPlan:        "invalid_plan",
	KindPaymentUnavailable: "payment_unavailable",
	KindPaymentGateway:     "payment_gateway",
	KindInvalidSignature:   "invalid_signature",
	KindOrderMismatch:      "order_mismatch",
	KindEmailTaken:         "email_taken",
	KindInvalidCredentials: "invalid_credentials",
	KindAccountBusy:        "account_busy",
	KindPaymentApplied:     "payment_applied",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified service failure. Message is safe to show clients;
// Err carries the internal cause.
type Error struct {
	Kind    Kind
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

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrQuotaExhausted     = &Error{Kind: KindQuotaExhausted, Message: "credit balance exhausted, upgrade your plan"}
	ErrGeneration         = &Error{Kind: KindGeneration, Message: "content generation failed"}
	ErrInvalidPlan        = &Error{Kind: KindInvalidPlan, Message: "invalid plan selected"}
	ErrPaymentUnavailable = &Error{Kind: KindPaymentUnavailable, Message: "payments are not configured"}
	ErrPaymentGateway     = &Error{Kind: KindPaymentGateway, Message: "payment gateway error"}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature, Message: "payment verification failed"}
	ErrOrderMismatch      = &Error{Kind: KindOrderMismatch, Message: "order does not match this account and plan"}
	ErrEmailTaken         = &Error{Kind: KindEmailTaken, Message: "email already registered"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrAccountBusy        = &Error{Kind: KindAccountBusy, Message: "another generation is in progress for this account"}
	ErrPaymentApplied     = &Error{Kind: KindPaymentApplied, Message: "this payment has already been applied"}
)

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, fmt.Sprintf(format, args...), nil)
}

func internal(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

// KindOf returns the Kind of err, or KindInternal if err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message of a classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
