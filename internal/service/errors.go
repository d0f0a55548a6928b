package service

import (
	"errors"
	"fmt"
)

// Conflict codes surfaced to clients alongside the message.
const (
	CodeSeatUnavailable      = "SEAT_UNAVAILABLE"
	CodeAlreadyGifted        = "ALREADY_GIFTED"
	CodeCouponAlreadyApplied = "COUPON_ALREADY_APPLIED"
	CodeCouponExpired        = "COUPON_EXPIRED"
	CodeCouponEmpty          = "COUPON_EMPTY"
	CodeDoubleRefund         = "DOUBLE_REFUND"
	CodeInvalidState         = "INVALID_STATE"
	CodeDiscountCapReached   = "DISCOUNT_CAP_REACHED"
	CodeInsufficientPoints   = "INSUFFICIENT_POINTS"
	CodeShowtimeStarted      = "SHOWTIME_STARTED"
)

// ValidationError reports malformed input; nothing was read or written.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return "invalid " + e.Field
	default:
		return "validation error"
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an absent booking, coupon, customer, theater or
// showtime.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ConflictError reports a business rule violation against current state.
type ConflictError struct {
	Code string
	Msg  string
	Err  error
}

func (e *ConflictError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Code != "" {
		return e.Code
	}
	return "conflict"
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ForbiddenError reports that the resource belongs to another customer.
type ForbiddenError struct {
	Resource string
}

func (e *ForbiddenError) Error() string {
	if e.Resource == "" {
		return "forbidden"
	}
	return e.Resource + " belongs to another customer"
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}

// ConflictCode returns the code of a ConflictError in err's chain, or "".
func ConflictCode(err error) string {
	var target *ConflictError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}

func conflict(code, msg string) error { return &ConflictError{Code: code, Msg: msg} }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }
