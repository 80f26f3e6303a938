package services

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Validation errors.
var (
	ErrInvalidAmount    = errors.New("points: amount must be greater than zero")
	ErrMissingField     = errors.New("points: required field missing")
	ErrInvalidReference = errors.New("points: reference type and id are required")
	ErrInvalidFilter    = errors.New("points: invalid statement filter")
)

// ErrAccountNotFound is internal: commands translate it into the error of the
// object they were looking for.
var ErrAccountNotFound = errors.New("points: account not found")

// Balance errors.
var (
	ErrInsufficientFunds = errors.New("points: insufficient available balance")
)

// Hold state errors.
var (
	ErrHoldNotFound = errors.New("points: active hold not found")
	ErrHoldConflict = errors.New("points: active hold exists with a different amount")
	ErrHoldResolved = errors.New("points: hold already resolved")
	ErrHoldNotDue   = errors.New("points: hold has not reached its expiry")
)

// Entry errors.
var (
	ErrEntryNotFound      = errors.New("points: ledger entry not found")
	ErrEntryNotReversible = errors.New("points: ledger entry type cannot be reversed")
	ErrAlreadyReversed    = errors.New("points: ledger entry already reversed")
)

// Idempotency errors.
var (
	ErrIdempotencyConflict   = errors.New("points: idempotency key reused with a different request")
	ErrIdempotencyInProgress = errors.New("points: request with this idempotency key is in progress")
)

type errorKind struct {
	err    error
	code   string
	status int
}

// Order matters: the first match wins, so joined errors resolve to the most
// specific kind.
var errorKinds = []errorKind{
	{ErrInvalidAmount, "INVALID_AMOUNT", http.StatusBadRequest},
	{ErrMissingField, "MISSING_FIELD", http.StatusBadRequest},
	{ErrInvalidReference, "INVALID_REFERENCE", http.StatusBadRequest},
	{ErrInvalidFilter, "INVALID_FILTER", http.StatusBadRequest},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS", http.StatusUnprocessableEntity},
	{ErrHoldResolved, "HOLD_RESOLVED", http.StatusConflict},
	{ErrHoldConflict, "HOLD_CONFLICT", http.StatusConflict},
	{ErrHoldNotDue, "HOLD_NOT_DUE", http.StatusConflict},
	{ErrHoldNotFound, "HOLD_NOT_FOUND", http.StatusNotFound},
	{ErrEntryNotFound, "ENTRY_NOT_FOUND", http.StatusNotFound},
	{ErrEntryNotReversible, "ENTRY_NOT_REVERSIBLE", http.StatusConflict},
	{ErrAlreadyReversed, "ALREADY_REVERSED", http.StatusConflict},
	{ErrIdempotencyConflict, "IDEMPOTENCY_CONFLICT", http.StatusUnprocessableEntity},
	{ErrIdempotencyInProgress, "IDEMPOTENCY_IN_PROGRESS", http.StatusConflict},
}

// businessKinds are the failures recorded as FAILED idempotency outcomes.
// Idempotency errors themselves are excluded: they describe the key, not the command.
var businessKinds = []error{
	ErrInvalidAmount, ErrMissingField, ErrInvalidReference, ErrInvalidFilter,
	ErrInsufficientFunds,
	ErrHoldNotFound, ErrHoldConflict, ErrHoldResolved, ErrHoldNotDue,
	ErrEntryNotFound, ErrEntryNotReversible, ErrAlreadyReversed,
}

// IsBusinessError reports whether err is a domain rule violation rather than
// an infrastructure failure.
func IsBusinessError(err error) bool {
	for _, kind := range businessKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// ErrorCode returns the stable machine code for err, or INTERNAL.
func ErrorCode(err error) string {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.code
		}
	}
	return "INTERNAL"
}

// HTTPStatus maps err onto the response status used by the HTTP transport.
func HTTPStatus(err error) int {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.status
		}
	}
	return http.StatusInternalServerError
}

// ErrorBody is the serialized form of a business failure. Kinds lists every
// matching code so a replay classifies the same way as the first attempt.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Kinds   []string `json:"kinds,omitempty"`
}

func newErrorBody(err error) ErrorBody {
	body := ErrorBody{Code: ErrorCode(err), Message: err.Error()}
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			body.Kinds = append(body.Kinds, kind.code)
		}
	}
	return body
}

// ReplayedError is returned when a FAILED idempotency record is replayed.
// It unwraps to the original sentinels so callers classify it the same way.
type ReplayedError struct {
	Body  ErrorBody
	kinds []error
}

func (e *ReplayedError) Error() string { return e.Body.Message }

func (e *ReplayedError) Unwrap() []error { return e.kinds }

func decodeErrorBody(raw []byte) *ReplayedError {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		body = ErrorBody{Code: "INTERNAL", Message: string(raw)}
	}

	codes := body.Kinds
	if len(codes) == 0 {
		codes = []string{body.Code}
	}

	replayed := &ReplayedError{Body: body}
	for _, kind := range errorKinds {
		for _, code := range codes {
			if kind.code == code {
				replayed.kinds = append(replayed.kinds, kind.err)
				break
			}
		}
	}
	return replayed
}
