package domain

import (
	"errors"
	"strings"
)

var (
	ErrNoMatch          = errors.New("question not recognized")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrRejectedQuery    = errors.New("only SELECT queries are allowed")
	ErrStore            = errors.New("store error")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// NoMatchError is returned when no registered keyword occurs in a question.
// Keywords lists what the caller can ask instead, in registration order.
type NoMatchError struct {
	Keywords []string
}

func (e *NoMatchError) Error() string {
	return ErrNoMatch.Error() + ". Try: " + strings.Join(e.Keywords, ", ")
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// ErrorKind returns a stable label for err, used in logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejectedQuery):
		return "rejected_query"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrStore):
		return "store_error"
	default:
		return "internal"
	}
}
