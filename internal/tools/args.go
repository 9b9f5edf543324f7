package tools

import (
	"fmt"

	"github.com/joao-fontenele/orderflow-insights/internal/domain"
)

// Args holds the decoded arguments of a tool call.
type Args map[string]any

// String returns the string argument key, or fallback when it is missing,
// null or empty. Non-string values are invalid arguments.
func (a Args) String(key, fallback string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", domain.ErrInvalidArgument, key, v)
	}
	if s == "" {
		return fallback, nil
	}
	return s, nil
}
