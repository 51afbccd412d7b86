package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is returned when the language-model API itself fails:
// a non-200 status, a quota rejection, or an unreachable endpoint. Tool-level
// failures are never ProviderErrors; they flow back to the model as results.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// RateLimited reports whether the provider rejected the request for quota reasons.
func (e *ProviderError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// IsRateLimited reports whether err wraps a rate-limited ProviderError.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited()
}
