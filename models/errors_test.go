package models

import (
	"fmt"
	"testing"
)

func TestIsRateLimited(t *testing.T) {
	limited := &ProviderError{Provider: "OpenAI", Status: 429, Message: "quota"}
	if !IsRateLimited(limited) {
		t.Error("a 429 provider error should be rate limited")
	}
	if !IsRateLimited(fmt.Errorf("agent error: %w", limited)) {
		t.Error("wrapping must not hide rate limiting")
	}

	serverErr := &ProviderError{Provider: "OpenAI", Status: 500, Message: "boom"}
	if IsRateLimited(serverErr) {
		t.Error("a 500 is not rate limited")
	}
	if IsRateLimited(fmt.Errorf("plain error")) {
		t.Error("non-provider errors are not rate limited")
	}
}
