package governor

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsRetryable determines whether an error is transient: connection
// failures, timeouts, rate limiting, and retryable server errors. Auth and
// malformed-request failures are not; retrying them only burns quota.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// The SDK wraps HTTP status failures; the status code is reliably
	// present in the message even when the typed error is not exposed.
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504", "529"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	for _, marker := range []string{
		"internal server error",
		"bad gateway",
		"service unavailable",
		"gateway timeout",
		"overloaded",
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"temporary failure",
		"unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
