package testcookie

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// =============================================================================
// Challenge resolution errors
// =============================================================================

// ExtractionError indicates a challenge page did not yield all three
// parameters. Extraction never produces partial results, so the first missing
// variable fails the whole parse.
type ExtractionError struct {
	Missing string // script variable that could not be located ("a", "b" or "c")
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("testcookie: challenge parameter %q missing or malformed", e.Missing)
}

// OriginResolutionError indicates no origin could be determined for fetching
// the decryption routine. It is returned before any network call is made:
// loading the routine from the wrong host would derive a wrong cookie, so
// there is no safe default.
type OriginResolutionError struct {
	URL string // original request URL, for context; may be empty
}

func (e *OriginResolutionError) Error() string {
	return fmt.Sprintf("testcookie: cannot resolve origin for crypto routine (request url %q)", e.URL)
}

// CryptoLoadError indicates the decryption routine could not be fetched from
// the origin or instantiated from the fetched script.
type CryptoLoadError struct {
	Err error
}

func (e *CryptoLoadError) Error() string {
	return "testcookie: load crypto routine: " + e.Err.Error()
}

func (e *CryptoLoadError) Unwrap() error {
	return e.Err
}

// DecryptionError indicates the loaded routine's decrypt invocation failed or
// produced output that is not a byte sequence.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return "testcookie: decrypt: " + e.Err.Error()
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Retryable errors
// =============================================================================

// retryableErrorPatterns contains error message substrings that indicate retryable errors.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError checks if the error is temporary and worth retrying with a
// new proxy. Challenge resolution errors are never retryable: the origin is
// answering, it is the page or the routine that is broken.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var (
		extractErr *ExtractionError
		originErr  *OriginResolutionError
		decryptErr *DecryptionError
	)
	if errors.As(err, &extractErr) || errors.As(err, &originErr) || errors.As(err, &decryptErr) {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
