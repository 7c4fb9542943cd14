package integrations

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/httputil"
)

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")

	// ErrDecode is returned when a registry response is not the expected JSON document.
	ErrDecode = errors.New("decode error")
)

// networkError classifies a transport failure. Transport failures are
// transient, so the result is wrapped in [httputil.RetryableError].
func networkError(rawURL string, cause error) error {
	return httputil.Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork,
		fmt.Errorf("%w: %v", ErrNetwork, cause), "GET %s", redact(rawURL)))
}

func decodeError(rawURL string, cause error) error {
	return apperrors.Wrap(apperrors.ErrCodeDecode,
		fmt.Errorf("%w: %v", ErrDecode, cause), "decode %s", redact(rawURL))
}

// checkStatus maps an HTTP status code to an error. 5xx and 429 are retryable.
func checkStatus(rawURL string, code int, retryAfter string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 404:
		return apperrors.Wrap(apperrors.ErrCodeNotFound, ErrNotFound, "GET %s", redact(rawURL))
	case code == 429:
		secs, _ := strconv.Atoi(retryAfter)
		return httputil.Retryable(apperrors.Wrap(apperrors.ErrCodeRateLimited,
			&apperrors.RateLimitedError{RetryAfter: time.Duration(secs) * time.Second}, "GET %s", redact(rawURL)))
	case code >= 500:
		return httputil.Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork,
			fmt.Errorf("%w: status %d", ErrNetwork, code), "GET %s", redact(rawURL)))
	default:
		return apperrors.Wrap(apperrors.ErrCodeNetwork,
			fmt.Errorf("%w: status %d", ErrNetwork, code), "GET %s", redact(rawURL))
	}
}

// redact strips user info and query from a URL for error messages and logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// JoinURL appends path segments to base, escaping each segment.
// A trailing slash on base is optional.
func JoinURL(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
