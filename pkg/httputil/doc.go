// Package httputil provides HTTP plumbing shared by the registry clients.
//
// # Overview
//
//   - [NewHTTPClient]: an *http.Client built from an explicit [TransportConfig]
//     (connection pool sizing, idle timeout, request timeout, user agent)
//   - [Retry]: re-attempts operations that fail with a [RetryableError]
//
// # Transport
//
// Pool sizing is configuration, not process-wide state. Size
// MaxConnsPerHost to at least the number of concurrent scan workers so that
// package downloads do not queue behind each other inside the transport:
//
//	client := httputil.NewHTTPClient(httputil.TransportConfig{
//	    MaxConnsPerHost: 32,
//	    IdleConnTimeout: 10 * time.Second,
//	})
//
// # Retry
//
// Registry clients wrap transient failures (connection errors, 5xx
// responses) in [RetryableError]. Whether they are actually retried is up to
// the [RetryPolicy] in use; [NoRetry] keeps the fail-fast behaviour:
//
//	err := httputil.DefaultRetry.Do(ctx, func() error {
//	    return fetchPage(ctx, skip)
//	})
//
// Defaults:
//
//   - Max connections per host: 32
//   - Idle connection timeout: 10 seconds
//   - Request timeout: 2 minutes
//   - DefaultRetry: 3 attempts, 1 second base backoff
package httputil
