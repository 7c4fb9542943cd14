// Package integrations provides HTTP clients for package registry APIs.
//
// # Overview
//
// This package holds the shared [Client] used by the registry-specific
// subpackages:
//
//   - [nuget]: NuGet search service, service index and flat-container
//     package downloads
//
// # Client Pattern
//
// Registry clients embed a [Client] and add protocol-specific methods:
//
//	base := integrations.NewClient(integrations.Options{
//	    HTTP:      httputil.NewHTTPClient(cfg.Transport),
//	    RateLimit: 20,
//	})
//	search := nuget.NewSearchClient(base, nuget.SearchOptions{PackageType: "DotnetTool"})
//	page, err := search.Search(ctx, 0, 1000)
//
// [Client] handles:
//   - rate limiting shared by all workers (token bucket)
//   - retry of transient failures according to a [httputil.RetryPolicy]
//   - status classification into [ErrNotFound], [ErrNetwork], [ErrDecode],
//     each also carrying a code from [errors]
//   - HTTP events for [observability.HTTPHooks]
//
// # Errors
//
// Errors returned by [Client] satisfy both the sentinel checks and the coded
// checks:
//
//	errors.Is(err, integrations.ErrNetwork)
//	apperrors.Is(err, apperrors.ErrCodeNetwork)
//
// [nuget]: github.com/matzehuels/revdeps/pkg/integrations/nuget
// [errors]: github.com/matzehuels/revdeps/pkg/errors
// [httputil.RetryPolicy]: github.com/matzehuels/revdeps/pkg/httputil.RetryPolicy
// [observability.HTTPHooks]: github.com/matzehuels/revdeps/pkg/observability.HTTPHooks
package integrations
