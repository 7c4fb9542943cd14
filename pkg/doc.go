// Package pkg provides the libraries behind revdeps, a reverse-dependency
// scanner for the NuGet registry.
//
// # Overview
//
// revdeps answers "which published packages depend on library X?" by
// downloading packages and reading the .deps.json manifests they ship. The
// pkg directory is organized into four areas:
//
//  1. [scan] - the pipeline: search producer, bounded queue, worker pool
//  2. [integrations] - the HTTP client and the NuGet search and content APIs
//  3. [archive], [manifest] - reading .nupkg archives and dependency manifests
//  4. [cache], [sink], [status], [config] - infrastructure around a scan
//
// # Architecture
//
//	NuGet search (paged)
//	         ↓
//	    [scan.Ingestor] (one producer)
//	         ↓
//	    [scan.Queue] (bounded, 1000 by default)
//	         ↓
//	    [scan.Scanner] × 32 workers
//	         ↓            ↘
//	    [archive] → [manifest]   [cache] (verdicts)
//	         ↓
//	    [sink] (stdout, JSON Lines, MongoDB) + [scan.Result]
//
// # Quick Start
//
//	client := integrations.NewClient(integrations.Options{
//	    HTTP: httputil.NewHTTPClient(httputil.DefaultTransportConfig()),
//	})
//	index := nuget.NewServiceIndex(client, nuget.DefaultServiceIndexURL)
//	search := nuget.NewSearchClient(client, index, nuget.SearchOptions{
//	    URL:         nuget.DefaultSearchURL,
//	    PackageType: nuget.DefaultPackageType,
//	})
//	scanner := scan.NewScanner(nuget.NewContentClient(client, index, ""), scan.ScannerOptions{})
//
//	coord := scan.NewCoordinator(search, scanner, scan.Options{StopMode: scan.StopNone})
//	res, err := coord.Run(ctx)
//	for _, m := range res.Matches {
//	    fmt.Printf("%s uses %s\n", m.PackageID, m.Target)
//	}
//
// # Main Packages
//
// [scan] - Coordinator, ingestion, workers and stop modes. A run ends when
// the search is exhausted and the queue drained, or on the first match
// when stopping early.
//
// [integrations] - Rate-limited, retrying HTTP client with status
// classification. [integrations/nuget] resolves the V3 service index, pages
// through search and opens flat-container downloads.
//
// [archive] - Zip access over seekable or streaming bodies; large streams
// spill to a temporary file.
//
// [manifest] - Decoding of .deps.json files and case-insensitive library
// prefix matching.
//
// [cache] - Verdict cache with file, Redis and null backends.
//
// [sink] - Match destinations: the stdout printer, JSON Lines files and
// MongoDB.
//
// [status] - HTTP endpoints exposing live stats and matches of a run.
//
// [config] - TOML/YAML configuration with validation.
//
// [errors] - Structured error codes shared by every package.
//
// [observability] - Hook interfaces for scan, cache and HTTP events.
//
// # Testing
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/scan/...       # Specific package
//	go test -run Example ./...   # Examples only
//
// [scan]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/scan
// [integrations]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/integrations
// [integrations/nuget]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/integrations/nuget
// [archive]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/archive
// [manifest]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/manifest
// [cache]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/cache
// [sink]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/sink
// [status]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/status
// [config]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/observability
//
// [scan.Ingestor]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/scan#Ingestor
// [scan.Queue]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/scan#Queue
// [scan.Scanner]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/scan#Scanner
// [scan.Result]: https://pkg.go.dev/github.com/matzehuels/revdeps/pkg/scan#Result
package pkg
