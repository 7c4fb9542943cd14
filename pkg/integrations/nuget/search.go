package nuget

import (
	"context"
	"net/url"
	"strconv"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations"
)

// DefaultSearchURL is the nuget.org search endpoint queried when no URL is
// configured and discovery is not requested.
const DefaultSearchURL = "https://azuresearch-usnc.nuget.org/query"

// DefaultPackageType restricts search results to .NET tools.
const DefaultPackageType = "DotnetTool"

// SearchResult is one package summary of a search page.
type SearchResult struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// SearchPage is one decoded search response.
type SearchPage struct {
	TotalHits int            `json:"totalHits"`
	Data      []SearchResult `json:"data"`
}

// SearchOptions configures a [SearchClient].
type SearchOptions struct {
	// URL is the search endpoint. Empty discovers it from the service index.
	URL string

	// PackageType filters results (e.g. "DotnetTool"). Empty searches all packages.
	PackageType string

	// Prerelease includes packages whose latest version is a pre-release.
	Prerelease bool

	// SemVerLevel requests SemVer 2.0.0 packages when set to "2.0.0".
	SemVerLevel string
}

// SearchClient pages through the registry's search service.
type SearchClient struct {
	client *integrations.Client
	index  *ServiceIndex
	opts   SearchOptions
}

// NewSearchClient creates a SearchClient. index is only consulted when
// opts.URL is empty and may be nil otherwise.
func NewSearchClient(client *integrations.Client, index *ServiceIndex, opts SearchOptions) *SearchClient {
	return &SearchClient{client: client, index: index, opts: opts}
}

// Search fetches the page starting at skip with at most take results.
// An empty Data slice means the result set is exhausted.
func (s *SearchClient) Search(ctx context.Context, skip, take int) (*SearchPage, error) {
	endpoint, err := s.endpoint(ctx)
	if err != nil {
		return nil, err
	}

	var page SearchPage
	if err := s.client.Get(ctx, s.queryURL(endpoint, skip, take), &page); err != nil {
		return nil, err
	}
	for i, r := range page.Data {
		if r.ID == "" || r.Version == "" {
			return nil, apperrors.New(apperrors.ErrCodeDecode,
				"search result %d of page at skip=%d lacks id or version", i, skip)
		}
	}
	return &page, nil
}

func (s *SearchClient) endpoint(ctx context.Context) (string, error) {
	if s.opts.URL != "" {
		return s.opts.URL, nil
	}
	if s.index == nil {
		return DefaultSearchURL, nil
	}
	return s.index.Resolve(ctx, searchResourceTypes...)
}

func (s *SearchClient) queryURL(endpoint string, skip, take int) string {
	q := url.Values{}
	if s.opts.PackageType != "" {
		q.Set("packageType", s.opts.PackageType)
	}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("take", strconv.Itoa(take))
	if s.opts.Prerelease {
		q.Set("prerelease", "true")
	}
	if s.opts.SemVerLevel != "" {
		q.Set("semVerLevel", s.opts.SemVerLevel)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint + "?" + q.Encode()
	}
	existing := u.Query()
	for k, vs := range q {
		existing[k] = vs
	}
	u.RawQuery = existing.Encode()
	return u.String()
}
