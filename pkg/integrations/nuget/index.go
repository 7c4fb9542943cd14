package nuget

import (
	"context"
	"strings"
	"sync"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations"
)

// DefaultServiceIndexURL is the V3 service index of nuget.org.
const DefaultServiceIndexURL = "https://api.nuget.org/v3/index.json"

// Resource types looked up in the service index, most preferred first.
var (
	searchResourceTypes  = []string{"SearchQueryService/3.5.0", "SearchQueryService/3.0.0-rc", "SearchQueryService"}
	contentResourceTypes = []string{"PackageBaseAddress/3.0.0"}
)

// Resource is one entry of a service index.
type Resource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

type serviceIndexResponse struct {
	Version   string     `json:"version"`
	Resources []Resource `json:"resources"`
}

// ServiceIndex lazily fetches a V3 service index and resolves resource URLs.
// The index is fetched once on first use; a failed fetch is not cached.
// It is safe for concurrent use.
type ServiceIndex struct {
	client *integrations.Client
	url    string

	mu        sync.Mutex
	resources []Resource
}

// NewServiceIndex creates a ServiceIndex for url. An empty url uses
// [DefaultServiceIndexURL].
func NewServiceIndex(client *integrations.Client, url string) *ServiceIndex {
	if url == "" {
		url = DefaultServiceIndexURL
	}
	return &ServiceIndex{client: client, url: url}
}

// URL returns the service index location.
func (s *ServiceIndex) URL() string { return s.url }

// Resolve returns the @id of the first resource matching one of types, in
// the order given. It fails with NOT_FOUND if the index has none of them.
func (s *ServiceIndex) Resolve(ctx context.Context, types ...string) (string, error) {
	resources, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range types {
		for _, r := range resources {
			if strings.EqualFold(r.Type, t) && r.ID != "" {
				return r.ID, nil
			}
		}
	}
	return "", apperrors.Wrap(apperrors.ErrCodeNotFound, integrations.ErrNotFound,
		"service index %s has no resource of type %s", s.url, strings.Join(types, ", "))
}

func (s *ServiceIndex) load(ctx context.Context) ([]Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resources != nil {
		return s.resources, nil
	}

	var resp serviceIndexResponse
	if err := s.client.Get(ctx, s.url, &resp); err != nil {
		return nil, err
	}
	if len(resp.Resources) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeDecode, "service index %s lists no resources", s.url)
	}
	s.resources = resp.Resources
	return s.resources, nil
}
