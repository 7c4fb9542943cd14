package nuget

import (
	"context"
	"io"
	"strings"

	apperrors "github.com/matzehuels/revdeps/pkg/errors"
	"github.com/matzehuels/revdeps/pkg/integrations"
)

// ContentClient downloads package archives (.nupkg) from the flat container
// (PackageBaseAddress) resource.
type ContentClient struct {
	client  *integrations.Client
	index   *ServiceIndex
	baseURL string
}

// NewContentClient creates a ContentClient. If baseURL is empty the
// PackageBaseAddress is resolved from index on first use.
func NewContentClient(client *integrations.Client, index *ServiceIndex, baseURL string) *ContentClient {
	return &ContentClient{client: client, index: index, baseURL: baseURL}
}

// OpenPackage returns a forward-only stream of the archive for id at version.
// The caller must close it.
func (c *ContentClient) OpenPackage(ctx context.Context, id string, version Version) (io.ReadCloser, error) {
	if err := apperrors.ValidateNuGetPackageID(id); err != nil {
		return nil, err
	}
	base, err := c.base(ctx)
	if err != nil {
		return nil, err
	}
	return c.client.Open(ctx, PackageURL(base, id, version))
}

func (c *ContentClient) base(ctx context.Context) (string, error) {
	if c.baseURL != "" {
		return c.baseURL, nil
	}
	if c.index == nil {
		return "", apperrors.New(apperrors.ErrCodeInvalidConfig, "no package base address and no service index")
	}
	return c.index.Resolve(ctx, contentResourceTypes...)
}

// PackageURL builds the flat container download URL:
// {base}/{id}/{version}/{id}.{version}.nupkg with lower-cased id and
// normalized lower-cased version.
func PackageURL(base, id string, version Version) string {
	lid := strings.ToLower(id)
	lver := strings.ToLower(version.String())
	return integrations.JoinURL(base, lid, lver, lid+"."+lver+".nupkg")
}
