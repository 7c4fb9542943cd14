// Package nuget provides clients for the NuGet V3 protocol.
//
// # Overview
//
// Three pieces of the protocol are used:
//
//   - [ServiceIndex]: the index.json document listing resource URLs
//   - [SearchClient]: the search service, paged with skip/take and filtered
//     by package type
//   - [ContentClient]: the flat container (PackageBaseAddress), which serves
//     .nupkg archives
//
// # Usage
//
//	base := integrations.NewClient(integrations.Options{})
//	index := nuget.NewServiceIndex(base, nuget.DefaultServiceIndexURL)
//
//	search := nuget.NewSearchClient(base, index, nuget.SearchOptions{
//	    URL:         nuget.DefaultSearchURL,
//	    PackageType: nuget.DefaultPackageType,
//	})
//	page, err := search.Search(ctx, 0, 1000)
//
//	content := nuget.NewContentClient(base, index, "")
//	v, err := nuget.ParseVersion(page.Data[0].Version)
//	body, err := content.OpenPackage(ctx, page.Data[0].ID, v)
//	defer body.Close()
//
// # Versions
//
// [ParseVersion] accepts one to four numeric parts plus optional pre-release
// and build metadata. [Version.String] yields the normalized form the flat
// container expects in download URLs.
package nuget
