package catalog

import "context"

// Provider searches a remote metadata catalog for collections and
// granules. CMR implements this. Alternatives (STAC, OpenSearch) can too.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// SearchCollections returns collections matching the filter, in
	// catalog relevance order, together with the catalog's reported
	// total hit count. An empty page is a valid, non-error outcome.
	SearchCollections(ctx context.Context, filter CollectionFilter) (*CollectionPage, error)

	// SearchGranules returns granules intersecting the filter, together
	// with the catalog's reported total hit count. An empty page is a
	// valid, non-error outcome.
	SearchGranules(ctx context.Context, filter GranuleFilter) (*GranulePage, error)

	// Close releases resources.
	Close() error
}
