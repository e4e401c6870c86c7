// Package catalog defines the metadata catalog types and provider interface.
package catalog

import (
	"strings"
	"time"
)

// Link relation types used by catalog access links.
const (
	// RelDirectAccess marks an in-region object store URL (s3://bucket/key).
	RelDirectAccess = "http://esipfed.org/ns/fedsearch/1.1/s3#"

	// RelDownload marks a generic HTTPS download URL.
	RelDownload = "http://esipfed.org/ns/fedsearch/1.1/data#"
)

// Link is one access URL attached to a collection or granule.
type Link struct {
	Rel   string
	Title string
	URL   string
}

// Direct reports whether the link points at the object store itself
// rather than a download gateway.
func (l Link) Direct() bool {
	return l.Rel == RelDirectAccess || strings.HasPrefix(l.URL, "s3://")
}

// Collection is a read-only descriptor of a named, versioned dataset
// series as returned by the catalog. It is a snapshot of catalog state
// at query time.
type Collection struct {
	ConceptID   string
	ShortName   string
	Version     string
	Title       string
	Provider    string
	CloudHosted bool
	Links       []Link
}

// Granule is a read-only descriptor of one discrete data file belonging
// to a collection.
type Granule struct {
	ConceptID           string
	CollectionConceptID string
	Title               string

	// SizeBytes is the reported object size. Zero when the catalog
	// record omits it.
	SizeBytes int64

	TimeStart *time.Time
	TimeEnd   *time.Time

	// BoundingBox is the granule's spatial extent, when reported.
	BoundingBox *BoundingBox

	Links []Link
}

// DirectLink returns the granule's direct object-store link, if any.
func (g Granule) DirectLink() (Link, bool) {
	for _, l := range g.Links {
		if l.Direct() {
			return l, true
		}
	}
	return Link{}, false
}

// DownloadLink returns the granule's HTTPS download link, if any.
func (g Granule) DownloadLink() (Link, bool) {
	for _, l := range g.Links {
		if l.Rel == RelDownload && strings.HasPrefix(l.URL, "https://") {
			return l, true
		}
	}
	return Link{}, false
}

// CollectionPage holds one ordered page of collection search results.
// Hits is the total match count reported by the catalog, which may
// exceed len(Collections) when the query was truncated by a limit.
type CollectionPage struct {
	Collections []Collection
	Hits        int
}

// GranulePage holds one ordered page of granule search results.
type GranulePage struct {
	Granules []Granule
	Hits     int
}
