package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidFilter is wrapped by all filter validation failures. Filters
// are validated by the client before any request is sent.
var ErrInvalidFilter = errors.New("invalid search filter")

// CollectionFilter selects collections by free-text keyword. The keyword
// may contain the wildcard characters '*' and '?'.
type CollectionFilter struct {
	Keyword string

	// CloudHostedOnly restricts results to cloud-hosted collections.
	CloudHostedOnly bool

	// Provider restricts results to one archive provider.
	Provider string

	// Limit caps the number of returned descriptors. Zero means the
	// adapter's default.
	Limit int
}

// Validate checks the filter before it is sent to the catalog.
func (f CollectionFilter) Validate() error {
	if f.Keyword == "" {
		return fmt.Errorf("%w: keyword is required", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidFilter)
	}
	return nil
}

// GranuleFilter selects granules within one collection, identified
// either by concept id or by (short name, version). Spatial and
// temporal constraints are optional; at most one spatial constraint
// may be set.
type GranuleFilter struct {
	ConceptID string
	ShortName string
	Version   string

	BoundingBox *BoundingBox
	Polygon     []Point
	Point       *Point

	// Shapefile is the path of a boundary file uploaded with the
	// search as the spatial constraint. Zipped ESRI shapefiles,
	// GeoJSON, and KML are accepted; the file is forwarded to the
	// catalog, not parsed here.
	Shapefile string

	Temporal *TemporalRange

	// Limit caps the number of returned descriptors. Zero means the
	// adapter's default.
	Limit int
}

// Validate checks the filter before it is sent to the catalog.
func (f GranuleFilter) Validate() error {
	if f.ConceptID == "" && f.ShortName == "" {
		return fmt.Errorf("%w: concept id or short name is required", ErrInvalidFilter)
	}
	if f.ConceptID != "" && f.ShortName != "" {
		return fmt.Errorf("%w: concept id and short name are mutually exclusive", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidFilter)
	}

	spatial := 0
	if f.BoundingBox != nil {
		spatial++
		if err := f.BoundingBox.Validate(); err != nil {
			return err
		}
	}
	if len(f.Polygon) > 0 {
		spatial++
		if err := validatePolygon(f.Polygon); err != nil {
			return err
		}
	}
	if f.Point != nil {
		spatial++
		if err := f.Point.Validate(); err != nil {
			return err
		}
	}
	if f.Shapefile != "" {
		spatial++
		if _, err := ShapefileMIME(f.Shapefile); err != nil {
			return err
		}
	}
	if spatial > 1 {
		return fmt.Errorf("%w: at most one spatial constraint may be set", ErrInvalidFilter)
	}

	if f.Temporal != nil {
		if err := f.Temporal.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// shapefileMIMEs maps boundary file extensions to the MIME types the
// catalog's shapefile upload expects.
var shapefileMIMEs = map[string]string{
	".zip":     "application/shapefile+zip",
	".geojson": "application/geo+json",
	".json":    "application/geo+json",
	".kml":     "application/vnd.google-earth.kml+xml",
}

// ShapefileMIME resolves a boundary file path to the MIME type the
// catalog expects for its shapefile search.
func ShapefileMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := shapefileMIMEs[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported shapefile type %q (want .zip, .geojson, .json, or .kml)",
			ErrInvalidFilter, ext)
	}
	return mime, nil
}

// BoundingBox is a geographic rectangle in decimal degrees.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Validate checks coordinate ranges and ordering.
func (b BoundingBox) Validate() error {
	if b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180 {
		return fmt.Errorf("%w: longitude out of range [-180,180]", ErrInvalidFilter)
	}
	if b.South < -90 || b.South > 90 || b.North < -90 || b.North > 90 {
		return fmt.Errorf("%w: latitude out of range [-90,90]", ErrInvalidFilter)
	}
	if b.South >= b.North {
		return fmt.Errorf("%w: bounding box south must be less than north", ErrInvalidFilter)
	}
	// West > East is valid: the box crosses the antimeridian.
	if b.West == b.East {
		return fmt.Errorf("%w: bounding box west and east must differ", ErrInvalidFilter)
	}
	return nil
}

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude out of range [-180,180]", ErrInvalidFilter)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude out of range [-90,90]", ErrInvalidFilter)
	}
	return nil
}

// validatePolygon requires a closed ring: at least four points with the
// first and last identical.
func validatePolygon(ring []Point) error {
	if len(ring) < 4 {
		return fmt.Errorf("%w: polygon requires at least 4 points", ErrInvalidFilter)
	}
	if ring[0] != ring[len(ring)-1] {
		return fmt.Errorf("%w: polygon ring must be closed", ErrInvalidFilter)
	}
	for _, p := range ring {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TemporalRange constrains granules to a start/end window. Either end
// may be zero for an open interval, but not both.
type TemporalRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks interval ordering.
func (t TemporalRange) Validate() error {
	if t.Start.IsZero() && t.End.IsZero() {
		return fmt.Errorf("%w: temporal range requires a start or end", ErrInvalidFilter)
	}
	if !t.Start.IsZero() && !t.End.IsZero() && !t.Start.Before(t.End) {
		return fmt.Errorf("%w: temporal start must precede end", ErrInvalidFilter)
	}
	return nil
}
