package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestCollectionFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  CollectionFilter
		wantErr bool
	}{
		{
			name:   "keyword only",
			filter: CollectionFilter{Keyword: "ICESat-2"},
		},
		{
			name:   "wildcard keyword",
			filter: CollectionFilter{Keyword: "ATL0?*", CloudHostedOnly: true},
		},
		{
			name:    "missing keyword",
			filter:  CollectionFilter{CloudHostedOnly: true},
			wantErr: true,
		},
		{
			name:    "negative limit",
			filter:  CollectionFilter{Keyword: "x", Limit: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidFilter) {
					t.Errorf("error does not wrap ErrInvalidFilter: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestShapefileMIME(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "area.zip", want: "application/shapefile+zip"},
		{path: "/data/Area.GeoJSON", want: "application/geo+json"},
		{path: "area.json", want: "application/geo+json"},
		{path: "area.kml", want: "application/vnd.google-earth.kml+xml"},
		{path: "area.shp", wantErr: true},
		{path: "area", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			mime, err := ShapefileMIME(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("expected ErrInvalidFilter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mime != tt.want {
				t.Errorf("got %q, want %q", mime, tt.want)
			}
		})
	}
}

func TestGranuleFilterValidate(t *testing.T) {
	closed := []Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 0}}

	tests := []struct {
		name    string
		filter  GranuleFilter
		wantErr bool
	}{
		{
			name:   "concept id only",
			filter: GranuleFilter{ConceptID: "C1234-NSIDC"},
		},
		{
			name:   "short name and version",
			filter: GranuleFilter{ShortName: "ATL03", Version: "006"},
		},
		{
			name:    "no collection identifier",
			filter:  GranuleFilter{Limit: 5},
			wantErr: true,
		},
		{
			name:    "concept id and short name together",
			filter:  GranuleFilter{ConceptID: "C1-X", ShortName: "ATL03"},
			wantErr: true,
		},
		{
			name: "valid bounding box",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				BoundingBox: &BoundingBox{West: -109, South: 37, East: -102, North: 41},
			},
		},
		{
			name: "antimeridian-crossing bounding box",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				BoundingBox: &BoundingBox{West: 170, South: -55, East: -170, North: -45},
			},
		},
		{
			name: "zero-width bounding box",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				BoundingBox: &BoundingBox{West: -102, South: 37, East: -102, North: 41},
			},
			wantErr: true,
		},
		{
			name: "inverted bounding box latitudes",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				BoundingBox: &BoundingBox{West: -109, South: 41, East: -102, North: 37},
			},
			wantErr: true,
		},
		{
			name: "longitude out of range",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				BoundingBox: &BoundingBox{West: -190, South: 37, East: -102, North: 41},
			},
			wantErr: true,
		},
		{
			name:   "valid polygon",
			filter: GranuleFilter{ConceptID: "C1-X", Polygon: closed},
		},
		{
			name:    "open polygon",
			filter:  GranuleFilter{ConceptID: "C1-X", Polygon: closed[:3]},
			wantErr: true,
		},
		{
			name:   "valid point",
			filter: GranuleFilter{ConceptID: "C1-X", Point: &Point{Lon: -105, Lat: 40}},
		},
		{
			name:    "latitude out of range",
			filter:  GranuleFilter{ConceptID: "C1-X", Point: &Point{Lon: 0, Lat: 95}},
			wantErr: true,
		},
		{
			name: "two spatial constraints",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				Point:       &Point{Lon: 0, Lat: 0},
				BoundingBox: &BoundingBox{West: -1, South: -1, East: 1, North: 1},
			},
			wantErr: true,
		},
		{
			name:   "geojson shapefile",
			filter: GranuleFilter{ConceptID: "C1-X", Shapefile: "area.geojson"},
		},
		{
			name:   "zipped shapefile",
			filter: GranuleFilter{ConceptID: "C1-X", Shapefile: "/data/area.ZIP"},
		},
		{
			name:    "unsupported shapefile type",
			filter:  GranuleFilter{ConceptID: "C1-X", Shapefile: "area.txt"},
			wantErr: true,
		},
		{
			name: "shapefile with bounding box",
			filter: GranuleFilter{
				ConceptID:   "C1-X",
				Shapefile:   "area.geojson",
				BoundingBox: &BoundingBox{West: -1, South: -1, East: 1, North: 1},
			},
			wantErr: true,
		},
		{
			name: "valid temporal range",
			filter: GranuleFilter{
				ConceptID: "C1-X",
				Temporal: &TemporalRange{
					Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
				},
			},
		},
		{
			name: "open-ended temporal range",
			filter: GranuleFilter{
				ConceptID: "C1-X",
				Temporal:  &TemporalRange{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
		},
		{
			name: "empty temporal range",
			filter: GranuleFilter{
				ConceptID: "C1-X",
				Temporal:  &TemporalRange{},
			},
			wantErr: true,
		},
		{
			name: "reversed temporal range",
			filter: GranuleFilter{
				ConceptID: "C1-X",
				Temporal: &TemporalRange{
					Start: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidFilter) {
					t.Errorf("error does not wrap ErrInvalidFilter: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
