// Package cmr provides a CMR implementation of the catalog provider.
package cmr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/polarpath/earthdata/pkg/catalog"
)

const (
	maxPageSize = 2000

	// defaultLimit bounds searches that do not set an explicit limit.
	defaultLimit = 2000

	// hitsHeader carries the catalog's total match count.
	hitsHeader = "CMR-Hits"
)

// Adapter implements catalog.Provider against a CMR search endpoint.
type Adapter struct {
	cfg Config
	hc  *http.Client
}

// New creates a new CMR adapter.
func New(cfg Config) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "cmr"
}

// SearchCollections searches collections by keyword.
func (a *Adapter) SearchCollections(ctx context.Context, filter catalog.CollectionFilter) (*catalog.CollectionPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	params := url.Values{}
	params.Set("keyword", filter.Keyword)
	if filter.CloudHostedOnly {
		params.Set("cloud_hosted", "true")
	}
	if filter.Provider != "" {
		params.Set("provider", filter.Provider)
	}

	page := &catalog.CollectionPage{Collections: []catalog.Collection{}}
	err := a.paginate(ctx, "/search/collections.json", params, limit, a.get, func(body []byte, hits int) (int, error) {
		var feed collectionFeed
		if err := json.Unmarshal(body, &feed); err != nil {
			return 0, fmt.Errorf("parsing collection response: %w", err)
		}
		page.Hits = hits
		for _, e := range feed.Feed.Entry {
			if len(page.Collections) >= limit {
				break
			}
			page.Collections = append(page.Collections, e.toCollection())
		}
		return len(feed.Feed.Entry), nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// SearchGranules searches granules within one collection.
func (a *Adapter) SearchGranules(ctx context.Context, filter catalog.GranuleFilter) (*catalog.GranulePage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	params := url.Values{}
	if filter.ConceptID != "" {
		params.Set("collection_concept_id", filter.ConceptID)
	} else {
		params.Set("short_name", filter.ShortName)
		if filter.Version != "" {
			params.Set("version", filter.Version)
		}
	}
	if filter.BoundingBox != nil {
		b := filter.BoundingBox
		params.Set("bounding_box", fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North))
	}
	if len(filter.Polygon) > 0 {
		coords := make([]string, 0, len(filter.Polygon)*2)
		for _, p := range filter.Polygon {
			coords = append(coords, fmt.Sprintf("%g", p.Lon), fmt.Sprintf("%g", p.Lat))
		}
		params.Set("polygon", strings.Join(coords, ","))
	}
	if filter.Point != nil {
		params.Set("point", fmt.Sprintf("%g,%g", filter.Point.Lon, filter.Point.Lat))
	}
	if filter.Temporal != nil {
		params.Set("temporal", formatTemporal(*filter.Temporal))
	}

	fetch := a.get
	if filter.Shapefile != "" {
		shapefileFetch, err := a.shapefileFetcher(filter.Shapefile)
		if err != nil {
			return nil, err
		}
		fetch = shapefileFetch
	}

	page := &catalog.GranulePage{Granules: []catalog.Granule{}}
	err := a.paginate(ctx, "/search/granules.json", params, limit, fetch, func(body []byte, hits int) (int, error) {
		var feed granuleFeed
		if err := json.Unmarshal(body, &feed); err != nil {
			return 0, fmt.Errorf("parsing granule response: %w", err)
		}
		page.Hits = hits
		for _, e := range feed.Feed.Entry {
			if len(page.Granules) >= limit {
				break
			}
			page.Granules = append(page.Granules, e.toGranule())
		}
		return len(feed.Feed.Entry), nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	a.hc.CloseIdleConnections()
	return nil
}

// fetchFunc issues one search page request.
type fetchFunc func(ctx context.Context, path string, params url.Values) ([]byte, int, error)

// paginate walks search pages until limit results were consumed, the
// reported hit count is exhausted, or the service returns a short page.
// consume parses one page body and returns the entry count it held.
func (a *Adapter) paginate(ctx context.Context, path string, params url.Values, limit int, fetch fetchFunc, consume func(body []byte, hits int) (int, error)) error {
	pageSize := a.cfg.PageSize
	if limit < pageSize {
		pageSize = limit
	}
	params.Set("page_size", strconv.Itoa(pageSize))

	seen := 0
	for pageNum := 1; ; pageNum++ {
		params.Set("page_num", strconv.Itoa(pageNum))

		body, hits, err := fetch(ctx, path, params)
		if err != nil {
			return err
		}
		n, err := consume(body, hits)
		if err != nil {
			return err
		}
		seen += n

		if seen >= limit || seen >= hits || n < pageSize {
			return nil
		}
	}
}

func (a *Adapter) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	u := strings.TrimSuffix(a.cfg.Endpoint, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating catalog request: %w", err)
	}
	return a.do(req)
}

// shapefileFetcher reads the boundary file once and returns a fetch
// that uploads it with each search page as a multipart POST, the form
// the catalog's shapefile search requires.
func (a *Adapter) shapefileFetcher(path string) (fetchFunc, error) {
	mime, err := catalog.ShapefileMIME(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shapefile: %w", err)
	}
	name := filepath.Base(path)

	return func(ctx context.Context, searchPath string, params url.Values) ([]byte, int, error) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for key, vals := range params {
			for _, v := range vals {
				if err := mw.WriteField(key, v); err != nil {
					return nil, 0, fmt.Errorf("building shapefile request: %w", err)
				}
			}
		}
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="shapefile"; filename=%q`, name))
		hdr.Set("Content-Type", mime)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, 0, fmt.Errorf("building shapefile request: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, 0, fmt.Errorf("building shapefile request: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, 0, fmt.Errorf("building shapefile request: %w", err)
		}

		u := strings.TrimSuffix(a.cfg.Endpoint, "/") + searchPath
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
		if err != nil {
			return nil, 0, fmt.Errorf("creating catalog request: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return a.do(req)
	}, nil
}

func (a *Adapter) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Client-Id", a.cfg.ClientID)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if a.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("reading catalog response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return nil, 0, fmt.Errorf("catalog rejected query: %s", errorSummary(body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, fmt.Errorf("catalog authorization failed: %s", resp.Status)
	default:
		return nil, 0, fmt.Errorf("catalog request failed: %s", resp.Status)
	}

	hits, _ := strconv.Atoi(resp.Header.Get(hitsHeader))
	return body, hits, nil
}

// errorSummary extracts the service's error list from a 400 body.
func errorSummary(body []byte) string {
	var e struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &e); err == nil && len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	return string(body)
}

func formatTemporal(t catalog.TemporalRange) string {
	var start, end string
	if !t.Start.IsZero() {
		start = t.Start.UTC().Format(time.RFC3339)
	}
	if !t.End.IsZero() {
		end = t.End.UTC().Format(time.RFC3339)
	}
	return start + "," + end
}

// collectionFeed mirrors the catalog's legacy JSON collection format.
type collectionFeed struct {
	Feed struct {
		Entry []collectionEntry `json:"entry"`
	} `json:"feed"`
}

type collectionEntry struct {
	ID          string      `json:"id"`
	ShortName   string      `json:"short_name"`
	VersionID   string      `json:"version_id"`
	Title       string      `json:"title"`
	DataCenter  string      `json:"data_center"`
	CloudHosted bool        `json:"cloud_hosted"`
	Links       []linkEntry `json:"links"`
}

func (e collectionEntry) toCollection() catalog.Collection {
	return catalog.Collection{
		ConceptID:   e.ID,
		ShortName:   e.ShortName,
		Version:     e.VersionID,
		Title:       e.Title,
		Provider:    e.DataCenter,
		CloudHosted: e.CloudHosted,
		Links:       toLinks(e.Links),
	}
}

// granuleFeed mirrors the catalog's legacy JSON granule format.
type granuleFeed struct {
	Feed struct {
		Entry []granuleEntry `json:"entry"`
	} `json:"feed"`
}

type granuleEntry struct {
	ID                  string      `json:"id"`
	CollectionConceptID string      `json:"collection_concept_id"`
	Title               string      `json:"title"`
	GranuleSize         string      `json:"granule_size"`
	TimeStart           string      `json:"time_start"`
	TimeEnd             string      `json:"time_end"`
	Boxes               []string    `json:"boxes"`
	Links               []linkEntry `json:"links"`
}

func (e granuleEntry) toGranule() catalog.Granule {
	g := catalog.Granule{
		ConceptID:           e.ID,
		CollectionConceptID: e.CollectionConceptID,
		Title:               e.Title,
		Links:               toLinks(e.Links),
	}
	// granule_size is a decimal string in megabytes.
	if mb, err := strconv.ParseFloat(e.GranuleSize, 64); err == nil {
		g.SizeBytes = int64(mb * 1024 * 1024)
	}
	if t, err := time.Parse(time.RFC3339, e.TimeStart); err == nil {
		g.TimeStart = &t
	}
	if t, err := time.Parse(time.RFC3339, e.TimeEnd); err == nil {
		g.TimeEnd = &t
	}
	if len(e.Boxes) > 0 {
		if b, ok := parseBox(e.Boxes[0]); ok {
			g.BoundingBox = &b
		}
	}
	return g
}

// parseBox parses the catalog's "south west north east" box string.
func parseBox(s string) (catalog.BoundingBox, bool) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return catalog.BoundingBox{}, false
	}
	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return catalog.BoundingBox{}, false
		}
		vals[i] = v
	}
	return catalog.BoundingBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}, true
}

type linkEntry struct {
	Rel   string `json:"rel"`
	Title string `json:"title"`
	Href  string `json:"href"`
}

func toLinks(entries []linkEntry) []catalog.Link {
	if len(entries) == 0 {
		return nil
	}
	links := make([]catalog.Link, 0, len(entries))
	for _, l := range entries {
		links = append(links, catalog.Link{Rel: l.Rel, Title: l.Title, URL: l.Href})
	}
	return links
}

// Verify interface compliance.
var _ catalog.Provider = (*Adapter)(nil)
