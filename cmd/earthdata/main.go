// Package main provides the earthdata command line interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/polarpath/earthdata/pkg/catalog"
	"github.com/polarpath/earthdata/pkg/dataset"
	"github.com/polarpath/earthdata/pkg/platform"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a command is required")
	}

	ctx := setupSignalHandler()

	switch args[0] {
	case "login":
		return runLogin(ctx, args[1:])
	case "collections":
		return runCollections(ctx, args[1:])
	case "granules":
		return runGranules(ctx, args[1:])
	case "describe":
		return runDescribe(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "version":
		fmt.Printf("earthdata version %s\n", platform.Version)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: earthdata <command> [flags]

Commands:
  login        Verify identity credentials and show the session expiry
  collections  Search the catalog for dataset collections
  granules     Search a collection for granules
  describe     Open a granule and describe a subgroup
  plot         Open a granule and render a 2-D scatter plot
  version      Show version and exit`)
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *commonFlags) setup() (*platform.Platform, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := platform.Config{}
	if c.configPath != "" {
		loaded, err := platform.LoadConfig(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	return platform.New(cfg)
}

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := common.setup()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("authenticated as %s", session.UserID)
	if !session.ExpiresAt.IsZero() {
		fmt.Printf(" (token expires %s)", session.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func runCollections(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("collections", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	keyword := fs.String("keyword", "", "Search keyword (supports * and ? wildcards)")
	cloud := fs.Bool("cloud", false, "Only cloud-hosted collections")
	provider := fs.String("provider", "", "Restrict to one archive provider")
	limit := fs.Int("limit", 25, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := common.setup()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	page, err := p.SearchCollections(ctx, catalog.CollectionFilter{
		Keyword:         *keyword,
		CloudHostedOnly: *cloud,
		Provider:        *provider,
		Limit:           *limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONCEPT-ID\tSHORT-NAME\tVERSION\tCLOUD\tTITLE")
	for _, c := range page.Collections {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", c.ConceptID, c.ShortName, c.Version, c.CloudHosted, c.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d matching collections\n", len(page.Collections), page.Hits)
	return nil
}

// granuleFlags cover granule selection, shared by granules, describe,
// and plot.
type granuleFlags struct {
	collection string
	shortName  string
	version    string
	bbox       string
	shapefile  string
	start      string
	end        string
	limit      int
}

func (g *granuleFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.collection, "collection", "", "Collection concept id")
	fs.StringVar(&g.shortName, "short-name", "", "Collection short name")
	fs.StringVar(&g.version, "version", "", "Collection version")
	fs.StringVar(&g.bbox, "bbox", "", "Bounding box as west,south,east,north")
	fs.StringVar(&g.shapefile, "shapefile", "", "Boundary file (.zip, .geojson, .json, or .kml) as the spatial constraint")
	fs.StringVar(&g.start, "start", "", "Temporal start (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&g.end, "end", "", "Temporal end (RFC3339 or YYYY-MM-DD)")
	fs.IntVar(&g.limit, "limit", 10, "Maximum results")
}

func (g *granuleFlags) filter() (catalog.GranuleFilter, error) {
	filter := catalog.GranuleFilter{
		ConceptID: g.collection,
		ShortName: g.shortName,
		Version:   g.version,
		Limit:     g.limit,
	}
	if g.bbox != "" {
		box, err := parseBBox(g.bbox)
		if err != nil {
			return filter, err
		}
		filter.BoundingBox = &box
	}
	filter.Shapefile = g.shapefile
	if g.start != "" || g.end != "" {
		temporal, err := parseTemporal(g.start, g.end)
		if err != nil {
			return filter, err
		}
		filter.Temporal = &temporal
	}
	return filter, nil
}

func runGranules(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("granules", flag.ContinueOnError)
	var common commonFlags
	var gf granuleFlags
	common.register(fs)
	gf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := gf.filter()
	if err != nil {
		return err
	}

	p, err := common.setup()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	page, err := p.SearchGranules(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONCEPT-ID\tSIZE\tSTART\tDIRECT\tTITLE")
	for _, g := range page.Granules {
		start := ""
		if g.TimeStart != nil {
			start = g.TimeStart.Format(time.RFC3339)
		}
		_, direct := g.DirectLink()
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
			g.ConceptID, humanize.Bytes(uint64(g.SizeBytes)), start, direct, g.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d matching granules\n", len(page.Granules), page.Hits)
	return nil
}

func runDescribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	var common commonFlags
	var gf granuleFlags
	common.register(fs)
	gf.register(fs)
	group := fs.String("group", "/", "Subgroup path inside the container")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := gf.filter()
	if err != nil {
		return err
	}
	filter.Limit = 1

	p, err := common.setup()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	g, err := loadFirstGroup(ctx, p, filter, *group)
	if err != nil {
		return err
	}

	fmt.Printf("group %s\n", g.Path)
	for _, k := range sortedKeys(g.Attributes) {
		fmt.Printf("  :%s = %v\n", k, g.Attributes[k])
	}
	for _, sub := range g.Subgroups {
		fmt.Printf("  group %s/\n", sub)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, v := range g.Variables {
		dims := make([]string, 0, len(v.Dimensions))
		for _, d := range v.Dimensions {
			dims = append(dims, fmt.Sprintf("%s=%d", d.Name, d.Len))
		}
		fmt.Fprintf(w, "  %s\t(%s)\t%d elements\n", v.Name, strings.Join(dims, ", "), v.Len())
	}
	return w.Flush()
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	var common commonFlags
	var gf granuleFlags
	common.register(fs)
	gf.register(fs)
	group := fs.String("group", "/", "Subgroup path inside the container")
	xVar := fs.String("x", "", "Variable for the x axis")
	yVar := fs.String("y", "", "Variable for the y axis")
	out := fs.String("out", "scatter.png", "Output PNG path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *xVar == "" || *yVar == "" {
		return fmt.Errorf("-x and -y variables are required")
	}

	filter, err := gf.filter()
	if err != nil {
		return err
	}
	filter.Limit = 1

	p, err := common.setup()
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	g, err := loadFirstGroup(ctx, p, filter, *group)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := p.RenderScatter(g, *xVar, *yVar, f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

// loadFirstGroup runs the full pipeline for the first matching granule:
// login, broker credentials, search, open, decode.
func loadFirstGroup(ctx context.Context, p *platform.Platform, filter catalog.GranuleFilter, groupPath string) (*dataset.Group, error) {
	if _, err := p.Login(ctx); err != nil {
		return nil, err
	}
	if p.Config().Credentials.Endpoint != "" {
		if _, err := p.FetchCredentials(ctx); err != nil {
			return nil, err
		}
	}

	page, err := p.SearchGranules(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(page.Granules) == 0 {
		return nil, fmt.Errorf("no granules matched the filter")
	}

	handles, err := p.OpenGranules(ctx, page.Granules[:1])
	if err != nil {
		return nil, err
	}
	h := handles[0]
	defer func() { _ = h.Close() }()

	return p.LoadGroup(ctx, h, groupPath)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseBBox(s string) (catalog.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return catalog.BoundingBox{}, fmt.Errorf("bbox requires west,south,east,north")
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return catalog.BoundingBox{}, fmt.Errorf("bbox value %q: %w", part, err)
		}
		vals[i] = v
	}
	return catalog.BoundingBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}, nil
}

func parseTemporal(start, end string) (catalog.TemporalRange, error) {
	var t catalog.TemporalRange
	var err error
	if start != "" {
		if t.Start, err = parseDate(start); err != nil {
			return t, err
		}
	}
	if end != "" {
		if t.End, err = parseDate(end); err != nil {
			return t, err
		}
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (want RFC3339 or YYYY-MM-DD)", s)
}
