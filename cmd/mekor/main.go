// Command mekor is the CLI for the citation resolution engine.
// It parses citation strings, resolves them against a catalog store, and
// formats the results as standardized citations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/otzaria/mekor/core/cache"
	"github.com/otzaria/mekor/core/cite"
	"github.com/otzaria/mekor/core/reference"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/core/score"
	"github.com/otzaria/mekor/internal/api"
	"github.com/otzaria/mekor/internal/archive"
	"github.com/otzaria/mekor/internal/ingest"
	"github.com/otzaria/mekor/internal/logging"
	"github.com/otzaria/mekor/internal/store"
)

const version = "0.1.0"

// CLI defines the command-line interface for mekor.
var CLI struct {
	// Global flags
	Store   string `name:"store" short:"s" help:"Path to the catalog store" env:"MEKOR_STORE" default:"mekor.db" type:"path"`
	Verbose bool   `name:"verbose" short:"v" help:"Enable debug logging"`
	LogText bool   `name:"log-text" help:"Log in human-readable text instead of JSON"`

	// Command groups (noun-first organization)
	Parse   ParseCmd     `cmd:"" help:"Parse a citation string into book name and locator"`
	Resolve ResolveCmd   `cmd:"" help:"Resolve a reference against a catalog root"`
	Format  FormatCmd    `cmd:"" help:"Resolve and format a reference as a citation"`
	Match   MatchCmd     `cmd:"" help:"Fuzzy-match free text against catalog sources"`
	Catalog CatalogGroup `cmd:"" help:"Catalog operations (import, snapshot)"`
	Serve   ServeCmd     `cmd:"" help:"Start REST API server"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// CatalogGroup contains catalog maintenance operations.
type CatalogGroup struct {
	Import   ImportCmd     `cmd:"" help:"Import a catalog XML export into the store"`
	Snapshot SnapshotGroup `cmd:"" help:"Snapshot archive operations"`
}

// SnapshotGroup contains snapshot archive operations.
type SnapshotGroup struct {
	Export  SnapshotExportCmd  `cmd:"" help:"Export the catalog to a tar.xz snapshot"`
	Restore SnapshotRestoreCmd `cmd:"" help:"Restore a snapshot into the store"`
	Info    SnapshotInfoCmd    `cmd:"" help:"Print a snapshot's manifest"`
}

// ParseCmd parses a citation string without touching the store.
type ParseCmd struct {
	Text string `arg:"" help:"Citation text to parse"`
}

type parseOutput struct {
	BookName     string             `json:"book_name"`
	ReferenceRaw string             `json:"reference_raw,omitempty"`
	Locator      *reference.Locator `json:"locator,omitempty"`
}

func (c *ParseCmd) Run() error {
	parsed := reference.Parse(c.Text)
	out := parseOutput{
		BookName:     parsed.BookName,
		ReferenceRaw: parsed.ReferenceRaw,
	}
	if parsed.HasReference() {
		if loc, err := reference.ParseLocator(parsed.ReferenceRaw); err == nil {
			out.Locator = &loc
		}
	}
	return printJSON(out)
}

// ResolveCmd resolves a reference against a catalog root.
type ResolveCmd struct {
	RootID    string `arg:"" help:"ID of the root source"`
	Reference string `arg:"" help:"Reference text (e.g. \"vol. 28, p. 33\")"`
}

func (c *ResolveCmd) Run() error {
	st, resolver, _, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := reference.ParseLocator(c.Reference)
	if err != nil {
		return fmt.Errorf("parsing reference: %w", err)
	}

	result, err := resolver.Resolve(context.Background(), c.RootID, loc)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"status":            result.Status.String(),
		"volume":            result.Volume,
		"leaf":              result.Leaf,
		"requested_page":    result.RequestedPage,
		"page_in_range":     result.PageInRange,
		"candidate_volumes": result.CandidateVolumes,
	})
}

// FormatCmd resolves a reference and prints the formatted citation.
type FormatCmd struct {
	RootID    string `arg:"" help:"ID of the root source"`
	Reference string `arg:"" help:"Reference text (e.g. \"vol. 28, p. 33\")"`
	JSON      bool   `help:"Print the full citation structure as JSON"`
}

func (c *FormatCmd) Run() error {
	st, resolver, formatter, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	loc, err := reference.ParseLocator(c.Reference)
	if err != nil {
		return fmt.Errorf("parsing reference: %w", err)
	}

	result, err := resolver.Resolve(ctx, c.RootID, loc)
	if err != nil {
		return err
	}
	if result.Status != resolve.StatusResolved || result.Leaf == nil {
		return fmt.Errorf("reference did not resolve: %s", result.Status)
	}

	root, err := resolver.ResolveByID(ctx, c.RootID)
	if err != nil {
		return err
	}

	citation := formatter.Format(cite.Input{
		RootID: c.RootID,
		Root:   root,
		Volume: result.Volume,
		Leaf:   *result.Leaf,
	})
	if c.JSON {
		return printJSON(citation)
	}
	fmt.Println(citation.Full)
	return nil
}

// MatchCmd fuzzy-matches free text against the catalog's root sources.
type MatchCmd struct {
	Text          string `arg:"" help:"Citation text to match"`
	MinConfidence int    `help:"Minimum confidence score (default 50)"`
}

func (c *MatchCmd) Run() error {
	st, _, _, err := openEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	candidates, err := st.MatchCandidates(context.Background())
	if err != nil {
		return err
	}

	match := score.FuzzyMatchCitation(c.Text, candidates, c.MinConfidence)
	if match == nil {
		return fmt.Errorf("no source matched %q", c.Text)
	}
	return printJSON(match)
}

// ImportCmd imports a catalog XML export.
type ImportCmd struct {
	Path string `arg:"" help:"Path to catalog XML file" type:"existingfile"`
}

func (c *ImportCmd) Run() error {
	st, err := store.Open(CLI.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	stats, err := ingest.New(st).ImportCatalog(context.Background(), f)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// SnapshotExportCmd exports the catalog to a tar.xz snapshot.
type SnapshotExportCmd struct {
	Output string `arg:"" help:"Output path for the snapshot (.tar.xz)" type:"path"`
}

func (c *SnapshotExportCmd) Run() error {
	st, err := store.Open(CLI.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	manifest, err := archive.Export(context.Background(), st, c.Output)
	if err != nil {
		return err
	}
	return printJSON(manifest)
}

// SnapshotRestoreCmd restores a snapshot into the store.
type SnapshotRestoreCmd struct {
	Path string `arg:"" help:"Path to snapshot file" type:"existingfile"`
}

func (c *SnapshotRestoreCmd) Run() error {
	st, err := store.Open(CLI.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := archive.Restore(context.Background(), ingest.New(st), c.Path)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// SnapshotInfoCmd prints a snapshot's manifest without restoring it.
type SnapshotInfoCmd struct {
	Path string `arg:"" help:"Path to snapshot file" type:"existingfile"`
}

func (c *SnapshotInfoCmd) Run() error {
	manifest, err := archive.ReadManifest(c.Path)
	if err != nil {
		return err
	}
	return printJSON(manifest)
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port              int      `help:"HTTP server port" default:"8080"`
	RateLimitRequests int      `help:"Requests per minute per IP (0 = disabled)"`
	RateLimitBurst    int      `help:"Rate limit burst size"`
	AllowedOrigins    []string `help:"CORS allowed origins (empty = allow all)"`
	TLSCert           string   `help:"Path to TLS certificate file" type:"path"`
	TLSKey            string   `help:"Path to TLS private key file" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg := api.Config{
		Port:              c.Port,
		StorePath:         CLI.Store,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitBurst:    c.RateLimitBurst,
		AllowedOrigins:    c.AllowedOrigins,
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
	}

	srv, err := api.New(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Start()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("mekor version %s\n", version)
	return nil
}

// openEngine opens the store and builds the resolver and formatter over it.
func openEngine() (*store.Store, *resolve.Resolver, *cite.Formatter, error) {
	st, err := store.Open(CLI.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	resolver := resolve.New(st, resolve.WithChildrenCache(cache.NewDefaultChildrenCache()))
	return st, resolver, cite.NewFormatter(), nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("mekor"),
		kong.Description("Mekor - citation resolution for Hebrew and English scholarly sources"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatJSON
	if CLI.LogText {
		format = logging.FormatText
	}
	logging.InitLogger(level, format)

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
