package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/internal/store"
)

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<catalog>
  <source id="likkutei-sichos" title="Likkutei Sichos">
    <volume id="ls-28" title="לקוטי שיחות חלק כח" number="28">
      <item id="ls-28-nasso-1" title="נשא א" page="33" pages="7" parsha="נשא"/>
      <item id="ls-28-nasso-2" title="נשא ב" page="40" pages="6" parsha="נשא"/>
    </volume>
  </source>
  <source id="tanya" title="Likkutei Amarim">
    <item title="פרק לב" page="41" pages="2"/>
  </source>
</catalog>`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportCatalog(t *testing.T) {
	s := newTestStore(t)
	imp := New(s)

	stats, err := imp.ImportCatalog(context.Background(), strings.NewReader(catalogXML))
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if stats.Roots != 2 || stats.Volumes != 1 || stats.Items != 3 {
		t.Errorf("stats = %+v, want 2 roots, 1 volume, 3 items", stats)
	}
	if stats.Imported != 6 || stats.Skipped != 0 {
		t.Errorf("imported = %d skipped = %d, want 6 and 0", stats.Imported, stats.Skipped)
	}

	node, err := s.FetchByID(context.Background(), "ls-28-nasso-1")
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if node == nil {
		t.Fatal("imported leaf not found")
	}
	if node.ParentID != "ls-28" {
		t.Errorf("ParentID = %q, want %q", node.ParentID, "ls-28")
	}
	if node.PageNumber == nil || *node.PageNumber != 33 {
		t.Errorf("PageNumber = %v, want 33", node.PageNumber)
	}
	if node.PageCount == nil || *node.PageCount != 7 {
		t.Errorf("PageCount = %v, want 7", node.PageCount)
	}
	if node.Parsha != "נשא" {
		t.Errorf("Parsha = %q, want נשא", node.Parsha)
	}
	if node.ContentHash == "" {
		t.Error("ContentHash not set on imported record")
	}
}

func TestImportCatalogIdempotent(t *testing.T) {
	s := newTestStore(t)
	imp := New(s)
	ctx := context.Background()

	if _, err := imp.ImportCatalog(ctx, strings.NewReader(catalogXML)); err != nil {
		t.Fatalf("first import: %v", err)
	}
	stats, err := imp.ImportCatalog(ctx, strings.NewReader(catalogXML))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if stats.Skipped != 6 {
		t.Errorf("skipped = %d, want 6", stats.Skipped)
	}
	if stats.Imported != 0 {
		t.Errorf("imported = %d, want 0", stats.Imported)
	}
}

func TestImportGeneratesIDs(t *testing.T) {
	s := newTestStore(t)
	imp := New(s)

	if _, err := imp.ImportCatalog(context.Background(), strings.NewReader(catalogXML)); err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}

	children, err := s.FetchChildren(context.Background(), "tanya", resolve.ChildFilter{})
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("got %d children of tanya, want 1", len(children))
	}
	if children[0].ID == "" {
		t.Error("leaf without an id attribute should get a generated one")
	}
	if children[0].Title != "פרק לב" {
		t.Errorf("Title = %q, want פרק לב", children[0].Title)
	}
}

func TestImportInvalidXML(t *testing.T) {
	s := newTestStore(t)
	imp := New(s)

	_, err := imp.ImportCatalog(context.Background(), strings.NewReader("<catalog><source"))
	if err == nil {
		t.Fatal("expected error for truncated XML")
	}
}

func TestRecordHashStable(t *testing.T) {
	page := 33
	node := catalog.SourceNode{ID: "x", ParentID: "p", Title: "נשא א", PageNumber: &page}

	a := RecordHash(node)
	b := RecordHash(node)
	if a != b {
		t.Errorf("hash not deterministic: %q vs %q", a, b)
	}

	node.Title = "נשא ב"
	if RecordHash(node) == a {
		t.Error("hash unchanged after field change")
	}
}
