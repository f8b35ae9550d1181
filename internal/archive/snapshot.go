package archive

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/zeebo/blake3"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/errors"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/internal/ingest"
	"github.com/otzaria/mekor/internal/logging"
)

const (
	catalogFile  = "catalog.xml"
	manifestFile = "manifest.json"

	// FormatVersion identifies the snapshot layout.
	FormatVersion = 1
)

// Manifest describes a snapshot's contents.
type Manifest struct {
	FormatVersion int       `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
	Records       int       `json:"records"`
	CatalogHash   string    `json:"catalog_hash"`
}

// CatalogStore is the read surface snapshots are exported from.
type CatalogStore interface {
	ListRoots(ctx context.Context) ([]catalog.SourceNode, error)
	FetchChildren(ctx context.Context, parentID string, filter resolve.ChildFilter) ([]catalog.SourceNode, error)
}

// CatalogImporter restores snapshot contents into a store.
type CatalogImporter interface {
	ImportCatalog(ctx context.Context, r io.Reader) (*ingest.Stats, error)
}

type xmlCatalog struct {
	XMLName xml.Name    `xml:"catalog"`
	Sources []xmlSource `xml:"source"`
}

type xmlSource struct {
	ID      string      `xml:"id,attr"`
	Title   string      `xml:"title,attr"`
	Volumes []xmlVolume `xml:"volume"`
	Items   []xmlItem   `xml:"item"`
}

type xmlVolume struct {
	ID     string    `xml:"id,attr"`
	Title  string    `xml:"title,attr"`
	Number *int      `xml:"number,attr,omitempty"`
	Items  []xmlItem `xml:"item"`
}

type xmlItem struct {
	ID     string `xml:"id,attr"`
	Title  string `xml:"title,attr"`
	Page   *int   `xml:"page,attr,omitempty"`
	Pages  *int   `xml:"pages,attr,omitempty"`
	Parsha string `xml:"parsha,attr,omitempty"`
	URL    string `xml:"url,attr,omitempty"`
	System string `xml:"system,attr,omitempty"`
}

func itemFromNode(n catalog.SourceNode) xmlItem {
	return xmlItem{
		ID:     n.ID,
		Title:  n.Title,
		Page:   n.PageNumber,
		Pages:  n.PageCount,
		Parsha: n.Parsha,
		URL:    n.ExternalURL,
		System: n.ExternalSystem,
	}
}

// Export writes the full catalog in s to a tar.xz snapshot at path.
func Export(ctx context.Context, s CatalogStore, path string) (*Manifest, error) {
	roots, err := s.ListRoots(ctx)
	if err != nil {
		return nil, err
	}

	doc := xmlCatalog{}
	records := 0
	for _, root := range roots {
		src := xmlSource{ID: root.ID, Title: root.Title}
		records++

		children, err := s.FetchChildren(ctx, root.ID, resolve.ChildFilter{})
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			grandchildren, err := s.FetchChildren(ctx, child.ID, resolve.ChildFilter{})
			if err != nil {
				return nil, err
			}
			records++

			if len(grandchildren) == 0 {
				// Leaf directly under the root: chapter-ordered work.
				src.Items = append(src.Items, itemFromNode(child))
				continue
			}

			vol := xmlVolume{ID: child.ID, Title: child.Title, Number: child.VolumeNumber}
			for _, leaf := range grandchildren {
				vol.Items = append(vol.Items, itemFromNode(leaf))
				records++
			}
			src.Volumes = append(src.Volumes, vol)
		}
		doc.Sources = append(doc.Sources, src)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshaling catalog")
	}
	data = append([]byte(xml.Header), data...)

	sum := blake3.Sum256(data)
	manifest := &Manifest{
		FormatVersion: FormatVersion,
		CreatedAt:     time.Now().UTC(),
		Records:       records,
		CatalogHash:   hex.EncodeToString(sum[:]),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshaling manifest")
	}

	w, err := NewWriter(path)
	if err != nil {
		return nil, err
	}
	if err := w.AddFile(manifestFile, manifestData); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.AddFile(catalogFile, data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing snapshot")
	}

	logging.StoreEvent("snapshot_export", path, "records", records)
	return manifest, nil
}

// ReadManifest loads the manifest from a snapshot without restoring it.
func ReadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path, manifestFile)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	return &manifest, nil
}

// Restore imports a snapshot's catalog into the importer's store. The
// catalog's content hash is verified against the manifest first.
func Restore(ctx context.Context, imp CatalogImporter, path string) (*ingest.Stats, error) {
	manifest, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if manifest.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: snapshot format version %d",
			errors.ErrUnsupported, manifest.FormatVersion)
	}

	data, err := ReadFile(path, catalogFile)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != manifest.CatalogHash {
		return nil, fmt.Errorf("%w: snapshot catalog hash mismatch", errors.ErrInvalidInput)
	}

	stats, err := imp.ImportCatalog(ctx, bytes.NewReader(data))
	if err != nil {
		return stats, err
	}
	logging.StoreEvent("snapshot_restore", path, "imported", stats.Imported, "skipped", stats.Skipped)
	return stats, nil
}
