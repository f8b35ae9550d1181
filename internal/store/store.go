// Package store provides the SQLite-backed catalog store.
//
// The default build uses the pure Go modernc.org/sqlite driver; building
// with -tags cgo_sqlite switches to mattn/go-sqlite3. Use Open instead of
// sql.Open so the correct driver name is used for the active build.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/errors"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/core/score"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	parent_id       TEXT,
	title           TEXT NOT NULL,
	page_number     INTEGER,
	page_count      INTEGER,
	parsha          TEXT,
	volume_number   INTEGER,
	external_url    TEXT,
	external_system TEXT,
	content_hash    TEXT
);
CREATE INDEX IF NOT EXISTS idx_sources_parent ON sources(parent_id);
CREATE INDEX IF NOT EXISTS idx_sources_parent_page ON sources(parent_id, page_number);
`

// DriverType returns "purego" or "cgo" depending on the build.
func DriverType() string {
	return driverType
}

// Store is a catalog store backed by SQLite. It implements resolve.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a catalog database at path. Use
// ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewStoreError("open", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewStoreError("migrate", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, parent_id, title, page_number, page_count, parsha,
	volume_number, external_url, external_system, content_hash`

// FetchChildren lists the children of parentID, honoring the filter's
// page ceiling and page ordering. Children without page metadata are
// excluded when a page ceiling is set.
func (s *Store) FetchChildren(ctx context.Context, parentID string, filter resolve.ChildFilter) ([]catalog.SourceNode, error) {
	query := "SELECT " + selectColumns + " FROM sources WHERE parent_id = ?"
	args := []interface{}{parentID}

	if filter.MaxPageNumber != nil {
		query += " AND page_number IS NOT NULL AND page_number <= ?"
		args = append(args, *filter.MaxPageNumber)
	}
	if filter.SortByPage {
		if filter.SortDescending {
			query += " ORDER BY page_number DESC"
		} else {
			query += " ORDER BY page_number ASC"
		}
	} else {
		query += " ORDER BY rowid ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("fetch_children", err)
	}
	defer rows.Close()

	var nodes []catalog.SourceNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, errors.NewStoreError("fetch_children", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("fetch_children", err)
	}
	return nodes, nil
}

// FetchByID returns the node with the given ID, or nil when absent.
func (s *Store) FetchByID(ctx context.Context, id string) (*catalog.SourceNode, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM sources WHERE id = ?", id)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("fetch_by_id", err)
	}
	return &node, nil
}

// ListRoots returns all nodes without a parent.
func (s *Store) ListRoots(ctx context.Context) ([]catalog.SourceNode, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM sources WHERE parent_id IS NULL OR parent_id = '' ORDER BY title")
	if err != nil {
		return nil, errors.NewStoreError("list_roots", err)
	}
	defer rows.Close()

	var nodes []catalog.SourceNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, errors.NewStoreError("list_roots", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// MatchCandidates builds fuzzy-match candidates for every root source.
// Each root contributes a bare title candidate plus one candidate per
// volume and leaf carrying reference text derived from its coordinates
// ("vol. 28", "vol. 28, p. 33", "ch. 32"), so the scorer can confirm
// volume and page numbers instead of stopping at the book name.
func (s *Store) MatchCandidates(ctx context.Context) ([]score.Candidate, error) {
	roots, err := s.ListRoots(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []score.Candidate
	for _, root := range roots {
		candidates = append(candidates, score.Candidate{Source: root})

		children, err := s.FetchChildren(ctx, root.ID, resolve.ChildFilter{})
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.VolumeNumber != nil {
				candidates = append(candidates, score.Candidate{
					Source:    root,
					Reference: fmt.Sprintf("vol. %d", *child.VolumeNumber),
				})

				leaves, err := s.FetchChildren(ctx, child.ID, resolve.ChildFilter{})
				if err != nil {
					return nil, err
				}
				for _, leaf := range leaves {
					if leaf.PageNumber == nil {
						continue
					}
					candidates = append(candidates, score.Candidate{
						Source:    root,
						Reference: fmt.Sprintf("vol. %d, p. %d", *child.VolumeNumber, *leaf.PageNumber),
					})
				}
				continue
			}

			// Chapter-ordered works store the chapter ordinal in
			// page_number.
			if child.PageNumber != nil {
				candidates = append(candidates, score.Candidate{
					Source:    root,
					Reference: fmt.Sprintf("ch. %d", *child.PageNumber),
				})
			}
		}
	}
	return candidates, nil
}

// Upsert inserts or replaces a node by ID.
func (s *Store) Upsert(ctx context.Context, node catalog.SourceNode) error {
	if node.ID == "" {
		return errors.NewValidation("id", "node ID is required")
	}
	if node.Title == "" {
		return errors.NewValidation("title", "node title is required")
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sources (id, parent_id, title, page_number, page_count, parsha,
	volume_number, external_url, external_system, content_hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	parent_id = excluded.parent_id,
	title = excluded.title,
	page_number = excluded.page_number,
	page_count = excluded.page_count,
	parsha = excluded.parsha,
	volume_number = excluded.volume_number,
	external_url = excluded.external_url,
	external_system = excluded.external_system,
	content_hash = excluded.content_hash`,
		node.ID, nullString(node.ParentID), node.Title,
		nullInt(node.PageNumber), nullInt(node.PageCount),
		nullString(node.Parsha), nullInt(node.VolumeNumber),
		nullString(node.ExternalURL), nullString(node.ExternalSystem),
		nullString(node.ContentHash))
	if err != nil {
		return errors.NewStoreError("upsert", err)
	}
	return nil
}

// ContentHash returns the stored content hash for id, or "" when the node
// is absent or unhashed. Import uses it to skip unchanged records.
func (s *Store) ContentHash(ctx context.Context, id string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT content_hash FROM sources WHERE id = ?", id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewStoreError("content_hash", err)
	}
	return hash.String, nil
}

// Count returns the number of catalog nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&n); err != nil {
		return 0, errors.NewStoreError("count", err)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(sc scanner) (catalog.SourceNode, error) {
	var node catalog.SourceNode
	var parentID, parsha, externalURL, externalSystem, contentHash sql.NullString
	var pageNumber, pageCount, volumeNumber sql.NullInt64

	err := sc.Scan(&node.ID, &parentID, &node.Title, &pageNumber, &pageCount,
		&parsha, &volumeNumber, &externalURL, &externalSystem, &contentHash)
	if err != nil {
		return node, err
	}

	node.ParentID = parentID.String
	node.Parsha = parsha.String
	node.ExternalURL = externalURL.String
	node.ExternalSystem = externalSystem.String
	node.ContentHash = contentHash.String
	node.PageNumber = intFromNull(pageNumber)
	node.PageCount = intFromNull(pageCount)
	node.VolumeNumber = intFromNull(volumeNumber)
	return node, nil
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

// compile-time interface check
var _ resolve.Store = (*Store)(nil)

// String describes the store configuration.
func (s *Store) String() string {
	return fmt.Sprintf("sqlite store (%s driver)", driverType)
}
