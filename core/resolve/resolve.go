// Package resolve walks a source hierarchy to find the leaf item a
// structured locator points at.
//
// Resolution is a two-step pipeline over the catalog store: fetch the
// root's children and pick the matching volume, then fetch that volume's
// leaves and pick the one covering the requested page. The hierarchy is
// fixed at root → volume → leaf, so no general tree walk is needed.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/otzaria/mekor/core/cache"
	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/errors"
	"github.com/otzaria/mekor/core/gematria"
	"github.com/otzaria/mekor/core/reference"
)

// ChildFilter narrows and orders a FetchChildren call.
type ChildFilter struct {
	// MaxPageNumber keeps only children with page_number <= the value.
	MaxPageNumber *int
	// SortByPage orders children by page_number; descending when
	// SortDescending is set.
	SortByPage     bool
	SortDescending bool
}

// Store is the catalog lookup service the resolver reads from. Expected
// absences come back as empty slices or nil nodes; an error from either
// method means the store itself failed.
type Store interface {
	FetchChildren(ctx context.Context, parentID string, filter ChildFilter) ([]catalog.SourceNode, error)
	FetchByID(ctx context.Context, id string) (*catalog.SourceNode, error)
}

// Status reports how far resolution got.
type Status int

const (
	// StatusResolved means a matching node was found.
	StatusResolved Status = iota
	// StatusVolumeNotResolved means no child of the root matched the
	// requested volume.
	StatusVolumeNotResolved
	// StatusPageNotResolved means no leaf in the resolved volume starts at
	// or before the requested page.
	StatusPageNotResolved
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusVolumeNotResolved:
		return "volume_not_resolved"
	case StatusPageNotResolved:
		return "page_not_resolved"
	}
	return "unknown"
}

// Result is the outcome of a resolution. Ambiguity and not-found outcomes
// are values, not errors: bulk link-healing runs resolve thousands of
// footnotes and most legitimately fail to land.
type Result struct {
	Status Status

	// Volume is the matched volume-level node, nil when volume resolution
	// failed or the root's children are themselves leaves.
	Volume *catalog.SourceNode
	// Leaf is the matched leaf, nil unless Status is StatusResolved and a
	// page was requested.
	Leaf *catalog.SourceNode

	// RequestedPage echoes the page the locator asked for, if any.
	RequestedPage *int
	// PageInRange reports whether RequestedPage falls inside the leaf's
	// covered range. A false value with a non-nil Leaf means the request
	// ran past the leaf's end; the caller decides whether to accept it.
	PageInRange bool

	// CandidateVolumes lists the root's volume-level children when
	// Status is StatusVolumeNotResolved, so callers can surface
	// alternatives instead of guessing.
	CandidateVolumes []catalog.SourceNode
}

// Resolver resolves locators against a catalog store.
type Resolver struct {
	store    Store
	children *cache.ChildrenCache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithChildrenCache memoizes child listings across resolutions.
func WithChildrenCache(c *cache.ChildrenCache) Option {
	return func(r *Resolver) {
		r.children = c
	}
}

// New creates a Resolver over the given store.
func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the leaf of rootID best matching loc.
//
// Volume selection: a child matches when its explicit VolumeNumber equals
// the requested volume, or, failing that, when the trailing Hebrew numeral
// of its title converts to the requested value. When no volume is
// requested, the root itself serves as the volume container.
//
// Leaf selection: among leaves starting at or before the requested page,
// the one with the highest starting page wins. The request may still fall
// past that leaf's end; this is reported via PageInRange rather than
// rejected.
func (r *Resolver) Resolve(ctx context.Context, rootID string, loc reference.Locator) (*Result, error) {
	parentID := rootID
	result := &Result{Status: StatusResolved}

	if loc.Volume != nil {
		children, err := r.fetchChildren(ctx, rootID, ChildFilter{})
		if err != nil {
			return nil, errors.NewStoreError("fetch_children", err)
		}

		volume := selectVolume(children, *loc.Volume)
		if volume == nil {
			return &Result{
				Status:           StatusVolumeNotResolved,
				CandidateVolumes: children,
			}, nil
		}
		result.Volume = volume
		parentID = volume.ID
	}

	requested := requestedPage(loc)
	if requested == nil {
		// Volume-level resolution only.
		return result, nil
	}
	result.RequestedPage = requested

	filter := ChildFilter{
		MaxPageNumber:  requested,
		SortByPage:     true,
		SortDescending: true,
	}
	leaves, err := r.fetchChildren(ctx, parentID, filter)
	if err != nil {
		return nil, errors.NewStoreError("fetch_children", err)
	}
	if len(leaves) == 0 {
		result.Status = StatusPageNotResolved
		return result, nil
	}

	leaf := leaves[0]
	result.Leaf = &leaf
	result.PageInRange = leaf.CoversPage(*requested)
	return result, nil
}

// ResolveByID fetches a single node, wrapping store failure.
func (r *Resolver) ResolveByID(ctx context.Context, id string) (*catalog.SourceNode, error) {
	node, err := r.store.FetchByID(ctx, id)
	if err != nil {
		return nil, errors.NewStoreError("fetch_by_id", err)
	}
	if node == nil {
		return nil, errors.NewNotFound("source", id)
	}
	return node, nil
}

// requestedPage derives the page ordinal from a locator. Chapter-ordered
// works (Tanya and the like) store the chapter ordinal in page_number, so
// a chapter request stands in for a page request when no page was given.
func requestedPage(loc reference.Locator) *int {
	if loc.Page != nil {
		return loc.Page
	}
	return loc.Chapter
}

// selectVolume picks the child matching the requested volume number.
// Explicit metadata wins; the title-numeral fallback can misread a title
// that happens to end in Hebrew letters, which is the documented cost of
// supporting catalogs without volume metadata.
func selectVolume(children []catalog.SourceNode, want int) *catalog.SourceNode {
	for i := range children {
		if children[i].VolumeNumber != nil && *children[i].VolumeNumber == want {
			return &children[i]
		}
	}
	for i := range children {
		if v, ok := gematria.TrailingValue(children[i].Title); ok && v == want {
			return &children[i]
		}
	}
	return nil
}

// fetchChildren consults the children cache when one is configured.
func (r *Resolver) fetchChildren(ctx context.Context, parentID string, filter ChildFilter) ([]catalog.SourceNode, error) {
	key := ""
	if r.children != nil {
		key = cacheKey(parentID, filter)
		if cached, ok := r.children.Get(key); ok {
			return cached, nil
		}
	}

	children, err := r.store.FetchChildren(ctx, parentID, filter)
	if err != nil {
		return nil, err
	}

	if r.children != nil {
		r.children.Put(key, children)
	}
	return children, nil
}

func cacheKey(parentID string, filter ChildFilter) string {
	maxPage := -1
	if filter.MaxPageNumber != nil {
		maxPage = *filter.MaxPageNumber
	}
	return fmt.Sprintf("%s|%d|%v|%v", parentID, maxPage, filter.SortByPage, filter.SortDescending)
}

// SortLeaves orders nodes by starting page, descending when desc is set.
// Store implementations without native ordering can use it to honor
// ChildFilter.
func SortLeaves(nodes []catalog.SourceNode, desc bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		pi, pj := pageOrZero(nodes[i]), pageOrZero(nodes[j])
		if desc {
			return pi > pj
		}
		return pi < pj
	})
}

func pageOrZero(n catalog.SourceNode) int {
	if n.PageNumber == nil {
		return 0
	}
	return *n.PageNumber
}
