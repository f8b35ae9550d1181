// Package catalog defines the source hierarchy types shared by the
// resolution and formatting engine.
//
// A catalog is a tree of SourceNodes: a root sefer, its volumes, and leaf
// items such as sichos or chapters. The engine only reads nodes; creation
// and mutation belong to the import tooling.
package catalog

// SourceNode is one node in the hierarchical source catalog.
type SourceNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id,omitempty"` // empty only for roots

	// PageNumber is the starting page of a leaf item, nil for non-leaves.
	PageNumber *int `json:"page_number,omitempty"`
	// PageCount is the number of pages covered by a leaf item; nil is
	// treated as 1.
	PageCount *int `json:"page_count,omitempty"`

	// Parsha is the Hebrew section label (weekly portion) of a leaf, if any.
	Parsha string `json:"parsha,omitempty"`
	// VolumeNumber is set on volume-level nodes carrying explicit numbering.
	VolumeNumber *int `json:"volume_number,omitempty"`

	// ExternalURL and ExternalSystem deep-link into third-party text
	// repositories when the full text lives elsewhere.
	ExternalURL    string `json:"external_url,omitempty"`
	ExternalSystem string `json:"external_system,omitempty"`

	// ContentHash is the BLAKE3 hash of the imported record, used for
	// idempotent re-import.
	ContentHash string `json:"content_hash,omitempty"`
}

// IsRoot reports whether the node has no parent.
func (n *SourceNode) IsRoot() bool {
	return n.ParentID == ""
}

// EffectivePageCount returns PageCount, defaulting to 1.
func (n *SourceNode) EffectivePageCount() int {
	if n.PageCount == nil || *n.PageCount < 1 {
		return 1
	}
	return *n.PageCount
}

// EndPage returns the last page covered by a leaf, computed as
// pageNumber + pageCount - 1. The second return is false when the node has
// no page metadata.
func (n *SourceNode) EndPage() (int, bool) {
	if n.PageNumber == nil {
		return 0, false
	}
	return *n.PageNumber + n.EffectivePageCount() - 1, true
}

// CoversPage reports whether page falls inside the leaf's covered range.
func (n *SourceNode) CoversPage(page int) bool {
	end, ok := n.EndPage()
	if !ok {
		return false
	}
	return page >= *n.PageNumber && page <= end
}
