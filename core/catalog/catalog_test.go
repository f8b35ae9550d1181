package catalog

import (
	"testing"
)

func intPtr(n int) *int { return &n }

func TestIsRoot(t *testing.T) {
	root := &SourceNode{ID: "r"}
	child := &SourceNode{ID: "c", ParentID: "r"}
	if !root.IsRoot() {
		t.Error("node without parent should be root")
	}
	if child.IsRoot() {
		t.Error("node with parent should not be root")
	}
}

func TestEffectivePageCount(t *testing.T) {
	tests := []struct {
		name string
		node SourceNode
		want int
	}{
		{"nil defaults to one", SourceNode{}, 1},
		{"explicit count", SourceNode{PageCount: intPtr(7)}, 7},
		{"zero treated as one", SourceNode{PageCount: intPtr(0)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.EffectivePageCount(); got != tt.want {
				t.Errorf("EffectivePageCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEndPage(t *testing.T) {
	leaf := SourceNode{PageNumber: intPtr(33), PageCount: intPtr(7)}
	end, ok := leaf.EndPage()
	if !ok || end != 39 {
		t.Errorf("EndPage() = (%d, %v), want (39, true)", end, ok)
	}

	single := SourceNode{PageNumber: intPtr(10)}
	end, ok = single.EndPage()
	if !ok || end != 10 {
		t.Errorf("EndPage() = (%d, %v), want (10, true)", end, ok)
	}

	if _, ok := (&SourceNode{}).EndPage(); ok {
		t.Error("EndPage() on node without page metadata should report false")
	}
}

func TestCoversPage(t *testing.T) {
	leaf := SourceNode{PageNumber: intPtr(20), PageCount: intPtr(7)} // 20-26
	for _, page := range []int{20, 23, 26} {
		if !leaf.CoversPage(page) {
			t.Errorf("CoversPage(%d) = false, want true", page)
		}
	}
	for _, page := range []int{19, 27, 30} {
		if leaf.CoversPage(page) {
			t.Errorf("CoversPage(%d) = true, want false", page)
		}
	}
	if (&SourceNode{}).CoversPage(1) {
		t.Error("node without page metadata covers nothing")
	}
}
