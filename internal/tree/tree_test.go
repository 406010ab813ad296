package tree

import (
	"testing"

	"unified-thinking/internal/types"
)

func thought(number int, text string) *types.ThoughtRecord {
	return &types.ThoughtRecord{ThoughtNumber: number, Text: text}
}

func TestAddThoughtBuildsChain(t *testing.T) {
	tr := New(0)
	root, err := tr.AddThought(thought(1, "root"))
	if err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}
	child, err := tr.AddThought(thought(2, "child"))
	if err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}

	if child.ParentID != root.ID {
		t.Errorf("child.ParentID = %v, want %v", child.ParentID, root.ID)
	}
	if tr.Cursor().ID != child.ID {
		t.Errorf("cursor = %v, want %v", tr.Cursor().ID, child.ID)
	}
}

func TestAddThoughtRespectsBranchFrom(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	_, _ = tr.AddThought(thought(2, "continue"))

	branched, err := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 3, Text: "branch", BranchFromThought: 1})
	if err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}
	if branched.ParentID != root.ID {
		t.Errorf("branched.ParentID = %v, want root %v", branched.ParentID, root.ID)
	}
}

func TestAddThoughtFailsAtCapacity(t *testing.T) {
	tr := New(1)
	if _, err := tr.AddThought(thought(1, "root")); err != nil {
		t.Fatalf("AddThought() error = %v", err)
	}
	if _, err := tr.AddThought(thought(2, "overflow")); err != ErrMaxNodesReached {
		t.Fatalf("AddThought() error = %v, want ErrMaxNodesReached", err)
	}
}

func TestSetCursorToUnknownNodeFails(t *testing.T) {
	tr := New(0)
	tr.AddThought(thought(1, "root"))
	if err := tr.SetCursor("missing"); err != ErrNodeNotFound {
		t.Fatalf("SetCursor() error = %v, want ErrNodeNotFound", err)
	}
}

func TestLeafNodes(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	tr.AddThought(thought(2, "child"))

	leaves := tr.LeafNodes()
	if len(leaves) != 1 {
		t.Fatalf("LeafNodes() len = %d, want 1", len(leaves))
	}
	if leaves[0].ID == root.ID {
		t.Error("root should not be a leaf once it has a child")
	}
}

func TestBackpropagateUpdatesAncestors(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	child, _ := tr.AddThought(thought(2, "child"))

	if err := tr.Backpropagate(child.ID, 0.8); err != nil {
		t.Fatalf("Backpropagate() error = %v", err)
	}

	rootAfter := tr.Node(root.ID)
	if rootAfter.VisitCount != 1 || rootAfter.TotalValue != 0.8 {
		t.Errorf("root after backprop = %+v", rootAfter)
	}
}

func TestBackpropagateClampsValue(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	tr.Backpropagate(root.ID, 5.0)
	tr.Backpropagate(root.ID, -5.0)

	node := tr.Node(root.ID)
	if node.TotalValue != 1.0 {
		t.Errorf("TotalValue = %v, want 1.0 (clamped twice: +1, +0)", node.TotalValue)
	}
}

func TestBestPathPicksHighestMeanChild(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	_ = root
	a, _ := tr.AddThought(thought(2, "a"))
	tr.SetCursor(root.ID)
	b, _ := tr.AddThought(thought(2, "b"))

	tr.Backpropagate(a.ID, 0.2)
	tr.Backpropagate(b.ID, 0.9)

	path := tr.BestPath()
	if len(path) != 2 {
		t.Fatalf("BestPath() len = %d, want 2", len(path))
	}
	if path[1].ID != b.ID {
		t.Errorf("BestPath()[1] = %v, want higher-mean child %v", path[1].ID, b.ID)
	}
}

func TestBestPathSingleNode(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))

	path := tr.BestPath()
	if len(path) != 1 || path[0].ID != root.ID {
		t.Fatalf("BestPath() = %v, want single root node", path)
	}
}

func TestDepthAndMaxDepth(t *testing.T) {
	tr := New(0)
	root, _ := tr.AddThought(thought(1, "root"))
	child, _ := tr.AddThought(thought(2, "child"))
	grandchild, _ := tr.AddThought(thought(3, "grandchild"))

	if d, _ := tr.Depth(root.ID); d != 0 {
		t.Errorf("Depth(root) = %d, want 0", d)
	}
	if d, _ := tr.Depth(child.ID); d != 1 {
		t.Errorf("Depth(child) = %d, want 1", d)
	}
	if d, _ := tr.Depth(grandchild.ID); d != 2 {
		t.Errorf("Depth(grandchild) = %d, want 2", d)
	}
	if tr.MaxDepth() != 2 {
		t.Errorf("MaxDepth() = %d, want 2", tr.MaxDepth())
	}
}

func TestAllNodesAndSize(t *testing.T) {
	tr := New(0)
	tr.AddThought(thought(1, "root"))
	tr.AddThought(thought(2, "child"))

	if tr.Size() != 2 {
		t.Errorf("Size() = %d, want 2", tr.Size())
	}
	if len(tr.AllNodes()) != 2 {
		t.Errorf("AllNodes() len = %d, want 2", len(tr.AllNodes()))
	}
}

func TestRestoreRebuildsTreeFromSavedNodes(t *testing.T) {
	nodes := []*types.Node{
		{ID: "root", ParentID: "", Children: []string{"child-1"}, ThoughtNumber: 1, Text: "root", VisitCount: 2, TotalValue: 1.0},
		{ID: "child-1", ParentID: "root", Children: nil, ThoughtNumber: 2, Text: "child", VisitCount: 1, TotalValue: 0.5},
	}

	tr := New(0)
	if err := tr.Restore(nodes, "child-1"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if tr.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tr.Size())
	}
	if tr.Cursor().ID != "child-1" {
		t.Errorf("Cursor().ID = %v, want child-1", tr.Cursor().ID)
	}
	root := tr.Node("root")
	if root.VisitCount != 2 || root.TotalValue != 1.0 {
		t.Errorf("root = %+v, restored values did not survive", root)
	}
	if len(root.Children) != 1 || root.Children[0] != "child-1" {
		t.Errorf("root.Children = %v, want [child-1]", root.Children)
	}
	if depth, err := tr.Depth("child-1"); err != nil || depth != 1 {
		t.Errorf("Depth(child-1) = (%d, %v), want (1, nil)", depth, err)
	}
}

func TestRestoreDefaultsCursorToRootWhenCursorIDEmpty(t *testing.T) {
	nodes := []*types.Node{
		{ID: "root", ParentID: "", Children: nil, ThoughtNumber: 1, Text: "root"},
	}

	tr := New(0)
	if err := tr.Restore(nodes, ""); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if tr.Cursor().ID != "root" {
		t.Errorf("Cursor().ID = %v, want root", tr.Cursor().ID)
	}
}
