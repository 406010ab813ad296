package snapshot

import (
	"path/filepath"
	"testing"

	"unified-thinking/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	nodes := []*types.Node{
		{ID: "root", ParentID: "", Children: []string{"child-1"}, ThoughtNumber: 1, Text: "root thought", VisitCount: 2, TotalValue: 1.5},
		{ID: "child-1", ParentID: "root", Children: nil, ThoughtNumber: 2, Text: "child thought", VisitCount: 1, TotalValue: 0.75},
	}

	if err := s.Save("session-a", nodes, "child-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load("session-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() = nil, want a snapshot")
	}
	if loaded.CursorID != "child-1" {
		t.Errorf("CursorID = %q, want child-1", loaded.CursorID)
	}
	if len(loaded.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(loaded.Nodes))
	}

	byID := map[string]*types.Node{}
	for _, n := range loaded.Nodes {
		byID[n.ID] = n
	}
	root, ok := byID["root"]
	if !ok {
		t.Fatal("root node missing after round trip")
	}
	if root.Text != "root thought" || root.VisitCount != 2 || root.TotalValue != 1.5 {
		t.Errorf("root = %+v, values did not survive the round trip", root)
	}
	if len(root.Children) != 1 || root.Children[0] != "child-1" {
		t.Errorf("root.Children = %v, want [child-1]", root.Children)
	}
}

func TestLoadUnknownSessionReturnsNilWithoutError(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.Load("never-saved")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != nil {
		t.Errorf("Load() = %+v, want nil for a session with no snapshot", loaded)
	}
}

func TestSaveReplacesPriorSnapshotForSameSession(t *testing.T) {
	s := openTestStore(t)

	first := []*types.Node{{ID: "a", Text: "first"}}
	if err := s.Save("session-b", first, "a"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := []*types.Node{{ID: "x", Text: "second"}}
	if err := s.Save("session-b", second, "x"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load("session-b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Nodes) != 1 || loaded.Nodes[0].ID != "x" {
		t.Errorf("Nodes = %+v, want only the second save's node", loaded.Nodes)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") should return an error")
	}
}

func TestSnapshotsAreIsolatedPerSession(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("session-x", []*types.Node{{ID: "x1", Text: "x"}}, "x1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save("session-y", []*types.Node{{ID: "y1", Text: "y"}}, "y1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loadedX, err := s.Load("session-x")
	if err != nil {
		t.Fatalf("Load(session-x) error = %v", err)
	}
	if len(loadedX.Nodes) != 1 || loadedX.Nodes[0].ID != "x1" {
		t.Errorf("session-x nodes = %+v, want only x1", loadedX.Nodes)
	}
}
