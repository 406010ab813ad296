// Package tree maintains the thought tree (C4): a directed acyclic graph
// of nodes with a movable cursor, backed by dominikbraun/graph for
// adjacency and a side-map for the mutable per-node statistics the
// library itself doesn't model.
package tree

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dominikbraun/graph"

	"unified-thinking/internal/types"
)

// ErrNodeNotFound is returned by SetCursor and lookups for an unknown node ID.
var ErrNodeNotFound = errors.New("tree: node not found")

// ErrMaxNodesReached is returned by AddThought when the tree is full.
var ErrMaxNodesReached = errors.New("tree: max_nodes reached")

func nodeHash(n *types.Node) string { return n.ID }

// Tree is a single session's thought tree.
type Tree struct {
	mu       sync.RWMutex
	graph    graph.Graph[string, *types.Node]
	nodes    map[string]*types.Node
	byNumber map[int]string // most recent node ID seen for a given thought_number

	root   string
	cursor string

	maxNodes int
	counter  int
}

// New creates an empty tree capped at maxNodes. A non-positive maxNodes
// is treated as unbounded.
func New(maxNodes int) *Tree {
	return &Tree{
		graph:    graph.New(nodeHash, graph.Directed(), graph.PreventCycles()),
		nodes:    make(map[string]*types.Node),
		byNumber: make(map[int]string),
		maxNodes: maxNodes,
	}
}

func (t *Tree) nextID() string {
	t.counter++
	return fmt.Sprintf("node-%d-%d", time.Now().UnixNano(), t.counter)
}

// AddThought installs a new node as a child of the cursor (or, if
// record.BranchFromThought is set, as a child of the most recent node
// with that thought number) and advances the cursor to it. Fails with
// ErrMaxNodesReached if the tree is already at capacity.
func (t *Tree) AddThought(record *types.ThoughtRecord) (*types.Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxNodes > 0 && len(t.nodes) >= t.maxNodes {
		return nil, ErrMaxNodesReached
	}

	parentID := t.cursor
	if record.BranchFromThought > 0 {
		if id, ok := t.byNumber[record.BranchFromThought]; ok {
			parentID = id
		}
	}

	node := &types.Node{
		ID:            t.nextID(),
		ParentID:      parentID,
		ThoughtNumber: record.ThoughtNumber,
		Text:          record.Text,
	}

	if err := t.graph.AddVertex(node); err != nil {
		return nil, fmt.Errorf("tree: add vertex: %w", err)
	}
	t.nodes[node.ID] = node
	t.byNumber[node.ThoughtNumber] = node.ID

	if t.root == "" {
		t.root = node.ID
	} else {
		if parent, ok := t.nodes[parentID]; ok {
			if err := t.graph.AddEdge(parentID, node.ID); err != nil {
				delete(t.nodes, node.ID)
				return nil, fmt.Errorf("tree: add edge: %w", err)
			}
			parent.Children = append(parent.Children, node.ID)
		}
	}

	t.cursor = node.ID
	return node.Clone(), nil
}

// Restore rebuilds an empty tree from a previously saved node set and
// cursor, as produced by internal/snapshot's Store.Load. Must be called
// before any AddThought; node IDs and parent/child links are taken as
// given rather than regenerated.
func (t *Tree) Restore(nodes []*types.Node, cursorID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range nodes {
		cp := n.Clone()
		cp.Children = nil
		if err := t.graph.AddVertex(cp); err != nil {
			return fmt.Errorf("tree: restore vertex %s: %w", cp.ID, err)
		}
		t.nodes[cp.ID] = cp
		if cp.ParentID == "" {
			t.root = cp.ID
		}
		t.byNumber[cp.ThoughtNumber] = cp.ID
	}
	for _, n := range nodes {
		for _, childID := range n.Children {
			if err := t.graph.AddEdge(n.ID, childID); err != nil {
				return fmt.Errorf("tree: restore edge %s->%s: %w", n.ID, childID, err)
			}
			t.nodes[n.ID].Children = append(t.nodes[n.ID].Children, childID)
		}
	}

	t.cursor = cursorID
	if t.cursor == "" {
		t.cursor = t.root
	}
	return nil
}

// SetCursor moves the cursor to an existing node.
func (t *Tree) SetCursor(nodeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[nodeID]; !ok {
		return ErrNodeNotFound
	}
	t.cursor = nodeID
	return nil
}

// Cursor returns the current cursor node, or nil if the tree is empty.
func (t *Tree) Cursor() *types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.cursor == "" {
		return nil
	}
	return t.nodes[t.cursor].Clone()
}

// Node returns a single node by ID, or nil if not found.
func (t *Tree) Node(nodeID string) *types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[nodeID].Clone()
}

// Backpropagate walks from leafID to the root, incrementing visit_count
// and adding value (clamped to [0, 1]) to total_value at every step.
func (t *Tree) Backpropagate(leafID string, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[leafID]; !ok {
		return ErrNodeNotFound
	}
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}

	id := leafID
	for id != "" {
		node, ok := t.nodes[id]
		if !ok {
			break
		}
		node.VisitCount++
		node.TotalValue += value
		id = node.ParentID
	}
	return nil
}

// LeafNodes returns all children-less nodes.
func (t *Tree) LeafNodes() []*types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var leaves []*types.Node
	for _, n := range t.nodes {
		if len(n.Children) == 0 {
			leaves = append(leaves, n.Clone())
		}
	}
	return leaves
}

// AllNodes returns every node in the tree, in no particular order.
func (t *Tree) AllNodes() []*types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*types.Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n.Clone())
	}
	return out
}

// BestPath walks greedily from the root, at each step picking the child
// with the highest mean value (ties broken by highest visit_count, then
// insertion order). Returns at least the root node.
func (t *Tree) BestPath() []*types.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.root == "" {
		return nil
	}

	path := []*types.Node{t.nodes[t.root].Clone()}
	current := t.root
	for {
		node := t.nodes[current]
		if len(node.Children) == 0 {
			break
		}

		best := node.Children[0]
		bestNode := t.nodes[best]
		bestMean, bestOK := bestNode.MeanValue()

		for _, childID := range node.Children[1:] {
			child := t.nodes[childID]
			mean, ok := child.MeanValue()

			switch {
			case ok && !bestOK:
				best, bestNode, bestMean, bestOK = childID, child, mean, ok
			case ok && bestOK && mean > bestMean:
				best, bestNode, bestMean, bestOK = childID, child, mean, ok
			case ok && bestOK && mean == bestMean && child.VisitCount > bestNode.VisitCount:
				best, bestNode, bestMean, bestOK = childID, child, mean, ok
			}
		}

		path = append(path, bestNode.Clone())
		current = best
	}
	return path
}

// Depth returns a node's distance from the root, or an error if the node
// doesn't exist.
func (t *Tree) Depth(nodeID string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[nodeID]; !ok {
		return 0, ErrNodeNotFound
	}

	depth := 0
	id := nodeID
	for {
		node := t.nodes[id]
		if node.ParentID == "" {
			return depth, nil
		}
		depth++
		id = node.ParentID
	}
}

// MaxDepth returns the depth of the deepest node in the tree.
func (t *Tree) MaxDepth() int {
	t.mu.RLock()
	nodeIDs := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		nodeIDs = append(nodeIDs, id)
	}
	t.mu.RUnlock()

	max := 0
	for _, id := range nodeIDs {
		if d, err := t.Depth(id); err == nil && d > max {
			max = d
		}
	}
	return max
}

// Size returns the number of nodes currently in the tree.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
