// Package mcts implements the UCB1-driven guidance engine (C5): child
// selection, branching and backtrack suggestions, and convergence
// detection over a thought tree. Mirrors the corpus's Thompson-Sampling
// bandit in idiom — mutex-free here since the tree already owns its own
// lock — not in algorithm: UCB1 over tree statistics rather than Beta
// sampling over bandit arms.
package mcts

import (
	"errors"
	"fmt"
	"math"

	"unified-thinking/internal/tree"
	"unified-thinking/internal/types"
)

// ErrNoChildren is returned by SelectUCB1 when the node has no children
// to score.
var ErrNoChildren = errors.New("mcts: node has no children")

// Config carries the per-mode-preset parameters the engine needs. It is
// deliberately a plain struct copy (not a pointer into a registry) so
// callers can't mutate shared preset state through it.
type Config struct {
	ExplorationConstant          float64
	Strategy                     string // "fast", "expert", or "deep"
	MaxBranchingFactor           int
	TargetDepthMin               int
	EnableBacktracking           bool
	MinEvaluationsBeforeConverge int
	ConvergenceThreshold         float64
}

// SelectUCB1 scores every child of nodeID as mean(child) + c*sqrt(ln(N)/n),
// where N is the parent's visit count and n the child's. Unvisited
// children score +Inf. Ties break on highest mean, then insertion order.
func SelectUCB1(t *tree.Tree, nodeID string, explorationConstant float64) (string, error) {
	node := t.Node(nodeID)
	if node == nil {
		return "", fmt.Errorf("mcts: node not found: %s", nodeID)
	}
	if len(node.Children) == 0 {
		return "", ErrNoChildren
	}

	parentVisits := node.VisitCount
	if parentVisits < 1 {
		parentVisits = 1
	}

	var bestID string
	bestScore := math.Inf(-1)
	bestMean := math.Inf(-1)

	for _, childID := range node.Children {
		child := t.Node(childID)
		var score, mean float64

		if child.VisitCount == 0 {
			score = math.Inf(1)
			mean = math.Inf(1)
		} else {
			mean, _ = child.MeanValue()
			score = mean + explorationConstant*math.Sqrt(math.Log(float64(parentVisits))/float64(child.VisitCount))
		}

		if score > bestScore || (score == bestScore && mean > bestMean) {
			bestID, bestScore, bestMean = childID, score, mean
		}
	}

	return bestID, nil
}

// BranchingSuggestion decides whether the cursor should branch, given its
// current children count, depth, and the preset's strategy.
func BranchingSuggestion(t *tree.Tree, cursor *types.Node, cfg Config, stepIndex int) *types.BranchingSuggestion {
	if len(cursor.Children) >= cfg.MaxBranchingFactor {
		return nil
	}

	depth, err := t.Depth(cursor.ID)
	if err != nil {
		return nil
	}
	if !branchDepthGate(cfg, depth, stepIndex) {
		return nil
	}

	return &types.BranchingSuggestion{
		FromNodeID: cursor.ID,
		Rationale:  branchingRationale(cfg.Strategy),
	}
}

func branchDepthGate(cfg Config, depth, stepIndex int) bool {
	switch cfg.Strategy {
	case "expert":
		return stepIndex%2 == 0 && depth < cfg.TargetDepthMin
	case "deep":
		return true
	default: // "fast" and anything unrecognized
		return false
	}
}

// BacktrackSuggestion proposes moving the cursor to a more promising
// sibling when the current path looks weak, per the preset's strategy.
func BacktrackSuggestion(t *tree.Tree, cursor *types.Node, cfg Config) *types.BacktrackSuggestion {
	if !cfg.EnableBacktracking || cfg.Strategy == "fast" {
		return nil
	}

	mean, ok := cursor.MeanValue()
	if !ok {
		return nil
	}

	var threshold float64
	switch cfg.Strategy {
	case "expert":
		threshold = 0.35
	case "deep":
		threshold = 0.5
		if cursor.VisitCount < 2 {
			return nil
		}
	default:
		return nil
	}
	if mean >= threshold {
		return nil
	}
	if cursor.ParentID == "" {
		return nil
	}

	parent := t.Node(cursor.ParentID)
	if parent == nil {
		return nil
	}

	var bestSibling *types.Node
	bestMean := math.Inf(-1)
	hasUnexplored := false

	for _, siblingID := range parent.Children {
		if siblingID == cursor.ID {
			continue
		}
		sibling := t.Node(siblingID)
		if sibling.VisitCount == 0 {
			hasUnexplored = true
			if bestSibling == nil {
				bestSibling = sibling
			}
			continue
		}
		if m, ok := sibling.MeanValue(); ok && m > bestMean {
			bestMean = m
			bestSibling = sibling
		}
	}

	higherMeanSibling := bestSibling != nil && bestMean > mean
	if !hasUnexplored && !higherMeanSibling {
		return nil
	}

	return &types.BacktrackSuggestion{
		ToNodeID:  bestSibling.ID,
		Rationale: backtrackRationale(cfg.Strategy),
	}
}

// ConvergenceStatus evaluates the best path's evaluation depth and mean
// value against the preset's convergence thresholds. Modes with
// MinEvaluationsBeforeConverge == 0 never report convergence.
func ConvergenceStatus(t *tree.Tree, cfg Config) *types.ConvergenceStatus {
	if cfg.MinEvaluationsBeforeConverge == 0 {
		return nil
	}

	path := t.BestPath()
	if len(path) == 0 {
		return nil
	}

	minEvaluations := path[0].VisitCount
	for _, node := range path {
		if node.VisitCount < minEvaluations {
			minEvaluations = node.VisitCount
		}
	}

	last := path[len(path)-1]
	score, ok := last.MeanValue()
	if !ok {
		score = 0
	}

	return &types.ConvergenceStatus{
		IsConverged:    minEvaluations >= cfg.MinEvaluationsBeforeConverge && score >= cfg.ConvergenceThreshold,
		Score:          score,
		MinEvaluations: minEvaluations,
	}
}

func branchingRationale(strategy string) string {
	return fmt.Sprintf("branching_suggested_%s", strategy)
}

func backtrackRationale(strategy string) string {
	return fmt.Sprintf("backtrack_suggested_%s", strategy)
}
