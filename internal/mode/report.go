package mode

import (
	"fmt"
	"math"

	"unified-thinking/internal/tree"
	"unified-thinking/internal/types"
)

// ProgressOverview returns a multi-line status report every
// progress_overview_interval nodes, nil otherwise. The report style
// mirrors the corpus's backtick fmt.Sprintf performance/exploration
// reports.
func ProgressOverview(t *tree.Tree, cursor *types.Node, preset *Preset) *string {
	nodeCount := t.Size()
	if preset.ProgressOverviewInterval <= 0 || nodeCount%preset.ProgressOverviewInterval != 0 {
		return nil
	}

	depth, _ := t.Depth(cursor.ID)

	evaluated := 0
	gaps := 0
	for _, n := range t.AllNodes() {
		if n.IsEvaluated() {
			evaluated++
		}
		if len(n.Children) == 0 && !n.IsEvaluated() {
			gaps++
		}
	}

	path := t.BestPath()
	last := path[len(path)-1]
	score, ok := last.MeanValue()
	scoreLabel := "N/A"
	if ok {
		scoreLabel = fmt.Sprintf("%.2f", score)
	}

	report := fmt.Sprintf(`%d thoughts
  Depth: %d
  Evaluated nodes: %d
  Unresolved gaps: %d
  Best path — score %s
`,
		nodeCount, depth, evaluated, gaps, scoreLabel)

	return &report
}

// Critique returns a weak-spot assessment of the current best path, nil
// if critique is disabled or the path is too short to critique.
func Critique(t *tree.Tree, preset *Preset) *string {
	if !preset.EnableCritique {
		return nil
	}

	path := t.BestPath()
	if len(path) < 2 {
		return nil
	}

	weakestLabel := "N/A"
	weakestMean := math.Inf(1)
	anyEvaluated := false
	for _, n := range path {
		if mean, ok := n.MeanValue(); ok {
			anyEvaluated = true
			if mean < weakestMean {
				weakestMean = mean
				weakestLabel = fmt.Sprintf("%s (%.2f)", n.ID, mean)
			}
		}
	}
	if !anyEvaluated {
		weakestLabel = "N/A"
	}

	interior := path[:len(path)-1]
	unchallenged := 0
	for _, n := range interior {
		if len(n.Children) == 1 {
			unchallenged++
		}
	}

	allNodes := t.AllNodes()
	coverage := 0.0
	if len(allNodes) > 0 {
		coverage = float64(len(path)) / float64(len(allNodes)) * 100
	}

	balance := "balanced"
	if coverage > 66 {
		balance = "one-sided"
	}

	report := fmt.Sprintf(`Weakest node on best path: %s
  Unchallenged steps: %d/%d
  Branch coverage: %.1f%%
  Balance: %s
`,
		weakestLabel, unchallenged, len(interior), coverage, balance)

	return &report
}
