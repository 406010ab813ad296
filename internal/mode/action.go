package mode

import (
	"unified-thinking/internal/tree"
	"unified-thinking/internal/types"
)

// ChooseAction runs the action chooser's ordered rule set; the first
// matching rule wins.
func ChooseAction(
	t *tree.Tree,
	cursor *types.Node,
	preset *Preset,
	convergence *types.ConvergenceStatus,
	backtrack *types.BacktrackSuggestion,
	branching *types.BranchingSuggestion,
) types.Action {
	if convergence != nil && convergence.IsConverged {
		return types.ActionConclude
	}
	if preset.EnableBacktracking && backtrack != nil {
		return types.ActionBacktrack
	}
	if branching != nil && len(cursor.Children) < preset.MaxBranchingFactor {
		return types.ActionBranch
	}
	if len(cursor.Children) == preset.MaxBranchingFactor && anyChildUnevaluated(t, cursor) {
		return types.ActionEvaluate
	}
	if depth, err := t.Depth(cursor.ID); err == nil && depth >= preset.TargetDepthMax {
		return types.ActionConclude
	}
	return types.ActionContinue
}

func anyChildUnevaluated(t *tree.Tree, cursor *types.Node) bool {
	for _, childID := range cursor.Children {
		if child := t.Node(childID); child != nil && !child.IsEvaluated() {
			return true
		}
	}
	return false
}

// DetectPhase runs the phase detector. It is independent of the chosen
// action: a converged tree is always "concluded" even if the action
// chooser picked "conclude" for an unrelated depth-limit reason.
func DetectPhase(t *tree.Tree, cursor *types.Node, preset *Preset, convergence *types.ConvergenceStatus) types.Phase {
	if convergence != nil && convergence.IsConverged {
		return types.PhaseConcluded
	}

	evaluationCount := 0
	if convergence != nil {
		evaluationCount = convergence.MinEvaluations
	}

	if preset.MinEvaluationsBeforeConverge > 0 && evaluationCount >= preset.MinEvaluationsBeforeConverge {
		return types.PhaseConverging
	}

	depth, err := t.Depth(cursor.ID)
	if err == nil && depth >= preset.TargetDepthMin && anyNodeEvaluated(t) && evaluationCount < preset.MinEvaluationsBeforeConverge {
		return types.PhaseEvaluating
	}

	return types.PhaseExploring
}

func anyNodeEvaluated(t *tree.Tree) bool {
	for _, n := range t.AllNodes() {
		if n.IsEvaluated() {
			return true
		}
	}
	return false
}
