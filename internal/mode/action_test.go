package mode

import (
	"testing"

	"unified-thinking/internal/tree"
	"unified-thinking/internal/types"
)

func TestChooseActionConcludeOnConvergence(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert)

	action := ChooseAction(tr, root, preset, &types.ConvergenceStatus{IsConverged: true}, nil, nil)
	if action != types.ActionConclude {
		t.Errorf("ChooseAction() = %v, want conclude", action)
	}
}

func TestChooseActionBacktrackWhenEnabledAndSuggested(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert)

	action := ChooseAction(tr, root, preset, nil, &types.BacktrackSuggestion{ToNodeID: "x"}, nil)
	if action != types.ActionBacktrack {
		t.Errorf("ChooseAction() = %v, want backtrack", action)
	}
}

func TestChooseActionBranchWhenBelowMax(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert) // max_branching_factor = 3

	action := ChooseAction(tr, root, preset, nil, nil, &types.BranchingSuggestion{FromNodeID: root.ID})
	if action != types.ActionBranch {
		t.Errorf("ChooseAction() = %v, want branch", action)
	}
}

func TestChooseActionContinueByDefault(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeFast)

	action := ChooseAction(tr, root, preset, nil, nil, nil)
	if action != types.ActionContinue {
		t.Errorf("ChooseAction() = %v, want continue", action)
	}
}

func TestChooseActionConcludeAtMaxDepth(t *testing.T) {
	tr := tree.New(0)
	preset, _ := GetPreset(types.ModeFast) // target_depth_max = 5
	var cursor *types.Node
	for i := 1; i <= 6; i++ {
		cursor, _ = tr.AddThought(&types.ThoughtRecord{ThoughtNumber: i})
	}

	action := ChooseAction(tr, cursor, preset, nil, nil, nil)
	if action != types.ActionConclude {
		t.Errorf("ChooseAction() = %v, want conclude at max depth", action)
	}
}

func TestDetectPhaseExploringByDefault(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert)

	if phase := DetectPhase(tr, root, preset, nil); phase != types.PhaseExploring {
		t.Errorf("DetectPhase() = %v, want exploring", phase)
	}
}

func TestDetectPhaseConcluded(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert)

	phase := DetectPhase(tr, root, preset, &types.ConvergenceStatus{IsConverged: true})
	if phase != types.PhaseConcluded {
		t.Errorf("DetectPhase() = %v, want concluded", phase)
	}
}

func TestDetectPhaseConverging(t *testing.T) {
	tr := tree.New(0)
	root, _ := tr.AddThought(&types.ThoughtRecord{ThoughtNumber: 1})
	preset, _ := GetPreset(types.ModeExpert) // min_evaluations_before_converge = 3

	phase := DetectPhase(tr, root, preset, &types.ConvergenceStatus{IsConverged: false, MinEvaluations: 3})
	if phase != types.PhaseConverging {
		t.Errorf("DetectPhase() = %v, want converging", phase)
	}
}
