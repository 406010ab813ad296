// Package types holds the core data model for the sequential-thinking
// guidance engine: thought records, tree nodes, branch buckets, session
// data, and the guidance response shape.
package types

import "time"

// ThinkingMode selects which preset (fast/expert/deep) governs the mode
// engine's action chooser, phase detector, and prompt templater.
type ThinkingMode string

const (
	ModeFast   ThinkingMode = "fast"
	ModeExpert ThinkingMode = "expert"
	ModeDeep   ThinkingMode = "deep"
)

// ThoughtInput is the caller-supplied payload for one thinking step.
// Fields mirror the request shape in SPEC_FULL.md §6; unknown JSON fields
// are ignored by the decoder.
type ThoughtInput struct {
	Text              string       `json:"text"`
	ThoughtNumber     int          `json:"thought_number"`
	TotalThoughts     int          `json:"total_thoughts"`
	NextThoughtNeeded bool         `json:"next_thought_needed"`
	SessionID         string       `json:"session_id,omitempty"`
	Mode              ThinkingMode `json:"mode,omitempty"`

	BranchID          string   `json:"branch_id,omitempty"`
	BranchFromThought int      `json:"branch_from_thought,omitempty"`
	IsRevision        bool     `json:"is_revision,omitempty"`
	RevisesThought    int      `json:"revises_thought,omitempty"`
	EvaluationScore   *float64 `json:"evaluation_score,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
}

// ThoughtRecord is the sanitised, immutable-once-accepted form of a
// ThoughtInput. The store and tree only ever see ThoughtRecords, never
// raw ThoughtInputs.
type ThoughtRecord struct {
	Text              string
	ThoughtNumber     int
	TotalThoughts     int
	NextThoughtNeeded bool
	SessionID         string
	Mode              ThinkingMode

	BranchID          string
	BranchFromThought int
	IsRevision        bool
	RevisesThought    int
	EvaluationScore   *float64
	Tags              []string
	Confidence        float64

	CreatedAt time.Time
}

// Clone returns a deep copy safe to hand to a caller or mutate locally.
func (t *ThoughtRecord) Clone() *ThoughtRecord {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Tags != nil {
		cp.Tags = append([]string(nil), t.Tags...)
	}
	if t.EvaluationScore != nil {
		v := *t.EvaluationScore
		cp.EvaluationScore = &v
	}
	return &cp
}

// Node is a single vertex in a thought tree: owned by the tree, mutated
// only by backpropagation (visit_count, total_value).
type Node struct {
	ID            string
	ParentID      string // empty for the root
	Children      []string
	ThoughtNumber int
	Text          string
	VisitCount    int
	TotalValue    float64
}

// IsEvaluated reports whether the node has received at least one
// backpropagated value (T3's precondition for a defined mean value).
func (n *Node) IsEvaluated() bool {
	return n.VisitCount > 0
}

// MeanValue returns total_value / visit_count, or 0 with ok=false when
// the node has never been visited (mean value is undefined per T3).
func (n *Node) MeanValue() (mean float64, ok bool) {
	if n.VisitCount == 0 {
		return 0, false
	}
	return n.TotalValue / float64(n.VisitCount), true
}

// Clone returns a deep copy of the node, safe for callers to inspect
// without risking a data race with in-flight backpropagation.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Children = append([]string(nil), n.Children...)
	return &cp
}

// ConvergenceStatus reports the MCTS engine's convergence verdict for the
// current best path. Nil when the active mode's min_evaluations_before_converge
// is zero (fast mode never reports convergence).
type ConvergenceStatus struct {
	IsConverged    bool    `json:"is_converged"`
	Score          float64 `json:"score"`
	MinEvaluations int     `json:"min_evaluations"`
}

// BranchingSuggestion recommends forking a new child from a node.
type BranchingSuggestion struct {
	FromNodeID string `json:"from_node_id"`
	Rationale  string `json:"rationale"`
}

// BacktrackSuggestion recommends moving the cursor to one of its
// siblings; ancestors are never suggested.
type BacktrackSuggestion struct {
	ToNodeID  string `json:"to_node_id"`
	Rationale string `json:"rationale"`
}

// Action is the guidance engine's recommended next step.
type Action string

const (
	ActionContinue  Action = "continue"
	ActionBranch    Action = "branch"
	ActionBacktrack Action = "backtrack"
	ActionEvaluate  Action = "evaluate"
	ActionConclude  Action = "conclude"
)

// Phase is the state-machine phase the session is currently in,
// independent of the chosen action.
type Phase string

const (
	PhaseExploring  Phase = "exploring"
	PhaseEvaluating Phase = "evaluating"
	PhaseConverging Phase = "converging"
	PhaseConcluded  Phase = "concluded"
)

// Response is the guidance engine's output for one processed thought,
// matching SPEC_FULL.md §6's response shape exactly.
type Response struct {
	Action              Action               `json:"action"`
	Phase               Phase                `json:"phase"`
	TargetTotalThoughts int                  `json:"target_total_thoughts"`
	ThoughtPrompt       string               `json:"thought_prompt"`
	ProgressOverview    *string              `json:"progress_overview"`
	Critique            *string              `json:"critique"`
	ConvergenceStatus   *ConvergenceStatus   `json:"convergence_status"`
	BranchingSuggestion *BranchingSuggestion `json:"branching_suggestion"`
	BacktrackSuggestion *BacktrackSuggestion `json:"backtrack_suggestion"`
}
