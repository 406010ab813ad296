// Package processor implements the guidance engine's facade (C10):
// the single process_thought orchestration wiring the session tracker,
// bounded store, per-session tree, MCTS engine, mode engine, health
// collector, and error dispatcher together.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	guidanceerrors "unified-thinking/internal/guidance/errors"
	"unified-thinking/internal/health"
	"unified-thinking/internal/mcts"
	"unified-thinking/internal/mode"
	"unified-thinking/internal/session"
	"unified-thinking/internal/snapshot"
	"unified-thinking/internal/store"
	"unified-thinking/internal/tree"
	"unified-thinking/internal/types"
	"unified-thinking/internal/validate"
)

// Config aggregates every sub-component's configuration plus the
// processor's own knobs. New passes every field through as given; zero
// values are not replaced by defaults, except that an all-zero
// Thresholds is replaced by the health collector's defaults.
type Config struct {
	Session              session.Config
	Store                store.Config
	MaxNodesPerTree      int
	MaxRequestsPerWindow int
	Thresholds           health.Thresholds
}

// DefaultConfig returns the configuration defaults from SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		Session:              session.DefaultConfig(),
		Store:                store.DefaultConfig(),
		MaxNodesPerTree:      500,
		MaxRequestsPerWindow: 100,
		Thresholds:           health.DefaultThresholds(),
	}
}

// Processor owns every component as an explicit field, created once at
// startup and passed down — no package-level singletons, matching the
// corpus's own move away from global mutable state.
type Processor struct {
	config Config

	sessions  *session.Tracker
	store     *store.Store
	modes     *mode.Registry
	templater *mode.Templater
	metrics   *health.Collector

	treesMu sync.Mutex
	trees   map[string]*tree.Tree

	stepMu sync.Mutex
	steps  map[string]int

	snapshots *snapshot.Store // nil unless AttachSnapshotStore is called
}

// New wires every component together, subscribing the per-session tree
// map to the session tracker's eviction notifications, so an expired
// session's tree is freed alongside its rate-limit state, and the
// store's cleanup to the tracker's periodic sweep.
func New(config Config) (*Processor, error) {
	templater, err := mode.NewTemplater()
	if err != nil {
		return nil, fmt.Errorf("processor: build templater: %w", err)
	}

	p := &Processor{
		config:    config,
		sessions:  session.New(config.Session),
		store:     store.New(config.Store),
		modes:     mode.NewRegistry(),
		templater: templater,
		metrics:   health.New(config.Thresholds),
		trees:     make(map[string]*tree.Tree),
		steps:     make(map[string]int),
	}

	p.sessions.OnEviction(p.evictSession)
	p.sessions.OnPeriodicCleanup(p.store.Cleanup)

	return p, nil
}

// AttachSnapshotStore wires an optional sqlite-backed snapshot store into
// the processor: every subsequent ProcessThought persists its session's
// tree, and a session's first touch reloads any tree saved under its ID
// in a prior process. Must be called before the first ProcessThought for
// a session to take effect for that session's reload.
func (p *Processor) AttachSnapshotStore(s *snapshot.Store) {
	p.snapshots = s
}

func (p *Processor) evictSession(sessionID string) {
	p.treesMu.Lock()
	delete(p.trees, sessionID)
	p.treesMu.Unlock()

	p.stepMu.Lock()
	delete(p.steps, sessionID)
	p.stepMu.Unlock()
}

// treeFor returns the tree for sessionID, creating an empty one on the
// session's first thought.
func (p *Processor) treeFor(sessionID string) *tree.Tree {
	p.treesMu.Lock()
	defer p.treesMu.Unlock()

	t, ok := p.trees[sessionID]
	if !ok {
		t = tree.New(p.config.MaxNodesPerTree)
		if p.snapshots != nil {
			if snap, err := p.snapshots.Load(sessionID); err == nil && snap != nil {
				_ = t.Restore(snap.Nodes, snap.CursorID)
			}
		}
		p.trees[sessionID] = t
	}
	return t
}

// nextStep returns the count of thoughts already processed for sessionID
// before this one (0 for the first thought, 1 for the second, ...), then
// records that this thought has been processed. The mode engine's branch
// parity gate is defined against this pre-increment count.
func (p *Processor) nextStep(sessionID string) int {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()

	stepIndex := p.steps[sessionID]
	p.steps[sessionID]++
	return stepIndex
}

// currentStep returns the stepIndex nextStep produced for the most
// recently processed thought in sessionID.
func (p *Processor) currentStep(sessionID string) int {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()
	if p.steps[sessionID] == 0 {
		return 0
	}
	return p.steps[sessionID] - 1
}

// internTags interns each tag against the shared tag interner: tags recur
// heavily across thoughts in a long session, so canonicalizing them here
// keeps the tree and store from holding duplicate string allocations.
func internTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	interned := make([]string, len(tags))
	for i, tag := range tags {
		interned[i] = types.InternTag(tag)
	}
	return interned
}

// ProcessThought validates, rate-gates, installs, and guides a single
// thinking step. Every returned error is a *guidanceerrors.GuidanceError.
func (p *Processor) ProcessThought(ctx context.Context, input *types.ThoughtInput) (resp *types.Response, err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordRequest(err == nil, float64(time.Since(start).Milliseconds()))
	}()

	if verr := validate.ValidateThoughtInput(input); verr != nil {
		return nil, guidanceerrors.Validation(verr.Error()).WithDetails(verr.(*validate.ValidationError).Field)
	}
	input.Text = validate.StripControlCharacters(input.Text)

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = session.NewSessionID()
	}

	maxRequests := p.config.MaxRequestsPerWindow
	if !p.sessions.CheckAndRecord(sessionID, maxRequests) {
		retryAfter := int(p.config.Session.RateWindow.Seconds())
		if retryAfter <= 0 {
			retryAfter = 60
		}
		return nil, guidanceerrors.RateLimit("too many requests for this session", retryAfter)
	}
	p.metrics.SetActiveSessions(p.sessions.ActiveCount())

	thoughtTree := p.treeFor(sessionID)

	thinkingMode := input.Mode
	if thinkingMode == "" {
		thinkingMode = types.ModeExpert
	}
	preset, perr := p.modes.Get(string(thinkingMode))
	if perr != nil {
		return nil, guidanceerrors.Validation(perr.Error()).WithDetails("mode")
	}

	record := &types.ThoughtRecord{
		Text:              input.Text,
		ThoughtNumber:     input.ThoughtNumber,
		TotalThoughts:     input.TotalThoughts,
		NextThoughtNeeded: input.NextThoughtNeeded,
		SessionID:         sessionID,
		Mode:              types.InternMode(thinkingMode),
		BranchID:          input.BranchID,
		BranchFromThought: input.BranchFromThought,
		IsRevision:        input.IsRevision,
		RevisesThought:    input.RevisesThought,
		EvaluationScore:   input.EvaluationScore,
		Tags:              internTags(input.Tags),
		Confidence:        input.Confidence,
		CreatedAt:         time.Now(),
	}

	p.store.AddThought(record)

	node, terr := thoughtTree.AddThought(record)
	if terr != nil {
		return nil, guidanceerrors.BusinessLogic("tree capacity exceeded").WithCause(terr)
	}

	switch {
	case input.EvaluationScore != nil:
		if berr := thoughtTree.Backpropagate(node.ID, *input.EvaluationScore); berr != nil {
			return nil, guidanceerrors.State("failed to record evaluation").WithCause(berr)
		}
		node = thoughtTree.Node(node.ID)
	case preset.AutoEvaluate:
		// Fast mode skips explicit evaluation scores entirely, so the
		// engine backpropagates the preset's fixed value on its behalf —
		// otherwise every fast-mode node would sit at VisitCount == 0
		// forever and the branch/backtrack gates could never fire.
		if berr := thoughtTree.Backpropagate(node.ID, preset.AutoEvalValue); berr != nil {
			return nil, guidanceerrors.State("failed to record auto-evaluation").WithCause(berr)
		}
		node = thoughtTree.Node(node.ID)
	}

	p.metrics.RecordThought(len(record.Text), record.IsRevision, record.BranchID != "")

	cfg := mcts.Config{
		ExplorationConstant:          preset.ExplorationConstant,
		Strategy:                     preset.Name,
		MaxBranchingFactor:           preset.MaxBranchingFactor,
		TargetDepthMin:               preset.TargetDepthMin,
		EnableBacktracking:           preset.EnableBacktracking,
		MinEvaluationsBeforeConverge: preset.MinEvaluationsBeforeConverge,
		ConvergenceThreshold:         preset.ConvergenceThreshold,
	}

	stepIndex := p.nextStep(sessionID)
	convergence := mcts.ConvergenceStatus(thoughtTree, cfg)
	backtrack := mcts.BacktrackSuggestion(thoughtTree, node, cfg)
	branching := mcts.BranchingSuggestion(thoughtTree, node, cfg, stepIndex)

	action := mode.ChooseAction(thoughtTree, node, preset, convergence, backtrack, branching)
	phase := mode.DetectPhase(thoughtTree, node, preset, convergence)

	data := mode.PromptData{
		ThoughtNumber:       input.ThoughtNumber,
		TargetTotalThoughts: input.TotalThoughts,
		TargetDepthMax:      preset.TargetDepthMax,
		CursorNodeID:        node.ID,
	}
	if branching != nil {
		data.BranchFromNodeID = branching.FromNodeID
	}
	if backtrack != nil {
		data.BacktrackToNodeID = backtrack.ToNodeID
	}
	if convergence != nil {
		data.ConvergenceScore = convergence.Score
		data.ConvergenceThreshold = preset.ConvergenceThreshold
	}

	prompt, rerr := p.templater.Render(thinkingMode, action, data)
	if rerr != nil {
		return nil, guidanceerrors.Internal("failed to render guidance prompt").WithCause(rerr)
	}

	if p.snapshots != nil {
		// Best-effort: a snapshot write failure shouldn't fail the
		// in-memory guidance response that's the source of truth for
		// this request.
		_ = p.snapshots.Save(sessionID, thoughtTree.AllNodes(), thoughtTree.Cursor().ID)
	}

	return &types.Response{
		Action:              action,
		Phase:               phase,
		TargetTotalThoughts: input.TotalThoughts,
		ThoughtPrompt:       prompt,
		ProgressOverview:    mode.ProgressOverview(thoughtTree, node, preset),
		Critique:            mode.Critique(thoughtTree, preset),
		ConvergenceStatus:   convergence,
		BranchingSuggestion: branching,
		BacktrackSuggestion: backtrack,
	}, nil
}

// TreeSnapshot is the read-only introspection view of a session's tree.
type TreeSnapshot struct {
	Nodes    []*types.Node `json:"nodes"`
	CursorID string        `json:"cursor_id"`
	BestPath []string      `json:"best_path"`
}

// Tree returns a read-only snapshot of sessionID's tree. Returns nil if
// the session has no tree yet.
func (p *Processor) Tree(sessionID string) *TreeSnapshot {
	p.treesMu.Lock()
	t, ok := p.trees[sessionID]
	p.treesMu.Unlock()
	if !ok {
		return nil
	}

	best := t.BestPath()
	ids := make([]string, len(best))
	for i, n := range best {
		ids[i] = n.ID
	}

	cursor := t.Cursor()
	cursorID := ""
	if cursor != nil {
		cursorID = cursor.ID
	}

	return &TreeSnapshot{Nodes: t.AllNodes(), CursorID: cursorID, BestPath: ids}
}

// Guidance recomputes the mode engine's recommendation for sessionID's
// current cursor without installing a new thought — the read-only
// counterpart to ProcessThought's orchestration.
func (p *Processor) Guidance(sessionID string, thinkingMode types.ThinkingMode) (*types.Response, error) {
	p.treesMu.Lock()
	thoughtTree, ok := p.trees[sessionID]
	p.treesMu.Unlock()
	if !ok {
		return nil, guidanceerrors.Validation("unknown session_id").WithDetails("session_id")
	}

	node := thoughtTree.Cursor()
	if node == nil {
		return nil, guidanceerrors.State("session has no thoughts yet")
	}

	if thinkingMode == "" {
		thinkingMode = types.ModeExpert
	}
	preset, perr := p.modes.Get(string(thinkingMode))
	if perr != nil {
		return nil, guidanceerrors.Validation(perr.Error()).WithDetails("mode")
	}

	cfg := mcts.Config{
		ExplorationConstant:          preset.ExplorationConstant,
		Strategy:                     preset.Name,
		MaxBranchingFactor:           preset.MaxBranchingFactor,
		TargetDepthMin:               preset.TargetDepthMin,
		EnableBacktracking:           preset.EnableBacktracking,
		MinEvaluationsBeforeConverge: preset.MinEvaluationsBeforeConverge,
		ConvergenceThreshold:         preset.ConvergenceThreshold,
	}

	convergence := mcts.ConvergenceStatus(thoughtTree, cfg)
	backtrack := mcts.BacktrackSuggestion(thoughtTree, node, cfg)
	branching := mcts.BranchingSuggestion(thoughtTree, node, cfg, p.currentStep(sessionID))

	action := mode.ChooseAction(thoughtTree, node, preset, convergence, backtrack, branching)
	phase := mode.DetectPhase(thoughtTree, node, preset, convergence)

	data := mode.PromptData{
		ThoughtNumber:  node.ThoughtNumber,
		TargetDepthMax: preset.TargetDepthMax,
		CursorNodeID:   node.ID,
	}
	if branching != nil {
		data.BranchFromNodeID = branching.FromNodeID
	}
	if backtrack != nil {
		data.BacktrackToNodeID = backtrack.ToNodeID
	}
	if convergence != nil {
		data.ConvergenceScore = convergence.Score
		data.ConvergenceThreshold = preset.ConvergenceThreshold
	}

	prompt, rerr := p.templater.Render(thinkingMode, action, data)
	if rerr != nil {
		return nil, guidanceerrors.Internal("failed to render guidance prompt").WithCause(rerr)
	}

	return &types.Response{
		Action:              action,
		Phase:               phase,
		ThoughtPrompt:       prompt,
		ProgressOverview:    mode.ProgressOverview(thoughtTree, node, preset),
		Critique:            mode.Critique(thoughtTree, preset),
		ConvergenceStatus:   convergence,
		BranchingSuggestion: branching,
		BacktrackSuggestion: backtrack,
	}, nil
}

// Health runs the five-probe health check, using the active session
// tree set's total node count against MaxNodesPerTree as the storage
// utilisation signal.
func (p *Processor) Health() *health.Report {
	return p.metrics.Check(p.storageUtilization)
}

func (p *Processor) storageUtilization() (used, capacity int) {
	p.treesMu.Lock()
	defer p.treesMu.Unlock()

	for _, t := range p.trees {
		used += t.Size()
		capacity += p.config.MaxNodesPerTree
	}
	return used, capacity
}

// Shutdown stops the session tracker's background sweep.
func (p *Processor) Shutdown() {
	p.sessions.Shutdown()
}
