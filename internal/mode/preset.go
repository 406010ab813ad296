// Package mode implements the mode engine (C6): the fast/expert/deep
// preset registry, the action chooser and phase detector that consult
// it, a text/template prompt templater, a smart text compressor, and the
// progress-overview / critique report builders.
package mode

import (
	"fmt"
	"sync"

	"unified-thinking/internal/types"
)

// Preset holds one thinking mode's tuning parameters. All fields are
// immutable once registered; Get returns a copy so callers can never
// mutate shared registry state.
type Preset struct {
	Name                         string
	ExplorationConstant          float64
	SuggestStrategy              string // "exploit", "balanced", or "explore"
	MaxBranchingFactor           int
	TargetDepthMin               int
	TargetDepthMax               int
	AutoEvaluate                 bool
	AutoEvalValue                float64
	EnableBacktracking           bool
	MinEvaluationsBeforeConverge int
	ConvergenceThreshold         float64
	ProgressOverviewInterval     int
	MaxThoughtDisplayLength      int
	EnableCritique               bool
}

// Registry is a mutex-protected map of preset name to Preset.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]*Preset
}

// NewRegistry creates a registry pre-populated with the fast/expert/deep
// built-in presets.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]*Preset)}
	r.registerBuiltins()
	return r
}

// Register adds a preset under name, replacing any previous one.
func (r *Registry) Register(name string, preset *Preset) error {
	if name == "" {
		return fmt.Errorf("mode: preset name is required")
	}
	if preset == nil {
		return fmt.Errorf("mode: preset is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *preset
	r.presets[name] = &copied
	return nil
}

// Get retrieves a preset by name. The returned value is always a struct
// copy, never a pointer into the registry's storage.
func (r *Registry) Get(name string) (*Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	preset, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("mode: preset not found: %s", name)
	}
	copied := *preset
	return &copied, nil
}

// List returns the names of all registered presets.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered presets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

func (r *Registry) registerBuiltins() {
	_ = r.Register(string(types.ModeFast), &Preset{
		Name:                         "fast",
		ExplorationConstant:          0.5,
		SuggestStrategy:              "exploit",
		MaxBranchingFactor:           1,
		TargetDepthMin:               3,
		TargetDepthMax:               5,
		AutoEvaluate:                 true,
		AutoEvalValue:                0.7,
		EnableBacktracking:           false,
		MinEvaluationsBeforeConverge: 0,
		ConvergenceThreshold:         0,
		ProgressOverviewInterval:     3,
		MaxThoughtDisplayLength:      150,
		EnableCritique:               false,
	})
	_ = r.Register(string(types.ModeExpert), &Preset{
		Name:                         "expert",
		ExplorationConstant:          1.41421356, // sqrt(2)
		SuggestStrategy:              "balanced",
		MaxBranchingFactor:           3,
		TargetDepthMin:               5,
		TargetDepthMax:               10,
		AutoEvaluate:                 false,
		EnableBacktracking:           true,
		MinEvaluationsBeforeConverge: 3,
		ConvergenceThreshold:         0.7,
		ProgressOverviewInterval:     4,
		MaxThoughtDisplayLength:      250,
		EnableCritique:               true,
	})
	_ = r.Register(string(types.ModeDeep), &Preset{
		Name:                         "deep",
		ExplorationConstant:          2.0,
		SuggestStrategy:              "explore",
		MaxBranchingFactor:           5,
		TargetDepthMin:               10,
		TargetDepthMax:               20,
		AutoEvaluate:                 false,
		EnableBacktracking:           true,
		MinEvaluationsBeforeConverge: 5,
		ConvergenceThreshold:         0.85,
		ProgressOverviewInterval:     5,
		MaxThoughtDisplayLength:      300,
		EnableCritique:               true,
	})
}

// DefaultRegistry is the package-level singleton consulted by GetPreset
// and ListPresets.
var DefaultRegistry = NewRegistry()

// GetPreset returns a copy of the preset registered for mode.
func GetPreset(m types.ThinkingMode) (*Preset, error) {
	return DefaultRegistry.Get(string(m))
}

// ListPresets returns the names of all registered presets.
func ListPresets() []string {
	return DefaultRegistry.List()
}
