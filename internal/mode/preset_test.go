package mode

import "testing"

func TestBuiltinPresetsRegistered(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", r.Count())
	}
	for _, name := range []string{"fast", "expert", "deep"} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
		}
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	r := NewRegistry()
	preset, err := r.Get("fast")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	preset.MaxBranchingFactor = 999

	again, _ := r.Get("fast")
	if again.MaxBranchingFactor == 999 {
		t.Error("mutating a returned preset affected the registry")
	}
}

func TestGetUnknownPreset(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected an error for an unregistered preset")
	}
}

func TestExpertPresetValues(t *testing.T) {
	r := NewRegistry()
	preset, _ := r.Get("expert")

	if preset.MaxBranchingFactor != 3 {
		t.Errorf("MaxBranchingFactor = %d, want 3", preset.MaxBranchingFactor)
	}
	if preset.MinEvaluationsBeforeConverge != 3 {
		t.Errorf("MinEvaluationsBeforeConverge = %d, want 3", preset.MinEvaluationsBeforeConverge)
	}
	if !preset.EnableBacktracking {
		t.Error("expert preset should enable backtracking")
	}
}

func TestListPresetsViaDefaultRegistry(t *testing.T) {
	names := ListPresets()
	if len(names) != 3 {
		t.Fatalf("ListPresets() len = %d, want 3", len(names))
	}
}
