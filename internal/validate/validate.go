// Package validate implements the security/input validator (C7): size
// limits, control-character stripping, forbidden-property-name
// rejection, and per-request-type validation functions.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"unified-thinking/internal/types"
)

// Size-limit constants, each carrying the rationale the corpus attaches
// to its own limits.
const (
	// MaxThoughtLength bounds a single thought's text to 10KB, matching
	// the default in SPEC_FULL.md §6.
	MaxThoughtLength = 10000

	// MaxSessionIDLength bounds caller-supplied session IDs; UUIDs and
	// short human-readable IDs both fit comfortably under this.
	MaxSessionIDLength = 200

	// MaxBranchIDLength mirrors MaxSessionIDLength's rationale for
	// branch identifiers.
	MaxBranchIDLength = 200

	// MaxTags limits the tag list per thought to prevent unbounded
	// metadata growth.
	MaxTags = 20

	// MaxTagLength bounds an individual tag to a short label.
	MaxTagLength = 100
)

// forbiddenPropertyNames blocks request fields that collide with
// reserved JSON keys the downstream pipeline treats specially.
var forbiddenPropertyNames = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// ValidationError reports which field failed validation and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// StripControlCharacters removes ASCII control characters (0x00-0x1F,
// 0x7F), including newlines, from s. This is the anti-JSONL-injection
// guarantee: nothing a caller submits can break a line-delimited log or
// an escaped template render.
func StripControlCharacters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsForbiddenPropertyName reports whether name (after trimming and
// lowercasing) matches a reserved property name.
func IsForbiddenPropertyName(name string) bool {
	return forbiddenPropertyNames[strings.ToLower(strings.TrimSpace(name))]
}

// ValidateThoughtInput validates one incoming thought. It strips control
// characters from a copy of the text before its checks, so length limits
// are measured against the sanitised text; input itself is not modified.
func ValidateThoughtInput(input *types.ThoughtInput) error {
	if input == nil {
		return &ValidationError{"input", "input is required"}
	}

	text := StripControlCharacters(input.Text)
	if text == "" {
		return &ValidationError{"text", "text cannot be empty"}
	}
	if !utf8.ValidString(text) {
		return &ValidationError{"text", "text must be valid UTF-8"}
	}
	if len(text) > MaxThoughtLength {
		return &ValidationError{"text", fmt.Sprintf("text exceeds maximum length of %d bytes", MaxThoughtLength)}
	}
	if IsForbiddenPropertyName(text) {
		return &ValidationError{"text", "text may not equal a reserved property name"}
	}

	if input.ThoughtNumber < 1 {
		return &ValidationError{"thought_number", "thought_number must be >= 1"}
	}
	if input.TotalThoughts < 1 {
		return &ValidationError{"total_thoughts", "total_thoughts must be >= 1"}
	}

	if input.Mode != "" && input.Mode != types.ModeFast && input.Mode != types.ModeExpert && input.Mode != types.ModeDeep {
		return &ValidationError{"mode", fmt.Sprintf("invalid mode: %s (must be 'fast', 'expert', or 'deep')", input.Mode)}
	}

	if len(input.SessionID) > MaxSessionIDLength {
		return &ValidationError{"session_id", "session_id too long"}
	}
	if len(input.BranchID) > MaxBranchIDLength {
		return &ValidationError{"branch_id", "branch_id too long"}
	}

	if input.Confidence < 0.0 || input.Confidence > 1.0 {
		return &ValidationError{"confidence", "confidence must be between 0.0 and 1.0"}
	}
	if input.EvaluationScore != nil && (*input.EvaluationScore < 0.0 || *input.EvaluationScore > 1.0) {
		return &ValidationError{"evaluation_score", "evaluation_score must be between 0.0 and 1.0"}
	}

	if len(input.Tags) > MaxTags {
		return &ValidationError{"tags", fmt.Sprintf("too many tags (max %d)", MaxTags)}
	}
	for i, tag := range input.Tags {
		if len(tag) > MaxTagLength {
			return &ValidationError{"tags", fmt.Sprintf("tags[%d] exceeds max length of %d", i, MaxTagLength)}
		}
		if !utf8.ValidString(tag) {
			return &ValidationError{"tags", fmt.Sprintf("tags[%d] must be valid UTF-8", i)}
		}
	}

	return nil
}

// ValidatePersistencePath rejects a caller-supplied path used for
// host-side snapshot persistence if it escapes the intended directory
// via "..", or names an absolute system path.
func ValidatePersistencePath(path string) error {
	if path == "" {
		return &ValidationError{"path", "path is required"}
	}
	if filepath.IsAbs(path) {
		return &ValidationError{"path", "absolute paths are not permitted"}
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, string(filepath.Separator)+"..") {
		return &ValidationError{"path", "path may not escape its base directory"}
	}
	return nil
}
