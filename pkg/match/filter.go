// Package match implements entry filtering for scan and transfer passes.
//
// A Filter combines an extension allow-set with optional exclude globs:
//   - Extensions: when present, an entry is accepted only if its lower-cased
//     suffix is in the set. Absent means accept everything.
//   - Excludes: doublestar glob patterns; an entry matching any pattern is
//     rejected regardless of extension.
//
// The Filter is safe for concurrent use after creation.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter evaluates object keys against the configured rules.
type Filter struct {
	exts     map[string]struct{} // nil means no extension filtering
	excludes []string
}

// Config configures a Filter.
type Config struct {
	// Extensions are accepted file suffixes. Each is normalized to a
	// lower-cased, dot-prefixed form (".tar", "NC" -> ".nc").
	// Empty means accept all suffixes.
	Extensions []string

	// Excludes are glob patterns; matching keys are rejected.
	// Optional: if empty, no excludes are applied.
	Excludes []string
}

// ErrInvalidPattern is returned when an exclude pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a new Filter from the given configuration.
//
// Returns an error if any exclude pattern is invalid.
func New(cfg Config) (*Filter, error) {
	var exts map[string]struct{}
	if len(cfg.Extensions) > 0 {
		exts = make(map[string]struct{}, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			exts[NormalizeExtension(ext)] = struct{}{}
		}
	}

	excludes := make([]string, 0, len(cfg.Excludes))
	for _, raw := range cfg.Excludes {
		if !doublestar.ValidatePattern(raw) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
		excludes = append(excludes, raw)
	}

	return &Filter{exts: exts, excludes: excludes}, nil
}

// Match reports whether the key is accepted (counted) by the filter.
//
// Keys rejected by Match are tallied as ignored by the scan pass and skipped
// silently by the transfer pass. Directory markers are not the filter's
// concern; callers skip them before consulting Match.
func (f *Filter) Match(key string) bool {
	if f == nil {
		return true
	}

	for _, pat := range f.excludes {
		// Patterns were validated in New; doublestar only errors on bad patterns.
		if ok, _ := doublestar.Match(pat, key); ok {
			return false
		}
	}

	if f.exts == nil {
		return true
	}
	_, ok := f.exts[strings.ToLower(Suffix(key))]
	return ok
}

// Restrictive reports whether the filter can reject entries at all.
// A nil or empty filter accepts everything.
func (f *Filter) Restrictive() bool {
	return f != nil && (f.exts != nil || len(f.excludes) > 0)
}

// NormalizeExtension lower-cases an extension and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// Suffix returns the file suffix of the key's final path segment: the
// substring from the last '.' onward, or "" when the segment has no dot or
// the dot is leading or trailing (hidden files and trailing-dot names have
// no suffix).
func Suffix(key string) string {
	base := key
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return base[i:]
}
