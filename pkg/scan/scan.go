// Package scan implements the statistics pass over a bucket prefix.
//
// The scanner consumes the provider's paginated listing one page at a time
// and folds every entry into per-folder and run-wide counters. It is
// strictly sequential: one in-flight List call, no caching, no retries.
// A listing failure aborts the pass with no partial result.
package scan

import (
	"context"
	"strings"

	"github.com/clouddepot/s3scope/pkg/match"
	"github.com/clouddepot/s3scope/pkg/provider"
)

// FolderStats accumulates counters for one folder (parent path).
//
// Counters only ever increase while the listing is consumed and are
// read-only once the scan completes.
type FolderStats struct {
	// Files is the count of accepted entries.
	Files int64

	// Bytes is the cumulative size of accepted entries.
	Bytes int64

	// Ignored is the count of entries rejected by the filter.
	Ignored int64
}

// Totals mirrors the component-wise sum across all folders.
type Totals struct {
	Files   int64
	Bytes   int64
	Ignored int64
}

// Result holds the outcome of a completed scan.
//
// Invariant: Totals equals the sum of Files/Bytes/Ignored over all entries
// of Folders.
type Result struct {
	// Folders maps folder key (parent path) to its accumulated stats.
	// Folders are created lazily on first reference and never removed.
	Folders map[string]*FolderStats

	// Totals aggregates across all folders.
	Totals Totals
}

// ProgressFunc observes scan progress. It is invoked synchronously after
// each accepted entry with the running count of accepted files. It must not
// block and has no influence on the result.
type ProgressFunc func(counted int64)

// Scanner executes the statistics pass.
//
// Scanner is safe for single use only. Create a new Scanner for each pass.
type Scanner struct {
	provider provider.Provider
	filter   *match.Filter
	progress ProgressFunc
}

// New creates a scanner over the given provider. A nil filter accepts every
// entry.
func New(p provider.Provider, f *match.Filter) *Scanner {
	return &Scanner{provider: p, filter: f}
}

// WithProgress sets an optional progress observer.
// Returns the scanner for method chaining.
func (s *Scanner) WithProgress(fn ProgressFunc) *Scanner {
	s.progress = fn
	return s
}

// Run consumes the full listing under prefix and returns the folded stats.
//
// Entries are processed in arrival order. Keys ending in "/" are directory
// markers and touch no counter. Rejected entries increment the Ignored
// counters only; accepted entries increment Files/Bytes.
//
// Any error from the listing provider propagates immediately and no partial
// result is returned.
func (s *Scanner) Run(ctx context.Context, prefix string) (*Result, error) {
	res := &Result{Folders: make(map[string]*FolderStats)}

	var continuationToken string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.provider.List(ctx, provider.ListOptions{
			Prefix:            prefix,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Objects {
			s.fold(res, obj)
		}

		if !page.IsTruncated || page.ContinuationToken == "" {
			break
		}
		continuationToken = page.ContinuationToken
	}

	return res, nil
}

// fold classifies one entry and updates folder and run counters.
func (s *Scanner) fold(res *Result, obj provider.ObjectSummary) {
	// Directory markers contribute to no counter.
	if strings.HasSuffix(obj.Key, "/") {
		return
	}

	folder := res.folder(FolderKey(obj.Key))

	if !s.filter.Match(obj.Key) {
		folder.Ignored++
		res.Totals.Ignored++
		return
	}

	folder.Files++
	folder.Bytes += obj.Size
	res.Totals.Files++
	res.Totals.Bytes += obj.Size

	if s.progress != nil {
		s.progress(res.Totals.Files)
	}
}

// folder returns the stats bucket for key, creating it zero-valued on first
// reference.
func (r *Result) folder(key string) *FolderStats {
	if st, ok := r.Folders[key]; ok {
		return st
	}
	st := &FolderStats{}
	r.Folders[key] = st
	return st
}

// FolderKey returns the grouping identifier for a key: its parent path, with
// "." for top-level keys. Plain string-prefix grouping; no normalization
// beyond dropping the final path segment.
func FolderKey(key string) string {
	i := strings.LastIndexByte(key, '/')
	if i < 0 {
		return "."
	}
	if i == 0 {
		return "/"
	}
	return key[:i]
}
