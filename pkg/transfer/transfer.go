// Package transfer implements the download pass: mirroring accepted objects
// under a prefix into a local directory tree.
package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/clouddepot/s3scope/pkg/match"
	"github.com/clouddepot/s3scope/pkg/provider"
)

// Totals counts what the transfer pass actually wrote.
type Totals struct {
	// Files is the number of objects written to disk.
	Files int64

	// Bytes is the cumulative listed size of written objects.
	Bytes int64
}

// ProgressFunc observes transfer progress. It is invoked synchronously after
// each written object with that object's listed size and the running file
// count. It must not block and has no influence on the result.
type ProgressFunc func(files, bytes int64)

// Transfer executes the download pass.
//
// The pass issues a fresh listing for the prefix; it does not reuse the scan
// pass's enumeration, so the two passes may observe different bucket
// contents if the listing changes between them. That race is tolerated and
// intentional.
//
// Transfer is safe for single use only. Create a new Transfer for each pass.
type Transfer struct {
	provider provider.Provider
	filter   *match.Filter
	destRoot string
	progress ProgressFunc
}

// New creates a transfer pass writing under destRoot. A nil filter accepts
// every entry.
func New(p provider.Provider, f *match.Filter, destRoot string) *Transfer {
	return &Transfer{provider: p, filter: f, destRoot: destRoot}
}

// WithProgress sets an optional progress observer.
// Returns the transfer for method chaining.
func (t *Transfer) WithProgress(fn ProgressFunc) *Transfer {
	t.progress = fn
	return t
}

// Run downloads every accepted (non-marker, non-filtered) object under
// prefix to destRoot/<key>, creating intermediate directories as needed and
// overwriting existing files.
//
// A fetch or write failure for any object aborts the pass immediately: no
// skip-and-continue, no retry. On error the returned Totals reflect what was
// written before the failure; callers must not present them as a completed
// result.
func (t *Transfer) Run(ctx context.Context, prefix string) (*Totals, error) {
	totals := &Totals{}

	var continuationToken string
	for {
		if err := ctx.Err(); err != nil {
			return totals, err
		}

		page, err := t.provider.List(ctx, provider.ListOptions{
			Prefix:            prefix,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return totals, err
		}

		for _, obj := range page.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			if !t.filter.Match(obj.Key) {
				continue
			}

			if err := t.download(ctx, obj.Key); err != nil {
				return totals, err
			}

			totals.Files++
			totals.Bytes += obj.Size
			if t.progress != nil {
				t.progress(totals.Files, obj.Size)
			}
		}

		if !page.IsTruncated || page.ContinuationToken == "" {
			break
		}
		continuationToken = page.ContinuationToken
	}

	return totals, nil
}

// download fetches one object and writes it to its mirrored local path.
//
// The object is written to a temp file in the destination directory and
// renamed into place, so overwrite is atomic and a failed fetch leaves no
// partial file behind.
func (t *Transfer) download(ctx context.Context, key string) error {
	dest, err := localPath(t.destRoot, key)
	if err != nil {
		return err
	}

	// MkdirAll is idempotent; an already existing directory is not an error.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "s3scope-dl-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := t.fetch(ctx, key, tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("rename into %s: %w", dest, err)
	}
	return nil
}

// fetch retrieves the object content into f using the best capability the
// provider offers.
func (t *Transfer) fetch(ctx context.Context, key string, f *os.File) error {
	switch src := t.provider.(type) {
	case provider.ObjectDownloader:
		_, err := src.DownloadObject(ctx, key, f)
		return err
	case provider.ObjectGetter:
		body, _, err := src.GetObject(ctx, key)
		if err != nil {
			return err
		}
		defer func() { _ = body.Close() }()
		if _, err := io.Copy(f, body); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return nil
	default:
		return fmt.Errorf("provider %T supports no download capability", t.provider)
	}
}

// localPath maps an object key onto the destination root, preserving the
// remote hierarchy and rejecting traversal outside the root.
func localPath(root, key string) (string, error) {
	clean := path.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
