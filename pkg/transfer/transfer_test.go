package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddepot/s3scope/pkg/match"
	"github.com/clouddepot/s3scope/pkg/provider"
	"github.com/clouddepot/s3scope/pkg/provider/file"
)

// getterProvider serves a scripted listing in one page and object content
// from an in-memory map. failKey makes GetObject error for that key.
type getterProvider struct {
	objects []provider.ObjectSummary
	content map[string]string
	failKey string
}

func (p *getterProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	_ = ctx
	_ = opts
	return &provider.ListResult{Objects: p.objects}, nil
}

func (p *getterProvider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	if key == p.failKey {
		return nil, 0, &provider.ProviderError{Op: "GetObject", Provider: provider.ProviderS3, Key: key, Err: provider.ErrNotFound}
	}
	body, ok := p.content[key]
	if !ok {
		return nil, 0, &provider.ProviderError{Op: "GetObject", Provider: provider.ProviderS3, Key: key, Err: provider.ErrNotFound}
	}
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

func (p *getterProvider) Close() error { return nil }

func mustFilter(t *testing.T, cfg match.Config) *match.Filter {
	t.Helper()
	f, err := match.New(cfg)
	require.NoError(t, err)
	return f
}

func TestTransfer_WritesCountedEntries(t *testing.T) {
	prov := &getterProvider{
		objects: []provider.ObjectSummary{
			{Key: "data/a/f1.nc", Size: 7},
			{Key: "data/a/f2.tar", Size: 200},
			{Key: "data/b/", Size: 0},
			{Key: "data/b/f3.nc", Size: 5},
		},
		content: map[string]string{
			"data/a/f1.nc": "f1-body",
			"data/b/f3.nc": "f3-bo",
		},
	}
	filter := mustFilter(t, match.Config{Extensions: []string{".nc"}})
	dest := t.TempDir()

	totals, err := New(prov, filter, dest).Run(context.Background(), "data/")
	require.NoError(t, err)

	assert.Equal(t, &Totals{Files: 2, Bytes: 12}, totals)

	got, err := os.ReadFile(filepath.Join(dest, "data", "a", "f1.nc"))
	require.NoError(t, err)
	assert.Equal(t, "f1-body", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "data", "b", "f3.nc"))
	require.NoError(t, err)
	assert.Equal(t, "f3-bo", string(got))

	// Filtered entry and directory marker never touch disk.
	_, err = os.Stat(filepath.Join(dest, "data", "a", "f2.tar"))
	assert.True(t, os.IsNotExist(err))
}

func TestTransfer_OverwritesExisting(t *testing.T) {
	prov := &getterProvider{
		objects: []provider.ObjectSummary{{Key: "d/f.nc", Size: 3}},
		content: map[string]string{"d/f.nc": "new"},
	}
	dest := t.TempDir()
	target := filepath.Join(dest, "d", "f.nc")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("stale content"), 0o644))

	totals, err := New(prov, nil, dest).Run(context.Background(), "d/")
	require.NoError(t, err)
	assert.Equal(t, &Totals{Files: 1, Bytes: 3}, totals)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestTransfer_FetchErrorAbortsPass(t *testing.T) {
	prov := &getterProvider{
		objects: []provider.ObjectSummary{
			{Key: "d/ok.nc", Size: 2},
			{Key: "d/bad.nc", Size: 2},
			{Key: "d/never.nc", Size: 2},
		},
		content: map[string]string{
			"d/ok.nc":    "ok",
			"d/never.nc": "no",
		},
		failKey: "d/bad.nc",
	}
	dest := t.TempDir()

	totals, err := New(prov, nil, dest).Run(context.Background(), "d/")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))

	// Progress before the failure is reported, nothing after it.
	assert.Equal(t, &Totals{Files: 1, Bytes: 2}, totals)
	_, statErr := os.Stat(filepath.Join(dest, "d", "never.nc"))
	assert.True(t, os.IsNotExist(statErr))

	// The failed fetch leaves no partial file behind.
	entries, readErr := os.ReadDir(filepath.Join(dest, "d"))
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.nc", entries[0].Name())
}

func TestTransfer_FromFileProvider(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data", "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "a", "one.nc"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "a", "two.nc"), []byte("twotwo"), 0o644))

	prov, err := file.New(file.Config{BaseDir: src})
	require.NoError(t, err)

	dest := t.TempDir()
	totals, err := New(prov, nil, dest).Run(context.Background(), "data/")
	require.NoError(t, err)

	assert.Equal(t, &Totals{Files: 2, Bytes: 9}, totals)
	got, err := os.ReadFile(filepath.Join(dest, "data", "a", "two.nc"))
	require.NoError(t, err)
	assert.Equal(t, "twotwo", string(got))
}

func TestTransfer_ProviderWithoutDownloadCapability(t *testing.T) {
	prov := listOnlyProvider{objects: []provider.ObjectSummary{{Key: "d/f", Size: 1}}}
	_, err := New(prov, nil, t.TempDir()).Run(context.Background(), "d/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download capability")
}

type listOnlyProvider struct {
	objects []provider.ObjectSummary
}

func (p listOnlyProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	return &provider.ListResult{Objects: p.objects}, nil
}

func (p listOnlyProvider) Close() error { return nil }

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "data/a/f.nc", want: filepath.Join("root", "data", "a", "f.nc")},
		{name: "dot segments collapsed", key: "data/./a/f.nc", want: filepath.Join("root", "data", "a", "f.nc")},
		{name: "parent traversal clamped", key: "data/../../f.nc", want: filepath.Join("root", "f.nc")},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localPath("root", tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
