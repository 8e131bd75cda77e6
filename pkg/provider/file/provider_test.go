package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddepot/s3scope/pkg/provider"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()
	base := t.TempDir()

	files := map[string]string{
		"data/a/f1.nc":  "f1",
		"data/a/f2.tar": "f2f2",
		"data/b/f3.nc":  "f3f3f3",
		"other/x.txt":   "x",
	}
	for rel, body := range files {
		full := filepath.Join(base, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}

	p, err := New(Config{BaseDir: base})
	require.NoError(t, err)
	return p, base
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{BaseDir: "  "}.Validate())
	assert.NoError(t, Config{BaseDir: "/tmp"}.Validate())
}

func TestList_PrefixScoping(t *testing.T) {
	p, _ := newTestProvider(t)

	res, err := p.List(context.Background(), provider.ListOptions{Prefix: "data/"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 3)
	assert.False(t, res.IsTruncated)

	keys := make([]string, 0, len(res.Objects))
	for _, o := range res.Objects {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"data/a/f1.nc", "data/a/f2.tar", "data/b/f3.nc"}, keys)
}

func TestList_Pagination(t *testing.T) {
	p, _ := newTestProvider(t)

	var keys []string
	var token string
	pages := 0
	for {
		res, err := p.List(context.Background(), provider.ListOptions{
			Prefix:            "data/",
			ContinuationToken: token,
			MaxKeys:           2,
		})
		require.NoError(t, err)
		pages++
		for _, o := range res.Objects {
			keys = append(keys, o.Key)
		}
		if !res.IsTruncated {
			break
		}
		token = res.ContinuationToken
	}

	assert.Equal(t, 2, pages)
	assert.Equal(t, []string{"data/a/f1.nc", "data/a/f2.tar", "data/b/f3.nc"}, keys)
}

func TestList_ContextCancellation(t *testing.T) {
	p, _ := newTestProvider(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.List(ctx, provider.ListOptions{Prefix: "data/"})
	require.ErrorIs(t, err, context.Canceled)

	_, _, err = p.GetObject(ctx, "data/a/f1.nc")
	require.ErrorIs(t, err, context.Canceled)
}

func TestList_MissingPrefixIsEmpty(t *testing.T) {
	p, _ := newTestProvider(t)

	res, err := p.List(context.Background(), provider.ListOptions{Prefix: "absent/"})
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
}

func TestGetObject(t *testing.T) {
	p, _ := newTestProvider(t)

	body, size, err := p.GetObject(context.Background(), "data/b/f3.nc")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	assert.Equal(t, int64(6), size)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "f3f3f3", string(got))
}

func TestGetObject_NotFound(t *testing.T) {
	p, _ := newTestProvider(t)

	_, _, err := p.GetObject(context.Background(), "data/missing.nc")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestFullPath_RejectsTraversal(t *testing.T) {
	p, base := newTestProvider(t)

	got, err := p.fullPath("data/../other/x.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "other", "x.txt"), got)

	// Leading parent traversal is clamped inside the base dir.
	got, err = p.fullPath("../outside")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "outside"), got)
}
