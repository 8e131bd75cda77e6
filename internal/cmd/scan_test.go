package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransferFlags(t *testing.T) {
	tests := []struct {
		name     string
		download bool
		dest     string
		wantErr  string
	}{
		{name: "neither", download: false, dest: "", wantErr: ""},
		{name: "both", download: true, dest: "/tmp/mirror", wantErr: ""},
		{name: "download without dest", download: true, dest: "", wantErr: "--download requires --dest"},
		{name: "dest without download", download: false, dest: "/tmp/mirror", wantErr: "--dest requires --download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTransferFlags(tt.download, tt.dest)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestScanExtensionsFlagParsing(t *testing.T) {
	t.Cleanup(func() {
		scanPrefix = ""
		scanExtensions = nil
		scanDetails = false
	})

	// Comma-separated and repeated forms both yield the full list.
	require.NoError(t, scanCmd.ParseFlags([]string{"--prefix", "data/", "--extensions", ".nc,.tar", "--details"}))
	assert.Equal(t, []string{".nc", ".tar"}, scanExtensions)
	assert.Empty(t, scanCmd.Flags().Args())

	scanExtensions = nil
	require.NoError(t, scanCmd.ParseFlags([]string{"-e", ".nc", "-e", ".tar"}))
	assert.Equal(t, []string{".nc", ".tar"}, scanExtensions)
}

func TestScanRejectsPositionalArgs(t *testing.T) {
	// A space-separated extension list must fail loudly, not silently
	// drop everything after the first value.
	require.NotNil(t, scanCmd.Args)
	assert.Error(t, scanCmd.Args(scanCmd, []string{".tar"}))
	assert.NoError(t, scanCmd.Args(scanCmd, nil))
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "data/", normalizePrefix("data"))
	assert.Equal(t, "data/", normalizePrefix("data/"))
	assert.Equal(t, "a/b/c/", normalizePrefix("a/b/c"))
	assert.Equal(t, "/", normalizePrefix(""))
}
