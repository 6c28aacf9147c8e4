package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirProvider_Create(t *testing.T) {
	base := t.TempDir()
	provider := NewDirProvider(base)

	ws, err := provider.Create("job-1")
	require.NoError(t, err)

	root := filepath.Join(base, "job-1")
	assert.Equal(t, root, ws.Root())
	assert.DirExists(t, root)

	assert.Equal(t, filepath.Join(root, "presentation"), ws.SourcePath())
	assert.Equal(t, filepath.Join(root, "pdf.pdf"), ws.CanonicalPath())
	assert.Equal(t, filepath.Join(root, "%d.pdf"), ws.PagePattern())
	assert.Equal(t, filepath.Join(root, "3.pdf"), ws.PagePDFPath(3))
	assert.Equal(t, filepath.Join(root, "12.png"), ws.PageImagePath(12))
}

func TestDirWorkspace_PercentInBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "jobs%dtmp")
	ws, err := NewDirProvider(base).Create("job-1")
	require.NoError(t, err)

	root := filepath.Join(base, "job-1")
	assert.Equal(t, filepath.Join(root, "2.pdf"), ws.PagePDFPath(2))
	assert.Equal(t, filepath.Join(root, "%d.pdf"), ws.PagePattern())
	assert.Equal(t, filepath.Join(root, "2.png"), ws.PageImagePath(2))
}

func TestDirProvider_CreateIsolatesJobs(t *testing.T) {
	provider := NewDirProvider(t.TempDir())

	a, err := provider.Create("job-a")
	require.NoError(t, err)
	b, err := provider.Create("job-b")
	require.NoError(t, err)
	assert.NotEqual(t, a.Root(), b.Root())

	_, err = provider.Create("job-a")
	assert.Error(t, err, "an existing workspace must never be shared")
}

func TestDirProvider_CreateRejectsBadIDs(t *testing.T) {
	provider := NewDirProvider(t.TempDir())

	for _, id := range []string{"", " ", "..", "a/b", `a\b`} {
		_, err := provider.Create(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestDirWorkspace_Remove(t *testing.T) {
	provider := NewDirProvider(t.TempDir())
	ws, err := provider.Create("job-1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ws.PagePDFPath(1), []byte("%PDF"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(ws.Root(), "soffice_user"), 0o755))

	require.NoError(t, ws.Remove())
	assert.NoDirExists(t, ws.Root())

	assert.NoError(t, ws.Remove(), "removing twice is harmless")
}
