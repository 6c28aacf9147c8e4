// Package storage provides per-job working directories.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/slide-converter/internal/domain"
)

const (
	sourceFileName    = "presentation"
	canonicalFileName = "pdf.pdf"
	pageFilePattern   = "%d.pdf"
)

// DirProvider creates job workspaces as subdirectories of BaseDir
type DirProvider struct {
	BaseDir string
}

// NewDirProvider creates a provider rooted at baseDir
func NewDirProvider(baseDir string) *DirProvider {
	return &DirProvider{BaseDir: baseDir}
}

// Create makes a fresh directory namespaced by the job id
func (p *DirProvider) Create(jobID string) (domain.Workspace, error) {
	if strings.TrimSpace(jobID) == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, fmt.Errorf("invalid job id %q", jobID)
	}

	root := filepath.Join(p.BaseDir, jobID)
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("workspace %s already exists", root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &DirWorkspace{root: root}, nil
}

// DirWorkspace is a workspace backed by one directory
type DirWorkspace struct {
	root string
}

// Root returns the workspace directory
func (w *DirWorkspace) Root() string {
	return w.root
}

// SourcePath is where the downloaded document is written
func (w *DirWorkspace) SourcePath() string {
	return filepath.Join(w.root, sourceFileName)
}

// CanonicalPath is the normalized PDF every page stage reads
func (w *DirWorkspace) CanonicalPath() string {
	return filepath.Join(w.root, canonicalFileName)
}

// PagePattern is the split output pattern, one %d per page. Only its base name is a pattern.
func (w *DirWorkspace) PagePattern() string {
	return filepath.Join(w.root, pageFilePattern)
}

// PagePDFPath returns the single-page PDF for a 1-based index
func (w *DirWorkspace) PagePDFPath(index int) string {
	return filepath.Join(w.root, fmt.Sprintf(pageFilePattern, index))
}

// PageImagePath returns the rendered PNG for a 1-based index
func (w *DirWorkspace) PageImagePath(index int) string {
	return filepath.Join(w.root, fmt.Sprintf("%d.png", index))
}

// Remove deletes the workspace directory and everything in it
func (w *DirWorkspace) Remove() error {
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.root, err)
	}
	return nil
}
