package domain

import "context"

// Normalizer converts an office document into the canonical PDF form
type Normalizer interface {
	// Normalize writes a PDF rendition of srcPath to dstPath
	Normalize(ctx context.Context, srcPath, dstPath string) error
}

// PageCounter reports the number of pages in a PDF
type PageCounter interface {
	Count(ctx context.Context, pdfPath string) (int, error)
}

// PageSplitter writes one single-page PDF per page.
// outputPattern contains a single %d verb that receives the 1-based page index.
type PageSplitter interface {
	Split(ctx context.Context, pdfPath, outputPattern string) error
}

// RenderOptions controls raster output of a page
type RenderOptions struct {
	DPI                  int
	PreserveTransparency bool
}

// Renderer rasterizes a single-page PDF into a PNG at imagePath
type Renderer interface {
	Render(ctx context.Context, pdfPath, imagePath string, opts RenderOptions) error
}

// TextExtractor returns the text layer of a single-page PDF
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// Downloader fetches a remote blob into a local file
type Downloader interface {
	Download(ctx context.Context, url, dstPath string) error
}

// Uploader sends one page artifact to the destination endpoint
type Uploader interface {
	Upload(ctx context.Context, url string, page PageUpload) error
}

// Notifier sends the single terminal callback of a job
type Notifier interface {
	Notify(ctx context.Context, url string, n Notification) error
}

// Workspace is the storage scope exclusively owned by one job.
// All stage inputs and outputs live under Root.
type Workspace interface {
	Root() string
	SourcePath() string
	CanonicalPath() string
	PagePattern() string
	PagePDFPath(index int) string
	PageImagePath(index int) string
	Remove() error
}

// WorkspaceProvider creates job workspaces namespaced by job id
type WorkspaceProvider interface {
	Create(jobID string) (Workspace, error)
}
