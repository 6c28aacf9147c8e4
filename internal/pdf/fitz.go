// Package pdf implements page counting, rendering and text extraction in-process with MuPDF.
package pdf

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/slide-converter/internal/domain"
)

// Engine opens PDFs with go-fitz. It satisfies PageCounter, Renderer and TextExtractor.
type Engine struct {
	validator *Validator
}

// NewEngine creates a MuPDF-backed engine
func NewEngine() *Engine {
	return &Engine{validator: NewValidator()}
}

// Count returns the number of pages in pdfPath
func (e *Engine) Count(ctx context.Context, pdfPath string) (int, error) {
	var n int
	err := e.withDocument(ctx, pdfPath, func(doc *fitz.Document) error {
		n = doc.NumPage()
		return nil
	})
	return n, err
}

// Render rasterizes the first page of pdfPath to a PNG at imagePath
func (e *Engine) Render(ctx context.Context, pdfPath, imagePath string, opts domain.RenderOptions) error {
	if err := e.validator.ValidateDPI(opts.DPI); err != nil {
		return err
	}

	return e.withDocument(ctx, pdfPath, func(doc *fitz.Document) error {
		if doc.NumPage() == 0 {
			return fmt.Errorf("document has no pages")
		}

		img, err := doc.ImageDPI(0, float64(opts.DPI))
		if err != nil {
			return fmt.Errorf("rasterize page: %w", err)
		}

		var out image.Image = img
		if !opts.PreserveTransparency {
			out = flatten(img)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		return writePNG(imagePath, out)
	})
}

// ExtractText returns the text layer of the first page of pdfPath
func (e *Engine) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	var text string
	err := e.withDocument(ctx, pdfPath, func(doc *fitz.Document) error {
		if doc.NumPage() == 0 {
			return nil
		}
		t, err := doc.Text(0)
		if err != nil {
			return fmt.Errorf("extract text: %w", err)
		}
		text = t
		return nil
	})
	return text, err
}

func (e *Engine) withDocument(ctx context.Context, pdfPath string, fn func(doc *fitz.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.validator.ValidatePDFPath(pdfPath); err != nil {
		return err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", pdfPath, err)
	}
	defer doc.Close()

	return fn(doc)
}

// flatten composites img over an opaque white background
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
