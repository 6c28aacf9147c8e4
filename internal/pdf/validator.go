package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spherical/slide-converter/internal/domain"
)

const (
	minDPI = 36
	maxDPI = 600
)

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for page PDFs
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath checks that path is a readable regular file starting with the PDF header.
// Workspace files carry no reliable extension, so the header is checked instead.
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}
	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer file.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(file, header); err != nil || !bytes.Equal(header, pdfMagic) {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF: %s", path), nil)
	}

	return nil
}

// ValidateDPI validates the render resolution
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < minDPI || dpi > maxDPI {
		return domain.ValidationError(fmt.Sprintf("dpi must be between %d and %d, got %d", minDPI, maxDPI, dpi), nil)
	}
	return nil
}
