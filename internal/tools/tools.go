package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spherical/slide-converter/internal/domain"
)

// Unoconv converts office documents to PDF with `unoconv -f pdf`
type Unoconv struct {
	Runner Runner
	Bin    string
}

// Normalize writes a PDF rendition of srcPath to dstPath
func (u *Unoconv) Normalize(ctx context.Context, srcPath, dstPath string) error {
	if _, err := u.Runner.Run(ctx, u.Bin, "-f", "pdf", "-o", dstPath, srcPath); err != nil {
		return err
	}
	return requireFile(dstPath)
}

// Soffice converts office documents to PDF with a headless LibreOffice
type Soffice struct {
	Runner Runner
	Bin    string
}

// Normalize converts srcPath next to dstPath and renames the result to dstPath
func (s *Soffice) Normalize(ctx context.Context, srcPath, dstPath string) error {
	outDir, err := filepath.Abs(filepath.Dir(dstPath))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for output: %w", err)
	}
	absSrc, err := filepath.Abs(srcPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for input: %w", err)
	}

	// A private profile per job avoids LibreOffice's profile lock between concurrent jobs.
	profileDir := filepath.Join(outDir, "soffice_user")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return fmt.Errorf("failed to create user installation directory: %w", err)
	}

	args := []string{
		"-env:UserInstallation=file://" + profileDir,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		absSrc,
	}
	if _, err := s.Runner.Run(ctx, s.Bin, args...); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(absSrc), filepath.Ext(absSrc))
	produced := filepath.Join(outDir, base+".pdf")
	if err := requireFile(produced); err != nil {
		return err
	}
	if produced == dstPath {
		return nil
	}
	return os.Rename(produced, dstPath)
}

// PDFInfo counts pages by parsing the "Pages:" line of pdfinfo
type PDFInfo struct {
	Runner Runner
	Bin    string
}

// Count returns the number of pages in pdfPath
func (p *PDFInfo) Count(ctx context.Context, pdfPath string) (int, error) {
	out, err := p.Runner.Run(ctx, p.Bin, pdfPath)
	if err != nil {
		return 0, err
	}
	return parsePageCount(out)
}

// parsePageCount extracts a non-negative integer from the "Pages:" line of pdfinfo output
func parsePageCount(out []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}

		value := strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("unparseable page count %q: %w", value, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative page count %d", n)
		}
		return n, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("no page count in pdfinfo output")
}

// PDFSeparate splits a PDF into single-page files with pdfseparate
type PDFSeparate struct {
	Runner Runner
	Bin    string
}

// Split writes one PDF per page using outputPattern. The tool runs inside the pattern's
// directory and only sees its base name, so the directory may contain '%'.
func (p *PDFSeparate) Split(ctx context.Context, pdfPath, outputPattern string) error {
	absPDF, err := filepath.Abs(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for input: %w", err)
	}
	_, err = p.Runner.RunIn(ctx, filepath.Dir(outputPattern), p.Bin, absPDF, filepath.Base(outputPattern))
	return err
}

// PDFToCairo renders a single-page PDF to PNG with pdftocairo
type PDFToCairo struct {
	Runner Runner
	Bin    string
}

// Render writes imagePath; -transp keeps the alpha channel, otherwise the page is opaque
func (p *PDFToCairo) Render(ctx context.Context, pdfPath, imagePath string, opts domain.RenderOptions) error {
	args := []string{"-singlefile", "-png", "-r", strconv.Itoa(opts.DPI)}
	if opts.PreserveTransparency {
		args = append(args, "-transp")
	}
	// pdftocairo appends the .png suffix itself
	args = append(args, pdfPath, strings.TrimSuffix(imagePath, ".png"))

	if _, err := p.Runner.Run(ctx, p.Bin, args...); err != nil {
		return err
	}
	return requireFile(imagePath)
}

// PDFToText extracts the text layer with pdftotext -layout
type PDFToText struct {
	Runner Runner
	Bin    string
}

// ExtractText returns the page text as printed on stdout
func (p *PDFToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	out, err := p.Runner.Run(ctx, p.Bin, "-layout", pdfPath, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("expected output %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("expected output %s is a directory", path)
	}
	return nil
}
