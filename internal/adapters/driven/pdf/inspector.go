// Package pdf provides local PDF preflight using pdfcpu.
// It catches files the chunking service would reject before any bytes
// are uploaded.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// Ensure Inspector implements the interface.
var _ driven.DocumentInspector = (*Inspector)(nil)

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// Inspector validates PDF files with pdfcpu.
type Inspector struct{}

// NewInspector creates a new PDF inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect checks that path names a readable, non-empty PDF.
// Every rejection wraps domain.ErrNotPDF.
func (i *Inspector) Inspect(ctx context.Context, path string) (*domain.PDFInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, fmt.Errorf("%w: %s does not have a .pdf extension", domain.ErrNotPDF, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrNotPDF, name)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrNotPDF, name)
	}

	if err := checkMagic(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNotPDF, name, err)
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrNotPDF, name, err)
	}

	result := &domain.PDFInfo{
		PageCount: pdfCtx.PageCount,
		Encrypted: pdfCtx.Encrypt != nil,
		Size:      info.Size(),
	}

	logger.Debug("inspected %s: pages=%d encrypted=%t size=%d",
		name, result.PageCount, result.Encrypted, result.Size)

	return result, nil
}

// checkMagic reads the file header without loading the whole document.
func checkMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header, pdfMagic) {
		return fmt.Errorf("missing %q header", pdfMagic)
	}
	return nil
}
