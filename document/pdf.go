// Package document assembles captured slide images into a single PDF.
package document

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrEmptyCaptureSet is returned when there are no images to assemble. No
// document is written in that case.
var ErrEmptyCaptureSet = errors.New("no captures to assemble")

// Assembler writes image files into a PDF, one page per image, with each page
// sized to its image.
type Assembler struct {
	// MaxWidth downscales wider images before import. Zero keeps full resolution.
	MaxWidth int
	logger   *zap.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(maxWidth int, logger *zap.Logger) *Assembler {
	return &Assembler{MaxWidth: maxWidth, logger: logger}
}

// Path returns the PDF path for a video: the video base name with a .pdf
// extension, inside dir.
func Path(dir, videoPath string) string {
	base := filepath.Base(videoPath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
}

// Assemble writes files, in the given order, to out. An existing out is replaced.
//
// Arguments:
//   - ctx: Cancels between pages.
//   - files: The image paths in page order.
//   - out: The PDF path.
//
// Returns:
//   - error: ErrEmptyCaptureSet for an empty list, or an import error.
func (a *Assembler) Assemble(ctx context.Context, files []string, out string) error {
	if len(files) == 0 {
		return ErrEmptyCaptureSet
	}

	pages := files
	if a.MaxWidth > 0 {
		tmp, err := os.MkdirTemp("", "go-slides-pages-")
		if err != nil {
			return errors.Wrap(err, "create page directory")
		}
		defer os.RemoveAll(tmp)

		pages, err = a.downscale(ctx, files, tmp)
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// pdfcpu appends to an existing file, start from scratch instead.
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "replace %s", out)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full

	a.logger.Info("converting images to pdf", zap.Int("pages", len(pages)), zap.String("path", out))
	if err := api.ImportImagesFile(pages, out, imp, model.NewDefaultConfiguration()); err != nil {
		return errors.Wrapf(err, "import images into %s", out)
	}
	return nil
}

// downscale writes a resized copy of every image wider than MaxWidth into dir
// and returns the page list. Narrow images are used in place.
func (a *Assembler) downscale(ctx context.Context, files []string, dir string) ([]string, error) {
	pages := make([]string, 0, len(files))
	for i, path := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page, err := a.downscaleFile(path, dir, i)
		if err != nil {
			return nil, errors.Wrapf(err, "downscale %s", path)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (a *Assembler) downscaleFile(path, dir string, index int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}
	if img.Bounds().Dx() <= a.MaxWidth {
		return path, nil
	}

	small := resize.Resize(uint(a.MaxWidth), 0, img, resize.Lanczos3)

	// Index prefix keeps names unique and in order.
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	page := filepath.Join(dir, fmt.Sprintf("%04d-%s.png", index, stem))
	out, err := os.Create(page)
	if err != nil {
		return "", err
	}
	if err := png.Encode(out, small); err != nil {
		out.Close()
		return "", err
	}
	return page, out.Close()
}
