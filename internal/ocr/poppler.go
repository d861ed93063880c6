package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/spigell/arie/internal/resume"
)

const defaultPdftoppm = "pdftoppm"

// Poppler renders regions with poppler's pdftoppm.
type Poppler struct {
	binary string
}

// NewPoppler checks that the pdftoppm binary can be found.
func NewPoppler(binary string) (*Poppler, error) {
	if binary == "" {
		binary = defaultPdftoppm
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not found: %w", err)
	}

	return &Poppler{binary: resolved}, nil
}

func (p *Poppler) Render(ctx context.Context, path string, page int, rect resume.Rect, scale float64) (image.Image, error) {
	dir, err := os.MkdirTemp("", "arie-ocr-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "region")
	cmd := exec.CommandContext(ctx, p.binary, renderArgs(path, prefix, page, rect, scale)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page+1, err, out)
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered region: %w", err)
	}

	return img, nil
}

// renderArgs crops rect in pixels at 72*scale DPI, so one point becomes
// scale pixels.
func renderArgs(path, prefix string, page int, rect resume.Rect, scale float64) []string {
	dpi := 72 * scale
	x := int(math.Floor(rect.X0 * scale))
	y := int(math.Floor(rect.Y0 * scale))
	w := int(math.Ceil(rect.X1*scale)) - x
	h := int(math.Ceil(rect.Y1*scale)) - y

	return []string{
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-x", strconv.Itoa(x),
		"-y", strconv.Itoa(y),
		"-W", strconv.Itoa(w),
		"-H", strconv.Itoa(h),
		"-f", strconv.Itoa(page + 1),
		"-l", strconv.Itoa(page + 1),
		"-png",
		"-singlefile",
		path,
		prefix,
	}
}
