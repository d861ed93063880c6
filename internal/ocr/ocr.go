// Package ocr recovers the text of a single layout region from its pixels.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/spigell/arie/internal/resume"
)

const (
	ProviderTesseract = "tesseract"

	// MinScale is the lowest upscale factor a region is rendered at.
	MinScale = 3.0
)

// ErrOCRNotEnabled is returned when the binary was built without the ocr
// build tag. Rebuild with -tags ocr to enable Tesseract.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Rasterizer renders rect of the zero-based page at scale pixels per point.
type Rasterizer interface {
	Render(ctx context.Context, path string, page int, rect resume.Rect, scale float64) (image.Image, error)
}

// Engine returns the text lines it recognizes in a PNG image, in reading
// order.
type Engine interface {
	Lines(ctx context.Context, png []byte) ([]string, error)
}

// Fallback reads regions that carry no native text.
type Fallback struct {
	rasterizer Rasterizer
	engine     Engine
	scale      float64
	logger     *zap.Logger
}

func New(rasterizer Rasterizer, engine Engine, scale float64, logger *zap.Logger) *Fallback {
	if scale < MinScale {
		scale = MinScale
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fallback{
		rasterizer: rasterizer,
		engine:     engine,
		scale:      scale,
		logger:     logger,
	}
}

// Scale returns the effective upscale factor.
func (f *Fallback) Scale() float64 { return f.scale }

// ReadBox renders exactly box and returns the recognized text. A region
// with no detections yields "".
func (f *Fallback) ReadBox(ctx context.Context, path string, box resume.BoundingBox) (string, error) {
	rect := box.Rect()
	if rect.Empty() {
		return "", nil
	}

	img, err := f.rasterizer.Render(ctx, path, box.Page, rect, f.scale)
	if err != nil {
		return "", fmt.Errorf("render region: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, toRGB(img)); err != nil {
		return "", fmt.Errorf("encode region: %w", err)
	}

	lines, err := f.engine.Lines(ctx, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("recognize region: %w", err)
	}

	text := joinLines(lines)

	f.logger.Debug("ocr region",
		zap.Int("page", box.Page),
		zap.String("label", box.Label),
		zap.Int("width_px", img.Bounds().Dx()),
		zap.Int("height_px", img.Bounds().Dy()),
		zap.Int("lines", len(lines)),
	)

	return text, nil
}

func joinLines(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// toRGB drops alpha and palette information, which the engine handles poorly.
func toRGB(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}
