//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Available reports whether OCR support was compiled in.
const Available = true

// Tesseract recognizes text lines with gosseract. A fresh client is used
// per call since gosseract clients are not safe for concurrent use.
type Tesseract struct {
	languages []string
}

func NewTesseract(languages []string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	c := gosseract.NewClient()
	defer c.Close()
	if err := c.SetLanguage(languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}

	return &Tesseract{languages: languages}, nil
}

func (t *Tesseract) Lines(ctx context.Context, png []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}

	lines := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if text := strings.TrimSpace(b.Word); text != "" {
			lines = append(lines, text)
		}
	}

	return lines, nil
}
