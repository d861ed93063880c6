//go:build !ocr

package ocr

import "context"

// Available reports whether OCR support was compiled in.
const Available = false

// Tesseract is unavailable without the ocr build tag.
type Tesseract struct{}

// NewTesseract always fails with ErrOCRNotEnabled.
func NewTesseract([]string) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

func (t *Tesseract) Lines(context.Context, []byte) ([]string, error) {
	return nil, ErrOCRNotEnabled
}
