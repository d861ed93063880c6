//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestTesseractStub(t *testing.T) {
	if _, err := NewTesseract([]string{"eng"}); !errors.Is(err, ErrOCRNotEnabled) {
		t.Fatalf("expected ErrOCRNotEnabled, got %v", err)
	}

	var engine *Tesseract
	if _, err := engine.Lines(context.Background(), nil); !errors.Is(err, ErrOCRNotEnabled) {
		t.Fatalf("expected ErrOCRNotEnabled, got %v", err)
	}
}
