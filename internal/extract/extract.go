// Package extract reads the text and hyperlinks inside layout regions.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/pdfdoc"
	"github.com/spigell/arie/internal/resume"
)

// Document is the page access the extractor needs.
type Document interface {
	PageCount() int
	Text(page int, rect resume.Rect) (string, error)
	Links(page int) ([]pdfdoc.Annotation, error)
	Close() error
}

// Opener opens the document at path.
type Opener func(path string, logger *zap.Logger) (Document, error)

// OCR recovers the text of a single region from its pixels.
type OCR interface {
	ReadBox(ctx context.Context, path string, box resume.BoundingBox) (string, error)
}

// Extractor turns bounding boxes into extracted blocks.
type Extractor struct {
	open   Opener
	ocr    OCR
	logger *zap.Logger
}

// New returns an Extractor reading PDFs through pdfdoc. ocr may be nil, in
// which case regions without native text stay empty.
func New(ocr OCR, logger *zap.Logger) *Extractor {
	return NewWithOpener(OpenPDF, ocr, logger)
}

func NewWithOpener(open Opener, ocr OCR, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{open: open, ocr: ocr, logger: logger}
}

// OpenPDF opens path with pdfdoc.
func OpenPDF(path string, logger *zap.Logger) (Document, error) {
	doc, err := pdfdoc.Open(path, logger)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Extract returns one block per box, in input order.
func (e *Extractor) Extract(ctx context.Context, path string, boxes []resume.BoundingBox) ([]resume.ExtractedBlock, error) {
	doc, err := e.open(path, e.logger)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	blocks := make([]resume.ExtractedBlock, 0, len(boxes))
	ocrCalls := 0
	for i, box := range boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, usedOCR, err := e.extractBox(ctx, doc, path, box)
		if err != nil {
			return nil, fmt.Errorf("box %d (%s, page %d): %w", i, box.Label, box.Page, err)
		}
		if usedOCR {
			ocrCalls++
		}
		blocks = append(blocks, block)
	}

	e.logger.Debug("extracted regions",
		zap.Int("boxes", len(boxes)),
		zap.Int("ocr_fallbacks", ocrCalls),
	)

	return blocks, nil
}

func (e *Extractor) extractBox(ctx context.Context, doc Document, path string, box resume.BoundingBox) (resume.ExtractedBlock, bool, error) {
	if box.Page < 0 || box.Page >= doc.PageCount() {
		return resume.ExtractedBlock{}, false, fmt.Errorf("page %d out of range (document has %d pages)", box.Page, doc.PageCount())
	}

	rect := box.Rect()

	text, err := doc.Text(box.Page, rect)
	if err != nil {
		return resume.ExtractedBlock{}, false, fmt.Errorf("read text: %w", err)
	}

	usedOCR := false
	if strings.TrimSpace(text) == "" && e.ocr != nil {
		usedOCR = true
		text, err = e.ocr.ReadBox(ctx, path, box)
		if err != nil {
			return resume.ExtractedBlock{}, true, fmt.Errorf("ocr: %w", err)
		}
	}

	annotations, err := doc.Links(box.Page)
	if err != nil {
		return resume.ExtractedBlock{}, usedOCR, fmt.Errorf("read links: %w", err)
	}

	return resume.ExtractedBlock{
		Label: box.Label,
		Text:  strings.TrimSpace(text),
		URLs:  linksInside(annotations, rect),
		Page:  box.Page,
	}, usedOCR, nil
}

// linksInside keeps the annotations with a URI fully contained in rect.
func linksInside(annotations []pdfdoc.Annotation, rect resume.Rect) []resume.LinkItem {
	links := make([]resume.LinkItem, 0)
	for _, annot := range annotations {
		if !rect.Contains(annot.Rect) {
			continue
		}
		uri := strings.TrimSpace(annot.URI)
		if uri == "" {
			continue
		}
		links = append(links, resume.LinkItem{Label: LinkLabel(uri), URL: uri})
	}
	return links
}
