// Package pipeline runs the resume extraction phases over one document.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/pdfdoc"
	"github.com/spigell/arie/internal/resume"
)

const (
	PhaseInput   = "input"
	PhaseLayout  = "layout"
	PhaseExtract = "extract"
	PhaseParse   = "parse"

	// headerWindow is how far into the file the %PDF- marker may appear.
	headerWindow = 1024
)

var pdfMagic = []byte("%PDF-")

// ErrNotPDF is returned for inputs without a PDF header.
var ErrNotPDF = errors.New("input is not a PDF document")

type LayoutDetector interface {
	Detect(ctx context.Context, path string) ([]resume.BoundingBox, error)
}

type RegionExtractor interface {
	Extract(ctx context.Context, path string, boxes []resume.BoundingBox) ([]resume.ExtractedBlock, error)
}

type ProfileParser interface {
	Parse(ctx context.Context, blocks []resume.ExtractedBlock) (*resume.Profile, error)
}

// Pipeline owns one set of phase components. It handles one document at a
// time; use a Pool for concurrent documents.
type Pipeline struct {
	detector  LayoutDetector
	extractor RegionExtractor
	parser    ProfileParser
	logger    *zap.Logger
}

func New(detector LayoutDetector, extractor RegionExtractor, parser ProfileParser, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		detector:  detector,
		extractor: extractor,
		parser:    parser,
		logger:    logger,
	}
}

// Run processes the PDF at path. No partial profile is returned on failure.
func (p *Pipeline) Run(ctx context.Context, path string) (*resume.Profile, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String(logger.FieldDocument, path))
	start := time.Now()

	var boxes []resume.BoundingBox
	err := p.step(log, PhaseLayout, 1, func() (int, error) {
		var err error
		boxes, err = p.detector.Detect(ctx, path)
		return len(boxes), err
	})
	if err != nil {
		if errors.Is(err, pdfdoc.ErrUnreadable) {
			return nil, newError(KindInput, PhaseLayout, err)
		}
		return nil, newError(KindExtraction, PhaseLayout, err)
	}

	var blocks []resume.ExtractedBlock
	err = p.step(log, PhaseExtract, len(boxes), func() (int, error) {
		var err error
		blocks, err = p.extractor.Extract(ctx, path, boxes)
		return len(blocks), err
	})
	if err != nil {
		return nil, newError(KindExtraction, PhaseExtract, err)
	}

	var profile *resume.Profile
	err = p.step(log, PhaseParse, len(blocks), func() (int, error) {
		var err error
		profile, err = p.parser.Parse(ctx, blocks)
		if profile == nil {
			return 0, err
		}
		return len(profile.ExperienceBlocks), err
	})
	if err != nil {
		return nil, newError(KindExtraction, PhaseParse, err)
	}
	if profile == nil {
		return nil, newError(KindExtraction, PhaseParse, errors.New("parser returned no profile"))
	}

	log.Info("document processed", zap.Duration("duration", time.Since(start)))

	return profile, nil
}

// RunReader spools r into a temporary file and runs the pipeline on it. The
// temporary file is removed on every exit path.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader) (*resume.Profile, error) {
	br := bufio.NewReaderSize(r, headerWindow)
	head, err := br.Peek(headerWindow)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, newError(KindInput, PhaseInput, err)
	}
	if !bytes.Contains(head, pdfMagic) {
		return nil, newError(KindInput, PhaseInput, ErrNotPDF)
	}

	tmp, err := os.CreateTemp("", "arie-*.pdf")
	if err != nil {
		return nil, newError(KindExtraction, PhaseInput, err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := io.Copy(tmp, br); err != nil {
		tmp.Close()
		return nil, newError(KindExtraction, PhaseInput, fmt.Errorf("spool upload: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return nil, newError(KindExtraction, PhaseInput, err)
	}

	return p.Run(ctx, path)
}

// step runs one phase and logs its summary.
func (p *Pipeline) step(log *zap.Logger, name string, input int, fn func() (int, error)) error {
	start := time.Now()
	output, err := fn()
	if err != nil {
		log.Warn("pipeline step failed",
			zap.String("name", name),
			zap.Int("input", input),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	log.Info("pipeline step",
		zap.String("name", name),
		zap.Int("input", input),
		zap.Int("output", output),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func checkFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return newError(KindInput, PhaseInput, err)
	}
	defer f.Close()

	head := make([]byte, headerWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return newError(KindInput, PhaseInput, err)
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return newError(KindInput, PhaseInput, ErrNotPDF)
	}
	return nil
}
