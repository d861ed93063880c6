package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/arie/internal/pdfdoc"
	"github.com/spigell/arie/internal/resume"
)

const fakePDF = "%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

type fakeDetector struct {
	boxes []resume.BoundingBox
	err   error
	paths []string
}

func (f *fakeDetector) Detect(_ context.Context, path string) ([]resume.BoundingBox, error) {
	f.paths = append(f.paths, path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("detector could not see document: %w", err)
	}
	return f.boxes, f.err
}

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, boxes []resume.BoundingBox) ([]resume.ExtractedBlock, error) {
	if f.err != nil {
		return nil, f.err
	}
	blocks := make([]resume.ExtractedBlock, 0, len(boxes))
	for _, box := range boxes {
		blocks = append(blocks, resume.ExtractedBlock{Label: box.Label, Text: box.Label + " text", URLs: []resume.LinkItem{}, Page: box.Page})
	}
	return blocks, nil
}

type fakeParser struct {
	err    error
	calls  int
	blocks []resume.ExtractedBlock
}

func (f *fakeParser) Parse(_ context.Context, blocks []resume.ExtractedBlock) (*resume.Profile, error) {
	f.calls++
	f.blocks = blocks
	if f.err != nil {
		return nil, f.err
	}
	profile := &resume.Profile{PersonalInfo: resume.PersonalInfo{Name: resume.StringPtr("Jane Doe")}}
	for _, block := range blocks {
		profile.ExperienceBlocks = append(profile.ExperienceBlocks, resume.ExperienceBlock{TextContent: block.Text})
	}
	profile.Normalize()
	return profile, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testBoxes() []resume.BoundingBox {
	return []resume.BoundingBox{
		{Label: "section_header", X1: 10, Y1: 10},
		{Label: "text", Y0: 10, X1: 10, Y1: 20},
	}
}

func TestRunLogsEveryStep(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	parser := &fakeParser{}
	p := New(&fakeDetector{boxes: testBoxes()}, &fakeExtractor{}, parser, zap.New(core))

	profile, err := p.Run(context.Background(), writeFile(t, "cv.pdf", fakePDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(profile.ExperienceBlocks) != 2 || parser.blocks[0].Label != "section_header" {
		t.Fatalf("blocks did not flow in order: %+v", parser.blocks)
	}

	steps := observed.FilterMessage("pipeline step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(steps))
	}

	wantNames := []string{PhaseLayout, PhaseExtract, PhaseParse}
	for i, entry := range steps {
		fields := entry.ContextMap()
		if fields["name"] != wantNames[i] {
			t.Fatalf("step %d: expected name %q, got %v", i, wantNames[i], fields["name"])
		}
		if _, ok := fields["duration"]; !ok {
			t.Fatalf("step %d: missing duration", i)
		}
	}
	if got := steps[1].ContextMap()["output"]; got != int64(2) {
		t.Fatalf("expected extract output 2, got %v", got)
	}

	if observed.FilterMessage("document processed").Len() != 1 {
		t.Fatalf("expected document summary entry")
	}
}

func TestRunFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name      string
		content   string
		detector  *fakeDetector
		extractor *fakeExtractor
		parser    *fakeParser
		kind      Kind
		phase     string
	}{
		{
			name:    "not a pdf",
			content: "PK\x03\x04 zip archive",
			kind:    KindInput,
			phase:   PhaseInput,
		},
		{
			name:     "unreadable pdf",
			detector: &fakeDetector{err: fmt.Errorf("%w: broken xref", pdfdoc.ErrUnreadable)},
			kind:     KindInput,
			phase:    PhaseLayout,
		},
		{
			name:     "layout failure",
			detector: &fakeDetector{err: boom},
			kind:     KindExtraction,
			phase:    PhaseLayout,
		},
		{
			name:      "extract failure",
			extractor: &fakeExtractor{err: boom},
			kind:      KindExtraction,
			phase:     PhaseExtract,
		},
		{
			name:   "parse failure",
			parser: &fakeParser{err: boom},
			kind:   KindExtraction,
			phase:  PhaseParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.content == "" {
				tt.content = fakePDF
			}
			if tt.detector == nil {
				tt.detector = &fakeDetector{boxes: testBoxes()}
			}
			if tt.extractor == nil {
				tt.extractor = &fakeExtractor{}
			}
			if tt.parser == nil {
				tt.parser = &fakeParser{}
			}

			p := New(tt.detector, tt.extractor, tt.parser, nil)
			profile, err := p.Run(context.Background(), writeFile(t, "cv.pdf", tt.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if profile != nil {
				t.Fatalf("no partial profile expected, got %+v", profile)
			}

			var pErr *Error
			if !errors.As(err, &pErr) {
				t.Fatalf("expected pipeline error, got %T", err)
			}
			if pErr.Kind != tt.kind || pErr.Phase != tt.phase {
				t.Fatalf("expected %s/%s, got %s/%s", tt.kind, tt.phase, pErr.Kind, pErr.Phase)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	p := New(&fakeDetector{}, &fakeExtractor{}, &fakeParser{}, nil)
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !IsInput(err) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestRunReaderRemovesTempFile(t *testing.T) {
	detector := &fakeDetector{boxes: testBoxes()}
	p := New(detector, &fakeExtractor{}, &fakeParser{}, nil)

	if _, err := p.RunReader(context.Background(), strings.NewReader(fakePDF)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failing := &fakeDetector{err: errors.New("boom")}
	p = New(failing, &fakeExtractor{}, &fakeParser{}, nil)
	if _, err := p.RunReader(context.Background(), strings.NewReader(fakePDF)); err == nil {
		t.Fatal("expected error")
	}

	for _, path := range append(detector.paths, failing.paths...) {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("temporary file %s was not removed", path)
		}
	}
	if len(detector.paths) != 1 || len(failing.paths) != 1 {
		t.Fatalf("expected one detection per run")
	}
}

func TestRunReaderRejectsNonPDF(t *testing.T) {
	detector := &fakeDetector{}
	p := New(detector, &fakeExtractor{}, &fakeParser{}, nil)

	_, err := p.RunReader(context.Background(), strings.NewReader("hello world"))
	if !IsInput(err) || !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected not a pdf input error, got %v", err)
	}
	if len(detector.paths) != 0 {
		t.Fatalf("detector must not run for non-pdf input")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRunReaderReadFailure(t *testing.T) {
	p := New(&fakeDetector{}, &fakeExtractor{}, &fakeParser{}, nil)
	if _, err := p.RunReader(context.Background(), failingReader{}); !IsInput(err) {
		t.Fatalf("expected input error, got %v", err)
	}
}
