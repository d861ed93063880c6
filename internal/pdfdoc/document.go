// Package pdfdoc gives page-level access to a PDF: positioned text
// fragments through tabula and link annotations through pdfcpu, both in
// top-left page space.
package pdfdoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/resume"
)

// ErrUnreadable marks documents that cannot be parsed as PDF at all.
var ErrUnreadable = errors.New("unreadable pdf")

// Fragment is a positioned piece of native text.
type Fragment struct {
	Text string
	Rect resume.Rect
	raw  text.TextFragment
}

// Centre returns the fragment centre in page space.
func (f Fragment) Centre() (float64, float64) {
	return (f.Rect.X0 + f.Rect.X1) / 2, (f.Rect.Y0 + f.Rect.Y1) / 2
}

type pageData struct {
	frame     Frame
	fragments []Fragment
}

// Document is an open PDF. It is not safe for concurrent use.
type Document struct {
	path      string
	reader    *reader.Reader
	pageCount int
	pages     map[int]*pageData
	links     map[int][]Annotation
	annots    *annotationReader
	logger    *zap.Logger
}

// Open parses the PDF at path.
func Open(path string, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	count, err := r.PageCount()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: count pages: %w", ErrUnreadable, err)
	}

	return &Document{
		path:      path,
		reader:    r,
		pageCount: count,
		pages:     make(map[int]*pageData),
		links:     make(map[int][]Annotation),
		logger:    logger,
	}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pageCount }

// Close releases the underlying reader.
func (d *Document) Close() error {
	if d.reader == nil {
		return nil
	}
	err := d.reader.Close()
	d.reader = nil
	return err
}

// Frame returns the MediaBox of the zero-based page.
func (d *Document) Frame(page int) (Frame, error) {
	data, err := d.page(page)
	if err != nil {
		return Frame{}, err
	}
	return data.frame, nil
}

// Text assembles the native text whose fragment centres lie inside rect.
func (d *Document) Text(page int, rect resume.Rect) (string, error) {
	data, err := d.page(page)
	if err != nil {
		return "", err
	}

	cropped := Crop(data.fragments, rect)
	if len(cropped) == 0 {
		return "", nil
	}

	raw := make([]text.TextFragment, 0, len(cropped))
	for _, frag := range cropped {
		raw = append(raw, frag.raw)
	}

	lines := layout.NewLineDetector().Detect(raw, data.frame.Width(), data.frame.Height())
	return strings.TrimSpace(lines.GetText()), nil
}

// Links returns the URI link annotations of the zero-based page.
func (d *Document) Links(page int) ([]Annotation, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}

	if cached, ok := d.links[page]; ok {
		return cached, nil
	}

	frame, err := d.Frame(page)
	if err != nil {
		return nil, err
	}

	if d.annots == nil {
		annots, err := openAnnotations(d.path)
		if err != nil {
			return nil, err
		}
		d.annots = annots
	}

	raw, err := d.annots.links(page)
	if err != nil {
		return nil, err
	}

	links := make([]Annotation, 0, len(raw))
	for _, link := range raw {
		links = append(links, Annotation{
			URI:  link.uri,
			Rect: frame.ToPage(link.rect[0], link.rect[1], link.rect[2], link.rect[3]),
		})
	}

	d.logger.Debug("read page links", zap.Int("page", page), zap.Int("links", len(links)))
	d.links[page] = links

	return links, nil
}

func (d *Document) checkPage(page int) error {
	if page < 0 || page >= d.pageCount {
		return fmt.Errorf("page %d out of range (document has %d pages)", page, d.pageCount)
	}
	if d.reader == nil {
		return fmt.Errorf("document is closed")
	}
	return nil
}

func (d *Document) page(page int) (*pageData, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}

	if cached, ok := d.pages[page]; ok {
		return cached, nil
	}

	p, err := d.reader.GetPage(page)
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", page, err)
	}

	box, err := p.MediaBox()
	if err != nil {
		return nil, fmt.Errorf("page %d media box: %w", page, err)
	}

	frame, err := FrameFromBox(box)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	raw, err := d.reader.ExtractTextFragments(p)
	if err != nil {
		return nil, fmt.Errorf("page %d text: %w", page, err)
	}

	data := &pageData{frame: frame, fragments: toFragments(raw, frame)}
	d.pages[page] = data

	return data, nil
}

// RawFragments returns the tabula fragments of the zero-based page as
// extracted, in PDF user space.
func (d *Document) RawFragments(page int) ([]text.TextFragment, error) {
	data, err := d.page(page)
	if err != nil {
		return nil, err
	}

	raw := make([]text.TextFragment, 0, len(data.fragments))
	for _, frag := range data.fragments {
		raw = append(raw, frag.raw)
	}
	return raw, nil
}

func toFragments(raw []text.TextFragment, frame Frame) []Fragment {
	fragments := make([]Fragment, 0, len(raw))
	for _, frag := range raw {
		if strings.TrimSpace(frag.Text) == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Text: frag.Text,
			Rect: frame.FragmentToPage(frag),
			raw:  frag,
		})
	}
	return fragments
}

// Crop keeps the fragments whose centre lies inside rect.
func Crop(fragments []Fragment, rect resume.Rect) []Fragment {
	var kept []Fragment
	for _, frag := range fragments {
		x, y := frag.Centre()
		if rect.ContainsPoint(x, y) {
			kept = append(kept, frag)
		}
	}
	return kept
}
