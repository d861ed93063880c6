package layout

import (
	"context"
	"strings"

	tabulalayout "github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/pdfdoc"
	"github.com/spigell/arie/internal/resume"
)

// Tabula detects regions in-process with the tabula layout analyzer. It
// works on native text only and never runs OCR.
type Tabula struct {
	logger *zap.Logger
}

func NewTabula(log *zap.Logger) *Tabula {
	return &Tabula{logger: logger.WithCommonFields(log, ProviderTabula, "")}
}

// Detect returns the regions of every page in reading order. A page without
// native text yields one page-sized text region so that the extractor can
// fall back to OCR for it.
func (t *Tabula) Detect(ctx context.Context, path string) ([]resume.BoundingBox, error) {
	doc, err := pdfdoc.Open(path, t.logger)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	var boxes []resume.BoundingBox
	for page := 0; page < doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := doc.Frame(page)
		if err != nil {
			return nil, err
		}

		fragments, err := doc.RawFragments(page)
		if err != nil {
			return nil, err
		}
		if len(fragments) == 0 {
			t.logger.Debug("page has no native text", zap.Int("page", page))
			boxes = append(boxes, blankPageBox(frame, page))
			continue
		}

		var pageBoxes []resume.BoundingBox
		if result := tabulalayout.NewAnalyzer().Analyze(fragments, frame.Width(), frame.Height()); result != nil {
			pageBoxes = boxesFromElements(result.Elements, frame, page)
		}
		if len(pageBoxes) == 0 {
			pageBoxes = []resume.BoundingBox{blankPageBox(frame, page)}
		}

		t.logger.Debug("analyzed page",
			zap.Int("page", page),
			zap.Int("fragments", len(fragments)),
			zap.Int("boxes", len(pageBoxes)),
		)
		boxes = append(boxes, pageBoxes...)
	}

	return boxes, nil
}

func blankPageBox(frame pdfdoc.Frame, page int) resume.BoundingBox {
	return resume.NewBoundingBox(LabelText, frame.Page(), page)
}

func boxesFromElements(elements []tabulalayout.LayoutElement, frame pdfdoc.Frame, page int) []resume.BoundingBox {
	var boxes []resume.BoundingBox

	add := func(label string, lines []tabulalayout.Line, bbox model.BBox) {
		rect := regionRect(lines, bbox, frame)
		if rect.Empty() {
			return
		}
		boxes = append(boxes, resume.NewBoundingBox(label, rect, page))
	}

	for _, elem := range elements {
		switch elem.Type {
		case model.ElementTypeList:
			if elem.List == nil || len(elem.List.Items) == 0 {
				add(LabelListItem, elem.Lines, elem.BBox)
				continue
			}
			for _, item := range flattenItems(elem.List.Items) {
				add(LabelListItem, item.Lines, item.BBox)
			}
		default:
			label, ok := elementLabel(elem.Type)
			if !ok {
				continue
			}
			add(label, elem.Lines, elem.BBox)
		}

		boxes = append(boxes, boxesFromElements(elem.Children, frame, page)...)
	}

	return boxes
}

// regionRect covers every fragment of lines. The analyzer's element boxes
// do not track the horizontal extent of their text, so bbox is used only
// for elements without lines (tables, images).
func regionRect(lines []tabulalayout.Line, bbox model.BBox, frame pdfdoc.Frame) resume.Rect {
	var (
		rect  resume.Rect
		found bool
	)
	for _, line := range lines {
		for _, frag := range line.Fragments {
			if strings.TrimSpace(frag.Text) == "" {
				continue
			}
			fragRect := frame.FragmentToPage(frag)
			if !found {
				rect, found = fragRect, true
				continue
			}
			rect = rect.Union(fragRect)
		}
	}

	if !found {
		return frame.ToPage(bbox.Left(), bbox.Bottom(), bbox.Right(), bbox.Top())
	}
	return rect
}

func flattenItems(items []tabulalayout.ListItem) []tabulalayout.ListItem {
	var flat []tabulalayout.ListItem
	for _, item := range items {
		flat = append(flat, item)
		flat = append(flat, flattenItems(item.Children)...)
	}
	return flat
}

func elementLabel(t model.ElementType) (string, bool) {
	switch t {
	case model.ElementTypeParagraph:
		return LabelText, true
	case model.ElementTypeHeading:
		return LabelSectionHeader, true
	case model.ElementTypeList:
		return LabelListItem, true
	case model.ElementTypeTable:
		return LabelTable, true
	case model.ElementTypeImage, model.ElementTypeFigure:
		return LabelPicture, true
	case model.ElementTypeCaption:
		return LabelCaption, true
	default:
		return "", false
	}
}
