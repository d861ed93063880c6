// Package layout turns a PDF into labeled regions in reading order.
package layout

import (
	"context"
	"strings"

	"github.com/spigell/arie/internal/resume"
)

const (
	ProviderTabula  = "tabula"
	ProviderDocling = "docling"
)

// Region labels, following the DocLayNet vocabulary.
const (
	LabelText          = "text"
	LabelSectionHeader = "section_header"
	LabelListItem      = "list_item"
	LabelTable         = "table"
	LabelPicture       = "picture"
	LabelCaption       = "caption"
)

// Detector finds the layout regions of the PDF at path. Boxes come back in
// reading order with zero-based pages in top-left page space. A document
// that cannot be opened yields an error and no boxes.
type Detector interface {
	Detect(ctx context.Context, path string) ([]resume.BoundingBox, error)
}

// normalizeLabel flattens a provider label into a plain lowercase string.
func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "-", "_")
	return strings.ReplaceAll(label, " ", "_")
}
