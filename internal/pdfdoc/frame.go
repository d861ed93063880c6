package pdfdoc

import (
	"fmt"
	"math"

	"github.com/tsawler/tabula/text"

	"github.com/spigell/arie/internal/resume"
)

// Frame is a page MediaBox in PDF user space (origin bottom-left).
type Frame struct {
	LLX, LLY, URX, URY float64
}

// FrameFromBox builds a Frame from a [llx lly urx ury] array, normalizing
// swapped corners.
func FrameFromBox(box []float64) (Frame, error) {
	if len(box) != 4 {
		return Frame{}, fmt.Errorf("media box must have 4 values, got %d", len(box))
	}

	f := Frame{
		LLX: math.Min(box[0], box[2]),
		LLY: math.Min(box[1], box[3]),
		URX: math.Max(box[0], box[2]),
		URY: math.Max(box[1], box[3]),
	}
	if f.Width() <= 0 || f.Height() <= 0 {
		return Frame{}, fmt.Errorf("media box %v has no area", box)
	}

	return f, nil
}

func (f Frame) Width() float64  { return f.URX - f.LLX }
func (f Frame) Height() float64 { return f.URY - f.LLY }

// ToPage converts a user-space rectangle into top-left page space.
func (f Frame) ToPage(x0, y0, x1, y1 float64) resume.Rect {
	return resume.NewRect(x0-f.LLX, f.URY-y1, x1-f.LLX, f.URY-y0)
}

// FragmentToPage returns the page-space rectangle of a tabula fragment. Y is
// the baseline and Height the font size.
func (f Frame) FragmentToPage(frag text.TextFragment) resume.Rect {
	return f.ToPage(frag.X, frag.Y, frag.X+frag.Width, frag.Y+frag.Height)
}

// Page returns the whole page in page space.
func (f Frame) Page() resume.Rect {
	return resume.Rect{X1: f.Width(), Y1: f.Height()}
}
