// Package pdftest writes small, well-formed PDF files for tests: Helvetica
// text runs and URI link annotations at fixed user-space positions.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Text is a single-line text run drawn at baseline (X, Y).
type Text struct {
	X, Y  float64
	Size  float64
	Value string
}

// Link is a URI link annotation over [X0 Y0 X1 Y1] in user space.
type Link struct {
	X0, Y0, X1, Y1 float64
	URI            string
}

// Page is one page. A zero Width or Height means US Letter.
type Page struct {
	Width, Height float64
	Texts         []Text
	Links         []Link
}

// Write stores a PDF with pages under t.TempDir and returns its path.
func Write(t testing.TB, name string, pages ...Page) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Bytes(pages...), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

// Bytes renders pages into a PDF document.
func Bytes(pages ...Page) []byte {
	w := &writer{}

	// 1 catalog, 2 page tree, 3 font; pages follow.
	kids := make([]string, 0, len(pages))
	next := 4
	plan := make([]objects, 0, len(pages))
	for _, p := range pages {
		l := objects{page: next, content: next + 1}
		next += 2
		for range p.Links {
			l.annots = append(l.annots, next)
			next++
		}
		plan = append(plan, l)
		kids = append(kids, fmt.Sprintf("%d 0 R", l.page))
	}

	w.header()
	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	w.object(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		l := plan[i]
		width, height := p.Width, p.Height
		if width == 0 || height == 0 {
			width, height = 612, 792
		}

		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R",
			num(width), num(height), l.content)
		if len(l.annots) > 0 {
			refs := make([]string, 0, len(l.annots))
			for _, id := range l.annots {
				refs = append(refs, fmt.Sprintf("%d 0 R", id))
			}
			dict += fmt.Sprintf(" /Annots [%s]", strings.Join(refs, " "))
		}
		w.object(l.page, dict+" >>")
		w.stream(l.content, content(p.Texts))

		for j, link := range p.Links {
			w.object(l.annots[j], fmt.Sprintf(
				"<< /Type /Annot /Subtype /Link /Rect [%s %s %s %s] /Border [0 0 0] /A << /Type /Action /S /URI /URI (%s) >> >>",
				num(link.X0), num(link.Y0), num(link.X1), num(link.Y1), escape(link.URI)))
		}
	}

	return w.finish(next - 1)
}

// objects holds the object numbers of one page.
type objects struct {
	page    int
	content int
	annots  []int
}

func content(texts []Text) string {
	if len(texts) == 0 {
		return "q Q\n"
	}

	var b strings.Builder
	for _, t := range texts {
		size := t.Size
		if size == 0 {
			size = 12
		}
		fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(size), num(t.X), num(t.Y), escape(t.Value))
	}
	return b.String()
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func (w *writer) header() {
	w.offsets = make(map[int]int)
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
}

func (w *writer) object(id int, body string) {
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(id int, data string) {
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", id, len(data), data)
}

func (w *writer) finish(last int) []byte {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", last+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= last; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%EOF\n", last+1, xref)
	return w.buf.Bytes()
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
