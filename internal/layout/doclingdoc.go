package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/arie/internal/resume"
)

const coordOriginBottomLeft = "BOTTOMLEFT"

// DoclingDocument is the subset of a DoclingDocument needed to recover
// labeled regions.
type DoclingDocument struct {
	Body          doclingNode            `json:"body"`
	Groups        []doclingNode          `json:"groups"`
	Texts         []doclingNode          `json:"texts"`
	Tables        []doclingNode          `json:"tables"`
	Pictures      []doclingNode          `json:"pictures"`
	KeyValueItems []doclingNode          `json:"key_value_items"`
	FormItems     []doclingNode          `json:"form_items"`
	Pages         map[string]doclingPage `json:"pages"`
}

type doclingRef struct {
	Ref string `json:"$ref"`
}

type doclingNode struct {
	SelfRef  string        `json:"self_ref"`
	Label    string        `json:"label"`
	Children []doclingRef  `json:"children"`
	Prov     []doclingProv `json:"prov"`
}

type doclingProv struct {
	PageNo int         `json:"page_no"`
	BBox   doclingBBox `json:"bbox"`
}

type doclingBBox struct {
	L           float64 `json:"l"`
	T           float64 `json:"t"`
	R           float64 `json:"r"`
	B           float64 `json:"b"`
	CoordOrigin string  `json:"coord_origin"`
}

type doclingPage struct {
	PageNo int `json:"page_no"`
	Size   struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"size"`
}

// Boxes walks the body tree in document order and emits one box per
// provenance entry. Groups contribute their children only.
func (d *DoclingDocument) Boxes() ([]resume.BoundingBox, error) {
	var boxes []resume.BoundingBox
	visited := make(map[string]bool)

	var walk func(refs []doclingRef) error
	walk = func(refs []doclingRef) error {
		for _, ref := range refs {
			if visited[ref.Ref] {
				continue
			}
			visited[ref.Ref] = true

			node, group, err := d.resolve(ref.Ref)
			if err != nil {
				return err
			}

			if !group {
				for _, prov := range node.Prov {
					box, ok := d.provBox(node.Label, prov)
					if ok {
						boxes = append(boxes, box)
					}
				}
			}

			if err := walk(node.Children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(d.Body.Children); err != nil {
		return nil, err
	}

	return boxes, nil
}

// resolve looks up a JSON pointer like "#/texts/3".
func (d *DoclingDocument) resolve(ref string) (doclingNode, bool, error) {
	parts := strings.Split(strings.TrimPrefix(ref, "#/"), "/")
	if len(parts) != 2 {
		if ref == "#/body" {
			return d.Body, true, nil
		}
		return doclingNode{}, false, fmt.Errorf("unsupported docling reference %q", ref)
	}

	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return doclingNode{}, false, fmt.Errorf("invalid docling reference %q", ref)
	}

	var (
		items []doclingNode
		group bool
	)
	switch parts[0] {
	case "groups":
		items, group = d.Groups, true
	case "texts":
		items = d.Texts
	case "tables":
		items = d.Tables
	case "pictures":
		items = d.Pictures
	case "key_value_items":
		items = d.KeyValueItems
	case "form_items":
		items = d.FormItems
	default:
		return doclingNode{}, false, fmt.Errorf("unsupported docling reference %q", ref)
	}

	if idx >= len(items) {
		return doclingNode{}, false, fmt.Errorf("dangling docling reference %q", ref)
	}

	return items[idx], group, nil
}

func (d *DoclingDocument) provBox(label string, prov doclingProv) (resume.BoundingBox, bool) {
	if prov.PageNo < 1 {
		return resume.BoundingBox{}, false
	}

	bbox := prov.BBox
	top, bottom := bbox.T, bbox.B
	if strings.EqualFold(bbox.CoordOrigin, coordOriginBottomLeft) {
		page, ok := d.Pages[strconv.Itoa(prov.PageNo)]
		if !ok || page.Size.Height <= 0 {
			return resume.BoundingBox{}, false
		}
		top, bottom = page.Size.Height-bbox.T, page.Size.Height-bbox.B
	}

	rect := resume.NewRect(bbox.L, top, bbox.R, bottom)
	if rect.Empty() {
		return resume.BoundingBox{}, false
	}

	return resume.NewBoundingBox(normalizeLabel(label), rect, prov.PageNo-1), true
}
