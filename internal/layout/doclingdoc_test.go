package layout

import (
	"encoding/json"
	"testing"

	"github.com/spigell/arie/internal/resume"
)

const doclingFixture = `{
  "body": {"self_ref": "#/body", "children": [
    {"$ref": "#/texts/0"},
    {"$ref": "#/groups/0"},
    {"$ref": "#/tables/0"},
    {"$ref": "#/pictures/0"}
  ]},
  "groups": [
    {"self_ref": "#/groups/0", "label": "list", "children": [{"$ref": "#/texts/1"}, {"$ref": "#/texts/2"}]}
  ],
  "texts": [
    {"self_ref": "#/texts/0", "label": "section_header", "prov": [
      {"page_no": 1, "bbox": {"l": 72, "t": 760, "r": 300, "b": 740, "coord_origin": "BOTTOMLEFT"}}
    ]},
    {"self_ref": "#/texts/1", "label": "list_item", "prov": [
      {"page_no": 1, "bbox": {"l": 72, "t": 100, "r": 300, "b": 120, "coord_origin": "TOPLEFT"}}
    ]},
    {"self_ref": "#/texts/2", "label": "list_item", "prov": [
      {"page_no": 1, "bbox": {"l": 72, "t": 700, "r": 300, "b": 680, "coord_origin": "BOTTOMLEFT"}},
      {"page_no": 2, "bbox": {"l": 72, "t": 780, "r": 300, "b": 770, "coord_origin": "BOTTOMLEFT"}}
    ]}
  ],
  "tables": [
    {"self_ref": "#/tables/0", "label": "table", "prov": []}
  ],
  "pictures": [
    {"self_ref": "#/pictures/0", "label": "picture", "prov": [
      {"page_no": 2, "bbox": {"l": 100, "t": 500, "r": 100, "b": 400, "coord_origin": "BOTTOMLEFT"}}
    ]}
  ],
  "pages": {
    "1": {"page_no": 1, "size": {"width": 612, "height": 792}},
    "2": {"page_no": 2, "size": {"width": 612, "height": 792}}
  }
}`

func TestDoclingDocumentBoxes(t *testing.T) {
	var doc DoclingDocument
	if err := json.Unmarshal([]byte(doclingFixture), &doc); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	boxes, err := doc.Boxes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []resume.BoundingBox{
		{Label: "section_header", X0: 72, Y0: 32, X1: 300, Y1: 52, Page: 0},
		{Label: "list_item", X0: 72, Y0: 100, X1: 300, Y1: 120, Page: 0},
		{Label: "list_item", X0: 72, Y0: 92, X1: 300, Y1: 112, Page: 0},
		{Label: "list_item", X0: 72, Y0: 12, X1: 300, Y1: 22, Page: 1},
	}

	if len(boxes) != len(want) {
		t.Fatalf("expected %d boxes, got %d: %+v", len(want), len(boxes), boxes)
	}
	for i := range want {
		if boxes[i] != want[i] {
			t.Fatalf("box %d: expected %+v, got %+v", i, want[i], boxes[i])
		}
	}
}

func TestDoclingDocumentDanglingRef(t *testing.T) {
	doc := DoclingDocument{
		Body: doclingNode{Children: []doclingRef{{Ref: "#/texts/5"}}},
	}

	if _, err := doc.Boxes(); err == nil {
		t.Fatal("expected error for dangling reference")
	}
}

func TestDoclingDocumentMissingPageSize(t *testing.T) {
	doc := DoclingDocument{
		Body: doclingNode{Children: []doclingRef{{Ref: "#/texts/0"}}},
		Texts: []doclingNode{{
			Label: "text",
			Prov:  []doclingProv{{PageNo: 3, BBox: doclingBBox{L: 0, T: 20, R: 10, B: 0, CoordOrigin: "BOTTOMLEFT"}}},
		}},
	}

	boxes, err := doc.Boxes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("expected box without page geometry to be skipped, got %+v", boxes)
	}
}
