package pdfdoc

import (
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spigell/arie/internal/resume"
)

// Annotation is a URI link annotation in top-left page space.
type Annotation struct {
	URI  string
	Rect resume.Rect
}

// rawLink is a link annotation still in PDF user space.
type rawLink struct {
	uri  string
	rect [4]float64
}

type resolveFunc func(types.Object) (types.Object, error)

// annotationReader reads /Link annotations through pdfcpu.
type annotationReader struct {
	ctx *model.Context
}

func openAnnotations(path string) (*annotationReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	return &annotationReader{ctx: ctx}, nil
}

// links returns the URI links of the zero-based page.
func (a *annotationReader) links(page int) ([]rawLink, error) {
	pageDict, _, _, err := a.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", page)
	}

	return linksFromPage(pageDict, a.ctx.Dereference)
}

func linksFromPage(pageDict types.Dict, resolve resolveFunc) ([]rawLink, error) {
	obj, found := pageDict.Find("Annots")
	if !found || obj == nil {
		return nil, nil
	}

	obj, err := resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolve annots: %w", err)
	}

	annots, ok := obj.(types.Array)
	if !ok {
		return nil, nil
	}

	var links []rawLink
	for _, entry := range annots {
		resolved, err := resolve(entry)
		if err != nil {
			return nil, fmt.Errorf("resolve annotation: %w", err)
		}

		dict, ok := resolved.(types.Dict)
		if !ok {
			continue
		}

		link, ok, err := linkFromAnnotation(dict, resolve)
		if err != nil {
			return nil, err
		}
		if ok {
			links = append(links, link)
		}
	}

	return links, nil
}

// linkFromAnnotation reports whether dict is a /Link with a URI action and a
// usable /Rect.
func linkFromAnnotation(dict types.Dict, resolve resolveFunc) (rawLink, bool, error) {
	if subtype := dict.NameEntry("Subtype"); subtype == nil || *subtype != "Link" {
		return rawLink{}, false, nil
	}

	rectObj, found := dict.Find("Rect")
	if !found {
		return rawLink{}, false, nil
	}
	rectObj, err := resolve(rectObj)
	if err != nil {
		return rawLink{}, false, fmt.Errorf("resolve link rect: %w", err)
	}
	rect, ok := rectFromArray(rectObj, resolve)
	if !ok {
		return rawLink{}, false, nil
	}

	actionObj, found := dict.Find("A")
	if !found {
		return rawLink{}, false, nil
	}
	actionObj, err = resolve(actionObj)
	if err != nil {
		return rawLink{}, false, fmt.Errorf("resolve link action: %w", err)
	}
	action, ok := actionObj.(types.Dict)
	if !ok {
		return rawLink{}, false, nil
	}

	uriObj, found := action.Find("URI")
	if !found {
		return rawLink{}, false, nil
	}
	uriObj, err = resolve(uriObj)
	if err != nil {
		return rawLink{}, false, fmt.Errorf("resolve link uri: %w", err)
	}

	uri, ok := stringValue(uriObj)
	if !ok || uri == "" {
		return rawLink{}, false, nil
	}

	return rawLink{uri: uri, rect: rect}, true, nil
}

func rectFromArray(obj types.Object, resolve resolveFunc) ([4]float64, bool) {
	var rect [4]float64

	arr, ok := obj.(types.Array)
	if !ok || len(arr) != 4 {
		return rect, false
	}

	for i, item := range arr {
		item, err := resolve(item)
		if err != nil {
			return rect, false
		}
		value, ok := number(item)
		if !ok {
			return rect, false
		}
		rect[i] = value
	}

	return rect, true
}

func number(obj types.Object) (float64, bool) {
	switch v := obj.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringValue(obj types.Object) (string, bool) {
	var (
		s   string
		err error
	)

	switch v := obj.(type) {
	case types.StringLiteral:
		s, err = types.StringLiteralToString(v)
	case types.HexLiteral:
		s, err = types.HexLiteralToString(v)
	case types.Name:
		s = string(v)
	default:
		return "", false
	}
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(s), true
}
