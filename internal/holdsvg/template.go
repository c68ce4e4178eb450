// Package holdsvg turns hold type SVG templates into placeable fragments.
//
// A template is a complete SVG document authored in its own user units. Its
// top-level children are classified by id:
//
//	hold                  the colored body (optional)
//	insert                the anchor marker; its center is the placement pivot
//	label, label-<dir>    text fragments holding the "#" placeholder
//	anything else         auxiliary fragments, emitted uncolored
//
// The insert marker is also emitted as an auxiliary fragment.
package holdsvg

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/speedwall-planner/backend/internal/rotation"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

const (
	// LabelPlaceholder is the text run replaced with the hold label.
	LabelPlaceholder = "#"

	shapeID  = "hold"
	insertID = "insert"
	labelID  = "label"

	// DefaultLabelFontSize is used when a label fragment has no font-size.
	DefaultLabelFontSize = 60.0

	colorToken    = "__HOLD_COLOR__"
	labelToken    = "__HOLD_LABEL__"
	fontSizeToken = "__HOLD_FONT_SIZE__"
)

var styleFill = regexp.MustCompile(`fill\s*:\s*([^;]+)`)

// Template is a parsed hold template. It is immutable after Parse.
type Template struct {
	Name   string
	Width  float64
	Height float64
	// AnchorX and AnchorY are the insert center in template units.
	AnchorX float64
	AnchorY float64

	shape  string
	aux    []string
	labels map[string]label
}

type label struct {
	markup   string
	fontSize float64
}

// HasShape reports whether the template carries a colored body.
func (t *Template) HasShape() bool { return t.shape != "" }

// HasLabel reports whether the template has any label fragment.
func (t *Template) HasLabel() bool { return len(t.labels) > 0 }

// AuxCount returns the number of auxiliary fragments.
func (t *Template) AuxCount() int { return len(t.aux) }

// LabelFragment returns the label fragment key used for a direction: the
// direction-specific one when authored, else the default.
func (t *Template) LabelFragment(dir rotation.Direction) (string, bool) {
	key := labelID + "-" + string(dir)
	if _, ok := t.labels[key]; ok {
		return key, true
	}
	if _, ok := t.labels[labelID]; ok {
		return labelID, true
	}
	return "", false
}

// Parse parses template SVG data. name identifies the template in errors.
func Parse(name string, data []byte) (*Template, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, wallerr.Parsef(name, "template %s: %v", name, err)
	}
	root := firstElement(doc)
	if root == nil || root.Data != "svg" {
		return nil, wallerr.Parsef(name, "template %s: root element must be <svg>", name)
	}

	t := &Template{Name: name, labels: map[string]label{}}
	if t.Width, t.Height, err = boundingBox(root); err != nil {
		return nil, wallerr.Parsef(name, "template %s: %v", name, err)
	}

	insert := xmlquery.FindOne(root, "//*[@id='"+insertID+"']")
	if insert == nil {
		return nil, wallerr.Parsef(name, "template %s: missing element with id %q", name, insertID)
	}
	if t.AnchorX, t.AnchorY, err = center(insert); err != nil {
		return nil, wallerr.Parsef(name, "template %s: insert marker: %v", name, err)
	}

	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		id := child.SelectAttr("id")
		switch {
		case id == shapeID:
			if t.shape != "" {
				return nil, wallerr.Parsef(name, "template %s: more than one %q element", name, shapeID)
			}
			recolor(child, true)
			t.shape = fragment(child)
		case id == labelID || strings.HasPrefix(id, labelID+"-"):
			if err := validLabelID(id); err != nil {
				return nil, wallerr.Parsef(name, "template %s: %v", name, err)
			}
			l, err := parseLabel(child)
			if err != nil {
				return nil, wallerr.Parsef(name, "template %s: %s: %v", name, id, err)
			}
			t.labels[id] = l
		default:
			t.aux = append(t.aux, fragment(child))
		}
	}
	return t, nil
}

func validLabelID(id string) error {
	if id == labelID {
		return nil
	}
	for _, d := range rotation.Directions() {
		if id == labelID+"-"+string(d) {
			return nil
		}
	}
	return errors.New("unknown label fragment " + strconv.Quote(id))
}

func parseLabel(n *xmlquery.Node) (label, error) {
	size := DefaultLabelFontSize
	if v := n.SelectAttr("font-size"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
		if err != nil || f <= 0 {
			return label{}, errors.New("invalid font-size " + strconv.Quote(v))
		}
		size = f
	}
	setAttr(n, "font-size", fontSizeToken)

	found := false
	walk(n, func(c *xmlquery.Node) {
		if (c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode) && strings.TrimSpace(c.Data) == LabelPlaceholder {
			c.Data = labelToken
			found = true
		}
	})
	if !found {
		return label{}, errors.New("no " + strconv.Quote(LabelPlaceholder) + " placeholder")
	}
	recolor(n, true)
	return label{markup: fragment(n), fontSize: size}, nil
}

// recolor replaces every non-none fill in the subtree with the color token.
// When nothing in the subtree declares a fill and force is set, the root gets one.
func recolor(n *xmlquery.Node, force bool) {
	changed := false
	walk(n, func(c *xmlquery.Node) {
		if c.Type != xmlquery.ElementNode {
			return
		}
		for i := range c.Attr {
			a := &c.Attr[i]
			switch a.Name.Local {
			case "fill":
				if a.Value != "none" {
					a.Value = colorToken
					changed = true
				}
			case "style":
				a.Value = styleFill.ReplaceAllStringFunc(a.Value, func(m string) string {
					if strings.TrimSpace(styleFill.FindStringSubmatch(m)[1]) == "none" {
						return m
					}
					changed = true
					return "fill:" + colorToken
				})
			}
		}
	})
	if !changed && force {
		setAttr(n, "fill", colorToken)
	}
}

// fragment serializes n with its id turned into a class so that repeated
// instances do not collide in one document.
func fragment(n *xmlquery.Node) string {
	walk(n, func(c *xmlquery.Node) {
		if c.Type != xmlquery.ElementNode {
			return
		}
		for i := range c.Attr {
			if c.Attr[i].Name.Local == "id" && c.Attr[i].Name.Space == "" {
				c.Attr[i].Name.Local = "class"
			}
		}
	})
	return n.OutputXML(true)
}

func walk(n *xmlquery.Node, fn func(*xmlquery.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func setAttr(n *xmlquery.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Local == name {
			n.Attr[i].Value = value
			return
		}
	}
	xmlquery.AddAttr(n, name, value)
}

func firstElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

func boundingBox(root *xmlquery.Node) (float64, float64, error) {
	if vb := root.SelectAttr("viewBox"); vb != "" {
		parts := strings.FieldsFunc(vb, func(r rune) bool { return r == ' ' || r == ',' })
		if len(parts) != 4 {
			return 0, 0, errors.New("invalid viewBox " + strconv.Quote(vb))
		}
		w, err1 := strconv.ParseFloat(parts[2], 64)
		h, err2 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
			return 0, 0, errors.New("invalid viewBox " + strconv.Quote(vb))
		}
		return w, h, nil
	}
	w, errW := length(root.SelectAttr("width"))
	h, errH := length(root.SelectAttr("height"))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, errors.New("no viewBox and no usable width/height")
	}
	return w, h, nil
}

func center(n *xmlquery.Node) (float64, float64, error) {
	switch n.Data {
	case "circle", "ellipse":
		x, err1 := length(n.SelectAttr("cx"))
		y, err2 := length(n.SelectAttr("cy"))
		if err1 != nil || err2 != nil {
			return 0, 0, errors.New("invalid cx/cy")
		}
		return x, y, nil
	case "rect":
		x, err1 := length(n.SelectAttr("x"))
		y, err2 := length(n.SelectAttr("y"))
		w, err3 := length(n.SelectAttr("width"))
		h, err4 := length(n.SelectAttr("height"))
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return 0, 0, errors.New("invalid x/y/width/height")
		}
		return x + w/2, y + h/2, nil
	}
	return 0, 0, errors.New("must be a circle, ellipse or rect, got <" + n.Data + ">")
}

// length parses an SVG length in user units; empty means 0.
func length(v string) (float64, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
