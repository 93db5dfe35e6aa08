package engine

import (
	"fmt"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/transmute"
	"golang.org/x/net/html"
)

// overlayOffsetY places the overlay below the pointer.
const overlayOffsetY = 20

// Locator resolves the text unit under a pointer.
type Locator interface {
	Locate(xpath string) (*html.Node, error)
}

// HoverReveal shows a unit's origin text next to the pointer. It only
// reads the origin store; it never rewrites units.
type HoverReveal struct {
	loc     Locator
	origins *transmute.OriginStore
	doc     *dom.Document
	el      *html.Node
}

// Reveal updates the overlay for pointer p and returns its new state.
func (h *HoverReveal) Reveal(p mutation.Pointer, st State) mutation.Overlay {
	if !st.HoverEnabled || st.EffectiveLevel() == 0 || p.XPath == "" {
		return h.hide()
	}
	unit, err := h.loc.Locate(p.XPath)
	if err != nil || unit.Type != html.TextNode {
		return h.hide()
	}
	origin, ok := h.origins.Origin(unit)
	if !ok {
		return h.hide()
	}
	return h.show(origin, p.X, p.Y+overlayOffsetY)
}

func (h *HoverReveal) show(text string, x, y int) mutation.Overlay {
	if h.el == nil || !h.doc.Contains(h.el) {
		h.el = &html.Node{Type: html.ElementNode, Data: dom.OverlayTag}
		h.doc.AppendChild(h.doc.Body(), h.el)
	}
	h.doc.SetText(h.el, text)
	dom.SetAttr(h.el, "style", fmt.Sprintf("left: %dpx; top: %dpx", x, y))
	dom.SetAttr(h.el, "class", "visible")
	return mutation.Overlay{Visible: true, Text: text, X: x, Y: y}
}

func (h *HoverReveal) hide() mutation.Overlay {
	if h.el != nil {
		dom.DelAttr(h.el, "class")
	}
	return mutation.Overlay{}
}

// reset forgets the overlay element after the tree was replaced.
func (h *HoverReveal) reset() { h.el = nil }

