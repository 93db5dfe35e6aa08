package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// OverlayTag is the element footalk inserts to show origin text on hover.
const OverlayTag = "footalk-tooltip"

// denied are containers whose text is never rewritten.
var denied = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Input:    true,
	atom.Textarea: true,
	atom.Code:     true,
	atom.Pre:      true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Canvas:   true,
	atom.Svg:      true,
}

// IsOverlay reports whether n is the hover overlay element.
func IsOverlay(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == OverlayTag
}

// isDenied reports whether an element's subtree is off limits.
func isDenied(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return denied[n.DataAtom] || IsOverlay(n)
}

// Eligible reports whether n is a text unit footalk may rewrite: a text node
// under an element, with no denied container or overlay among its
// ancestors, and outside any content-editable region.
//
// Every scan, full or incremental, goes through this one gate.
func Eligible(n *html.Node) bool {
	if n == nil || n.Type != html.TextNode {
		return false
	}
	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return false
	}
	for a := parent; a != nil; a = a.Parent {
		if isDenied(a) {
			return false
		}
	}
	return !editable(parent)
}

// editable reports whether n is inside an editing host. The inherited state
// of n itself is resolved first; beyond that, any ancestor explicitly marked
// editable wins, even over a nearer contenteditable="false".
func editable(n *html.Node) bool {
	if inheritsEditable(n) {
		return true
	}
	for a := n.Parent; a != nil; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		if v, ok := attr(a, "contenteditable"); ok && marksEditable(v) {
			return true
		}
	}
	return false
}

func marksEditable(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "plaintext-only":
		return true
	}
	return false
}

// inheritsEditable resolves inherited contenteditable: the nearest ancestor
// that sets a valid value decides.
func inheritsEditable(n *html.Node) bool {
	for a := n; a != nil; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		v, ok := attr(a, "contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
		// Invalid values inherit.
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// Collect returns the eligible text units under root in document order.
// Denied subtrees are pruned without being walked.
func Collect(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	var units []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if Eligible(n) {
				units = append(units, n)
			}
			return
		case html.ElementNode:
			if isDenied(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return units
}
