// CLAUDE:SUMMARY Computes and resolves positional XPaths (/html/body/div[2]/text()[1]) for nodes of the working tree.
package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// XPath returns the positional path of n from the document root.
// Indices are emitted only when siblings of the same kind exist, so
// single children read /html/body/p/text().
func XPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case html.DocumentNode:
		return ""
	case html.DoctypeNode:
		return XPath(n.Parent)
	}

	step := stepName(n)
	if n.Parent == nil {
		return "/" + step
	}

	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if !sameKind(s, n) {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}

	parent := XPath(n.Parent)
	if total > 1 {
		return fmt.Sprintf("%s/%s[%d]", parent, step, idx)
	}
	return parent + "/" + step
}

func stepName(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return "text()"
	case html.CommentNode:
		return "comment()"
	default:
		return strings.ToLower(n.Data)
	}
}

func sameKind(a, b *html.Node) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == html.ElementNode {
		return strings.EqualFold(a.Data, b.Data)
	}
	return true
}

// step is one parsed XPath segment.
type step struct {
	kind  html.NodeType
	name  string
	index int // 1-based
}

func (s step) matches(n *html.Node) bool {
	if n.Type != s.kind {
		return false
	}
	return s.kind != html.ElementNode || strings.EqualFold(n.Data, s.name)
}

func parseStep(seg string) (step, error) {
	st := step{index: 1}
	name := seg
	if i := strings.IndexByte(seg, '['); i >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return st, fmt.Errorf("dom: bad xpath step %q", seg)
		}
		n, err := strconv.Atoi(seg[i+1 : len(seg)-1])
		if err != nil || n < 1 {
			return st, fmt.Errorf("dom: bad xpath index in %q", seg)
		}
		st.index = n
		name = seg[:i]
	}
	switch name {
	case "text()":
		st.kind = html.TextNode
	case "comment()":
		st.kind = html.CommentNode
	case "":
		return st, fmt.Errorf("dom: empty xpath step")
	default:
		if strings.ContainsAny(name, "()*@") {
			return st, fmt.Errorf("dom: unsupported xpath step %q", seg)
		}
		st.kind = html.ElementNode
		st.name = name
	}
	return st, nil
}

func splitPath(xpath string) []string {
	xpath = strings.Trim(xpath, "/")
	if xpath == "" {
		return nil
	}
	return strings.Split(xpath, "/")
}

// Locate resolves a positional XPath produced by XPath (or by a DOM
// watcher using the same scheme) against the current tree.
func (d *Document) Locate(xpath string) (*html.Node, error) {
	n := d.root
	for _, seg := range splitPath(xpath) {
		st, err := parseStep(seg)
		if err != nil {
			return nil, err
		}
		n = nthChild(n, st)
		if n == nil {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, xpath)
		}
	}
	return n, nil
}

func nthChild(parent *html.Node, st step) *html.Node {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if !st.matches(c) {
			continue
		}
		seen++
		if seen == st.index {
			return c
		}
	}
	return nil
}
