// Package dom holds the live document tree footalk rewrites: an
// x/net/html node tree plus the structural operations that report
// insertions to observers, XPath addressing, and the eligibility gate.
//
// A Document is not safe for concurrent use; one goroutine owns it.
package dom

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNodeNotFound is returned when an XPath addresses no node.
var ErrNodeNotFound = errors.New("dom: node not found")

// InsertFunc receives one batch of nodes inserted into the tree.
type InsertFunc func(nodes []*html.Node)

// DetachFunc receives the root of a subtree taken out of the tree.
type DetachFunc func(n *html.Node)

// Document is a mutable HTML tree that reports insertions and removals.
type Document struct {
	root      *html.Node
	observers []InsertFunc
	detachers []DetachFunc
	logger    *slog.Logger

	// batching > 0 defers notifications into collected.
	batching  int
	collected []*html.Node

	// Batches raised while observers run are queued and delivered after.
	queue       [][]*html.Node
	dispatching bool
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// New wraps an existing tree. root is usually an html.DocumentNode.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{root: root, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString reads an HTML document from a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Empty returns a document with an empty head and body.
func Empty(opts ...Option) *Document {
	d, err := ParseString("<html><head></head><body></body></html>", opts...)
	if err != nil {
		panic("dom: empty document: " + err.Error())
	}
	return d
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, or the root when there is none.
func (d *Document) Body() *html.Node {
	if b := findElement(d.root, atom.Body); b != nil {
		return b
	}
	return d.root
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, a); f != nil {
			return f
		}
	}
	return nil
}

// Observe registers fn for every insertion batch.
func (d *Document) Observe(fn InsertFunc) {
	d.observers = append(d.observers, fn)
}

// OnDetach registers fn for every subtree Remove or a replaced text record
// takes out of the tree. fn runs synchronously, right after the detach.
func (d *Document) OnDetach(fn DetachFunc) {
	d.detachers = append(d.detachers, fn)
}

func (d *Document) detached(n *html.Node) {
	for _, fn := range d.detachers {
		fn(n)
	}
}

// Reset replaces the whole tree. Observers are not notified: a reset is
// followed by a full scan, not an incremental one.
func (d *Document) Reset(root *html.Node) {
	d.root = root
	d.collected = nil
	d.queue = nil
}

// Batch runs fn and delivers every insertion it made as one batch.
func (d *Document) Batch(fn func()) {
	d.batching++
	func() {
		defer func() { d.batching-- }()
		fn()
	}()
	if d.batching == 0 {
		nodes := d.collected
		d.collected = nil
		d.deliver(nodes)
	}
}

// InsertBefore inserts a detached child under parent before ref (append
// when ref is nil) and notifies observers.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	parent.InsertBefore(child, ref)
	d.inserted(child)
}

// AppendChild appends a detached child to parent and notifies observers.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.InsertBefore(parent, child, nil)
}

// Remove detaches n from its parent and reports it to OnDetach handlers.
func (d *Document) Remove(n *html.Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
	d.detached(n)
}

// SetText replaces every child of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	d.AppendChild(n, &html.Node{Type: html.TextNode, Data: text})
}

func (d *Document) inserted(n *html.Node) {
	if d.batching > 0 {
		d.collected = append(d.collected, n)
		return
	}
	d.deliver([]*html.Node{n})
}

// deliver hands a batch to observers. An observer that inserts nodes
// does not re-enter itself: its insertions queue behind the current batch.
func (d *Document) deliver(nodes []*html.Node) {
	if len(nodes) == 0 {
		return
	}
	d.queue = append(d.queue, nodes)
	if d.dispatching {
		return
	}
	d.dispatching = true
	defer func() { d.dispatching = false }()

	for len(d.queue) > 0 {
		batch := d.queue[0]
		d.queue = d.queue[1:]
		for _, fn := range d.observers {
			fn(batch)
		}
	}
}

// SetAttr sets or replaces an attribute on an element.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// DelAttr removes an attribute from an element.
func DelAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Attr returns an attribute value.
func Attr(n *html.Node, key string) (string, bool) { return attr(n, key) }

// Contains reports whether n is attached to the tree.
func (d *Document) Contains(n *html.Node) bool {
	for a := n; a != nil; a = a.Parent {
		if a == d.root {
			return true
		}
	}
	return false
}
