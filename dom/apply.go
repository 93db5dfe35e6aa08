package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bookaj/footalk/mutation"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Apply replays watcher records onto the tree. All insertions are
// delivered to observers as one batch once every record has been applied.
// A record that cannot be applied is skipped; the joined errors are returned.
func (d *Document) Apply(records []mutation.Record) error {
	var errs []error
	d.Batch(func() {
		for _, rec := range records {
			if err := d.applyOne(rec); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", rec.Op, rec.XPath, err))
			}
		}
	})
	return errors.Join(errs...)
}

func (d *Document) applyOne(rec mutation.Record) error {
	switch rec.Op {
	case mutation.OpInsert:
		return d.applyInsert(rec)

	case mutation.OpRemove:
		n, err := d.Locate(rec.XPath)
		if err != nil {
			return err
		}
		d.Remove(n)
		return nil

	case mutation.OpText:
		return d.applyText(rec)

	case mutation.OpAttr, mutation.OpAttrDel:
		n, err := d.Locate(rec.XPath)
		if err != nil {
			return err
		}
		if n.Type != html.ElementNode {
			return fmt.Errorf("dom: attribute on non-element")
		}
		if rec.Op == mutation.OpAttr {
			SetAttr(n, rec.Name, rec.Value)
		} else {
			DelAttr(n, rec.Name)
		}
		return nil

	case mutation.OpDocReset:
		// The replacement tree arrives as a snapshot.
		d.logger.Debug("dom: doc_reset record, awaiting snapshot")
		return nil

	default:
		return fmt.Errorf("dom: unknown op %q", rec.Op)
	}
}

func (d *Document) applyInsert(rec mutation.Record) error {
	segs := splitPath(rec.XPath)
	if len(segs) == 0 {
		return fmt.Errorf("dom: insert needs a node path")
	}
	parent, err := d.Locate(strings.Join(segs[:len(segs)-1], "/"))
	if err != nil {
		return err
	}
	last, err := parseStep(segs[len(segs)-1])
	if err != nil {
		return err
	}

	nodes, err := buildNodes(rec, parent)
	if err != nil {
		return err
	}

	// The new node takes the position its path names: before the node
	// currently holding that index, or at the end.
	ref := nthChild(parent, last)
	for _, n := range nodes {
		d.InsertBefore(parent, n, ref)
	}
	return nil
}

func buildNodes(rec mutation.Record, parent *html.Node) ([]*html.Node, error) {
	switch rec.NodeType {
	case mutation.TextNode:
		text := rec.HTML
		if text == "" {
			text = rec.Value
		}
		return []*html.Node{{Type: html.TextNode, Data: text}}, nil
	case mutation.CommentNode:
		return []*html.Node{{Type: html.CommentNode, Data: rec.HTML}}, nil
	}

	if rec.HTML == "" {
		tag := strings.ToLower(rec.Tag)
		if tag == "" {
			return nil, fmt.Errorf("dom: insert without html or tag")
		}
		return []*html.Node{{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}}, nil
	}

	ctx := parent
	if ctx.Type != html.ElementNode {
		ctx = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(rec.HTML), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// applyText handles character data replaced by the page. A value equal to
// the current one is an echo (typically of a patch footalk sent) and is
// ignored. Any other value makes the unit new content: it is swapped for a
// fresh node so no origin captured for the old text can be restored over it.
func (d *Document) applyText(rec mutation.Record) error {
	n, err := d.Locate(rec.XPath)
	if err != nil {
		return err
	}
	if n.Type != html.TextNode {
		return fmt.Errorf("dom: text record on non-text node")
	}
	if n.Data == rec.Value {
		return nil
	}
	parent, next := n.Parent, n.NextSibling
	d.Remove(n)
	d.InsertBefore(parent, &html.Node{Type: html.TextNode, Data: rec.Value}, next)
	return nil
}
