package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Format is an output rendering of the document.
type Format string

const (
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHTML, FormatText, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("dom: unknown format %q (html, text, markdown)", s)
}

// Render writes the page content in the given format. The hover overlay is
// never part of the output.
func (d *Document) Render(w io.Writer, f Format) error {
	switch f {
	case FormatHTML, "":
		return html.Render(w, withoutOverlay(d.root))
	case FormatText:
		_, err := io.WriteString(w, Text(d.Body()))
		return err
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := html.Render(&buf, withoutOverlay(d.root)); err != nil {
			return err
		}
		conv := converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
		md, err := conv.ConvertString(buf.String())
		if err != nil {
			return fmt.Errorf("dom: markdown: %w", err)
		}
		_, err = io.WriteString(w, md)
		return err
	default:
		return fmt.Errorf("dom: unknown format %q", f)
	}
}

// withoutOverlay returns a deep copy of n with overlay elements left out.
func withoutOverlay(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if IsOverlay(ch) {
			continue
		}
		c.AppendChild(withoutOverlay(ch))
	}
	return c
}

// Text collects the readable text under n, skipping script, style and
// the hover overlay. Block elements are separated by newlines.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
			if IsOverlay(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			sb.WriteByte('\n')
		}
	}
	walk(n)
	return strings.TrimSpace(collapseBlankLines(sb.String()))
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Pre, atom.Blockquote:
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
