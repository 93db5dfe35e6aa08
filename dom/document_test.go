package dom

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Bookaj/footalk/mutation"
	"golang.org/x/net/html"
)

func TestApplyInsertDeliversOneBatch(t *testing.T) {
	d := mustParse(t, `<html><head></head><body><p>one</p><p>three</p></body></html>`)

	var batches [][]*html.Node
	d.Observe(func(nodes []*html.Node) { batches = append(batches, nodes) })

	err := d.Apply([]mutation.Record{
		{Op: mutation.OpInsert, XPath: "/html/body/p[2]", NodeType: mutation.ElementNode, Tag: "p", HTML: "<p>two</p>"},
		{Op: mutation.OpInsert, XPath: "/html/body/text()", NodeType: mutation.TextNode, HTML: "tail"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches: got %d (first len %d), want 1 batch of 2", len(batches), len(batches[0]))
	}

	if got := Text(d.Body()); got != "one\ntwo\nthree\ntail" {
		t.Errorf("text: got %q", got)
	}
}

func TestApplyRemoveAndAttr(t *testing.T) {
	d := mustParse(t, `<body><p>keep</p><p>drop</p><div>x</div></body>`)

	err := d.Apply([]mutation.Record{
		{Op: mutation.OpRemove, XPath: "/html/body/p[2]"},
		{Op: mutation.OpAttr, XPath: "/html/body/div", Name: "contenteditable", Value: "true"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(Text(d.Body()), "drop") {
		t.Error("removed paragraph still present")
	}
	div, _ := d.Locate("/html/body/div")
	if v, ok := Attr(div, "contenteditable"); !ok || v != "true" {
		t.Errorf("attr: got %q %v", v, ok)
	}
	if Eligible(div.FirstChild) {
		t.Error("text under newly editable div must not be eligible")
	}

	if err := d.Apply([]mutation.Record{{Op: mutation.OpAttrDel, XPath: "/html/body/div", Name: "contenteditable"}}); err != nil {
		t.Fatal(err)
	}
	if _, ok := Attr(div, "contenteditable"); ok {
		t.Error("attr_del did not remove attribute")
	}
}

func TestApplyTextEchoIsIgnored(t *testing.T) {
	d := mustParse(t, `<body><p>same</p></body>`)
	before := d.Body().FirstChild.FirstChild

	var notified int
	d.Observe(func(nodes []*html.Node) { notified += len(nodes) })

	if err := d.Apply([]mutation.Record{{Op: mutation.OpText, XPath: "/html/body/p/text()", Value: "same"}}); err != nil {
		t.Fatal(err)
	}
	if d.Body().FirstChild.FirstChild != before || notified != 0 {
		t.Error("echoed text must leave the node untouched")
	}

	if err := d.Apply([]mutation.Record{{Op: mutation.OpText, XPath: "/html/body/p/text()", Value: "fresh"}}); err != nil {
		t.Fatal(err)
	}
	after := d.Body().FirstChild.FirstChild
	if after == before || after.Data != "fresh" {
		t.Error("changed text must replace the unit with a new node")
	}
	if notified != 1 {
		t.Errorf("notified: got %d, want 1", notified)
	}
}

func TestApplyCollectsErrorsAndContinues(t *testing.T) {
	d := mustParse(t, `<body></body>`)
	err := d.Apply([]mutation.Record{
		{Op: mutation.OpRemove, XPath: "/html/body/nope"},
		{Op: mutation.OpInsert, XPath: "/html/body/p", NodeType: mutation.ElementNode, HTML: "<p>ok</p>"},
		{Op: "bogus"},
	})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if Text(d.Body()) != "ok" {
		t.Errorf("valid record not applied: %q", Text(d.Body()))
	}
}

func TestObserverInsertionsAreQueuedNotReentered(t *testing.T) {
	d := mustParse(t, `<body></body>`)
	body := d.Body()

	depth, maxDepth := 0, 0
	var order []string
	d.Observe(func(nodes []*html.Node) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		for _, n := range nodes {
			order = append(order, n.Data)
			if n.Data == "first" {
				d.AppendChild(body, &html.Node{Type: html.TextNode, Data: "second"})
			}
		}
		depth--
	})

	d.AppendChild(body, &html.Node{Type: html.TextNode, Data: "first"})

	if maxDepth != 1 {
		t.Errorf("observer re-entered: max depth %d", maxDepth)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order: got %v", order)
	}
}

func TestRenderFormats(t *testing.T) {
	d := mustParse(t, `<html><head><title>t</title></head><body><h1>Head</h1><p>body <b>text</b></p><script>x()</script></body></html>`)

	var buf bytes.Buffer
	if err := d.Render(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Head\nbody text" {
		t.Errorf("text: got %q", got)
	}

	buf.Reset()
	if err := d.Render(&buf, FormatMarkdown); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "# Head") || !strings.Contains(buf.String(), "**text**") {
		t.Errorf("markdown: got %q", buf.String())
	}

	buf.Reset()
	if err := d.Render(&buf, FormatHTML); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "<html>") {
		t.Errorf("html: got %q", buf.String())
	}

	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("ParseFormat(pdf): expected error")
	}
}
