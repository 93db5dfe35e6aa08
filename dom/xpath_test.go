package dom

import (
	"errors"
	"testing"

	"golang.org/x/net/html"
)

func TestXPathRoundTrip(t *testing.T) {
	d := mustParse(t, `<html><head></head><body><div><p>a</p><p>b<i>c</i>d</p></div><div>e</div></body></html>`)

	for _, u := range Collect(d.Root()) {
		xp := XPath(u)
		got, err := d.Locate(xp)
		if err != nil {
			t.Fatalf("Locate(%q): %v", xp, err)
		}
		if got != u {
			t.Errorf("Locate(XPath(%q)) returned a different node (%q)", u.Data, xp)
		}
	}
}

func TestXPathShape(t *testing.T) {
	d := mustParse(t, `<html><head></head><body><div><p>a</p><p>b<i>c</i>d</p></div><div>e</div></body></html>`)

	tests := map[string]string{
		"a": "/html/body/div[1]/p[1]/text()",
		"b": "/html/body/div[1]/p[2]/text()[1]",
		"c": "/html/body/div[1]/p[2]/i/text()",
		"d": "/html/body/div[1]/p[2]/text()[2]",
		"e": "/html/body/div[2]/text()",
	}
	for _, u := range Collect(d.Root()) {
		want, ok := tests[u.Data]
		if !ok {
			continue
		}
		if got := XPath(u); got != want {
			t.Errorf("XPath(%q): got %q, want %q", u.Data, got, want)
		}
	}
}

func TestLocateErrors(t *testing.T) {
	d := mustParse(t, `<body><p>x</p></body>`)

	if _, err := d.Locate("/html/body/p[3]"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing index: got %v, want ErrNodeNotFound", err)
	}
	if _, err := d.Locate("/html/body/p[x]"); err == nil {
		t.Error("bad index: expected error")
	}
	if _, err := d.Locate("//p[@id='x']"); err == nil {
		t.Error("predicate: expected error")
	}
	root, err := d.Locate("")
	if err != nil || root.Type != html.DocumentNode {
		t.Errorf("empty path: got %v, %v", root, err)
	}
}
