package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/sink"
)

type recorder struct {
	mu       sync.Mutex
	batches  []mutation.Batch
	overlays []mutation.Overlay
}

func (r *recorder) sink() sink.Sink {
	return sink.NewCallback(
		func(_ context.Context, b mutation.Batch) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.batches = append(r.batches, b)
			return nil
		},
		func(_ context.Context, o mutation.Overlay) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.overlays = append(r.overlays, o)
			return nil
		},
	)
}

func (r *recorder) records() []mutation.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []mutation.Record
	for _, b := range r.batches {
		out = append(out, b.Records...)
	}
	return out
}

func (r *recorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func startEngine(t *testing.T, page string, st State) (*Engine, *recorder) {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	e := New(Config{
		Document: doc,
		Resolver: profile.NewResolver(profile.Builtin()),
		Sink:     rec.sink(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Initial:  st,
		PageURL:  "https://example.com/",
		NewID:    func() string { return "id" },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the initial scan.
	if _, err := e.State(context.Background()); err != nil {
		t.Fatal(err)
	}
	return e, rec
}

func text(t *testing.T, e *Engine, xpath string) string {
	t.Helper()
	n, err := e.doc.Locate(xpath)
	if err != nil {
		t.Fatalf("locate %s: %v", xpath, err)
	}
	return n.Data
}

func ptr[T any](v T) *T { return &v }

var ru1 = State{Language: "ru", Level: 1, Enabled: true, HoverEnabled: true}

func TestInitialScanEmitsPatches(t *testing.T) {
	e, rec := startEngine(t, `<body><p>face</p><code>face</code></body>`, ru1)

	if got := text(t, e, "/html/body/p/text()"); got != "fаcе" {
		t.Errorf("p: got %q", got)
	}
	recs := rec.records()
	if len(recs) != 1 {
		t.Fatalf("records: got %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Op != mutation.OpText || r.XPath != "/html/body/p/text()" || r.Value != "fаcе" || r.OldValue != "face" {
		t.Errorf("record: %+v", r)
	}
	if b := rec.batches[0]; b.Seq != 1 || b.ID != "id" || b.PageURL != "https://example.com/" {
		t.Errorf("batch header: %+v", b)
	}
}

func TestLevelRoundTrip(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p></body>`, ru1)
	ctx := context.Background()

	if _, err := e.Update(ctx, Partial{Level: ptr(0)}); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/p/text()"); got != "face" {
		t.Errorf("level 0: got %q", got)
	}
	if _, err := e.Update(ctx, Partial{Level: ptr(1)}); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/p/text()"); got != "fаcе" {
		t.Errorf("level 1 again: got %q", got)
	}
}

func TestDisabledSiteKeepsLevel(t *testing.T) {
	st := State{Language: "ru", Level: 2, Enabled: false}
	e, rec := startEngine(t, `<body><p>peace</p></body>`, st)
	ctx := context.Background()

	if got := text(t, e, "/html/body/p/text()"); got != "peace" {
		t.Fatalf("disabled: got %q", got)
	}
	if rec.batchCount() != 0 {
		t.Errorf("disabled site emitted %d batches", rec.batchCount())
	}

	got, err := e.Update(ctx, Partial{Enabled: ptr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 2 || got.EffectiveLevel() != 2 {
		t.Errorf("state: %+v", got)
	}
	if v := text(t, e, "/html/body/p/text()"); v != "реасе" {
		t.Errorf("enabled: got %q", v)
	}

	e.Update(ctx, Partial{Enabled: ptr(false)})
	if v := text(t, e, "/html/body/p/text()"); v != "peace" {
		t.Errorf("disabled again: got %q", v)
	}
}

func insertBatch() *mutation.Batch {
	return &mutation.Batch{ID: "w1", Records: []mutation.Record{{
		Op:       mutation.OpInsert,
		XPath:    "/html/body/div",
		NodeType: mutation.ElementNode,
		HTML:     `<div>cafe <code>face</code></div>`,
	}}}
}

func TestLiveSyncIdleDoesNothing(t *testing.T) {
	e, rec := startEngine(t, `<body><p>x</p></body>`, State{Language: "ru", Level: 0, Enabled: true})
	if e.live.Armed() {
		t.Fatal("armed at level 0")
	}
	if err := e.Apply(context.Background(), insertBatch()); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/div/text()"); got != "cafe " {
		t.Errorf("idle rewrite: got %q", got)
	}
	if rec.batchCount() != 0 {
		t.Errorf("idle emitted %d batches", rec.batchCount())
	}
}

func TestLiveSyncArmedRewritesInsertions(t *testing.T) {
	e, rec := startEngine(t, `<body><p>x</p></body>`, ru1)
	if !e.live.Armed() {
		t.Fatal("not armed at level 1")
	}
	if err := e.Apply(context.Background(), insertBatch()); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/div/text()"); got != "cаfе " {
		t.Errorf("div text: got %q", got)
	}
	if got := text(t, e, "/html/body/div/code/text()"); got != "face" {
		t.Errorf("code rewritten: got %q", got)
	}
	recs := rec.records()
	if len(recs) != 1 || recs[0].XPath != "/html/body/div/text()" {
		t.Errorf("patches: %+v", recs)
	}

	// A single text node insert goes through the same gate.
	err := e.Apply(context.Background(), &mutation.Batch{Records: []mutation.Record{{
		Op: mutation.OpInsert, XPath: "/html/body/p/text()[2]", NodeType: mutation.TextNode, Value: " tea",
	}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/p/text()[2]"); got != " tеа" {
		t.Errorf("text insert: got %q", got)
	}
}

func TestTextEchoKeepsOrigin(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p></body>`, ru1)
	ctx := context.Background()

	echo := &mutation.Batch{Records: []mutation.Record{{
		Op: mutation.OpText, XPath: "/html/body/p/text()", Value: "fаcе", OldValue: "face",
	}}}
	if err := e.Apply(ctx, echo); err != nil {
		t.Fatal(err)
	}
	if e.origins.Len() != 1 {
		t.Fatalf("origins after echo: %d", e.origins.Len())
	}

	edit := &mutation.Batch{Records: []mutation.Record{{
		Op: mutation.OpText, XPath: "/html/body/p/text()", Value: "cake",
	}}}
	if err := e.Apply(ctx, edit); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/p/text()"); got != "cаkе" {
		t.Errorf("page edit: got %q", got)
	}
	e.Update(ctx, Partial{Level: ptr(0)})
	if got := text(t, e, "/html/body/p/text()"); got != "cake" {
		t.Errorf("restore after page edit: got %q, want the page's text", got)
	}
}

func TestRemoveForgetsOrigins(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p><p>safe</p></body>`, ru1)
	if e.origins.Len() != 2 {
		t.Fatalf("origins: got %d, want 2", e.origins.Len())
	}
	err := e.Apply(context.Background(), &mutation.Batch{Records: []mutation.Record{{
		Op: mutation.OpRemove, XPath: "/html/body/p[1]",
	}}})
	if err != nil {
		t.Fatal(err)
	}
	if e.origins.Len() != 1 {
		t.Errorf("origins after remove: got %d, want 1", e.origins.Len())
	}
}

func TestRemoveForgetsEachDetachedNode(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p><p>safe</p><p>cafe</p></body>`, ru1)
	if e.origins.Len() != 3 {
		t.Fatalf("origins: got %d, want 3", e.origins.Len())
	}
	// Both records name the first paragraph of the tree as it is when
	// each one runs.
	err := e.Apply(context.Background(), &mutation.Batch{Records: []mutation.Record{
		{Op: mutation.OpRemove, XPath: "/html/body/p[1]"},
		{Op: mutation.OpRemove, XPath: "/html/body/p[1]"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/p/text()"); got != "c\u0430f\u0435" {
		t.Errorf("remaining: got %q", got)
	}
	if e.origins.Len() != 1 {
		t.Errorf("origins after remove: got %d, want 1", e.origins.Len())
	}
}

func TestApplyReportsUnknownPaths(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p></body>`, ru1)
	err := e.Apply(context.Background(), &mutation.Batch{ID: "b", Records: []mutation.Record{
		{Op: mutation.OpRemove, XPath: "/html/body/ul"},
		{Op: mutation.OpInsert, XPath: "/html/body/p[2]", NodeType: mutation.ElementNode, HTML: "<p>late</p>"},
	}})
	if err == nil {
		t.Fatal("expected an error for the missing node")
	}
	if got := text(t, e, "/html/body/p[2]/text()"); got != "lаtе" {
		t.Errorf("later record not applied: got %q", got)
	}
}

func TestHoverRevealsOrigin(t *testing.T) {
	e, rec := startEngine(t, `<body><p>face</p></body>`, ru1)
	ctx := context.Background()

	ov, err := e.Pointer(ctx, mutation.Pointer{X: 10, Y: 40, XPath: "/html/body/p/text()"})
	if err != nil {
		t.Fatal(err)
	}
	want := mutation.Overlay{Visible: true, Text: "face", X: 10, Y: 60}
	if ov != want {
		t.Errorf("overlay: got %+v, want %+v", ov, want)
	}

	// The overlay lives in the document but is never rewritten, even
	// though its text was inserted while live sync is armed.
	tip, err := e.doc.Locate("/html/body/" + dom.OverlayTag + "/text()")
	if err != nil {
		t.Fatal(err)
	}
	if tip.Data != "face" {
		t.Errorf("overlay text rewritten: %q", tip.Data)
	}
	if _, ok := e.origins.Origin(tip); ok {
		t.Error("overlay text has an origin")
	}
	if got := text(t, e, "/html/body/p/text()"); got != "fаcе" {
		t.Errorf("hover changed the unit: %q", got)
	}

	// Same state again is not re-sent.
	e.Pointer(ctx, mutation.Pointer{X: 10, Y: 40, XPath: "/html/body/p/text()"})
	rec.mu.Lock()
	n := len(rec.overlays)
	rec.mu.Unlock()
	if n != 1 {
		t.Errorf("overlays sent: got %d, want 1", n)
	}
}

func TestHoverHidden(t *testing.T) {
	tests := []struct {
		name  string
		state State
		xpath string
	}{
		{"hover disabled", State{Language: "ru", Level: 1, Enabled: true}, "/html/body/p[1]/text()"},
		{"level zero", State{Language: "ru", Level: 0, Enabled: true, HoverEnabled: true}, "/html/body/p[1]/text()"},
		{"no origin", ru1, "/html/body/p[2]/text()"},
		{"no unit", ru1, "/html/body/ul/text()"},
		{"element", ru1, "/html/body/p[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := startEngine(t, `<body><p>face</p><p>xyz</p></body>`, tt.state)
			ov, err := e.Pointer(context.Background(), mutation.Pointer{X: 1, Y: 1, XPath: tt.xpath})
			if err != nil {
				t.Fatal(err)
			}
			if ov.Visible {
				t.Errorf("overlay visible: %+v", ov)
			}
		})
	}
}

func TestLoadSnapshotRescans(t *testing.T) {
	e, rec := startEngine(t, `<body><p>face</p></body>`, ru1)
	ctx := context.Background()
	e.Pointer(ctx, mutation.Pointer{XPath: "/html/body/p/text()"})

	snap := &mutation.Snapshot{ID: "s", PageURL: "https://example.com/b", HTML: []byte(`<html><body><h1>sea</h1></body></html>`)}
	if err := e.Load(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if got := text(t, e, "/html/body/h1/text()"); got != "sеа" {
		t.Errorf("h1: got %q", got)
	}
	if e.origins.Len() != 1 {
		t.Errorf("origins: got %d, want 1", e.origins.Len())
	}
	rec.mu.Lock()
	last := rec.batches[len(rec.batches)-1]
	rec.mu.Unlock()
	if last.PageURL != "https://example.com/b" || last.Seq != 2 {
		t.Errorf("batch after load: %+v", last)
	}

	if _, err := e.doc.Locate("/html/body/" + dom.OverlayTag); err == nil {
		t.Error("overlay survived the reset")
	}
}

func TestRenderLeavesOutOverlay(t *testing.T) {
	e, _ := startEngine(t, `<body><p>face</p></body>`, ru1)
	ctx := context.Background()

	ov, err := e.Pointer(ctx, mutation.Pointer{X: 5, Y: 5, XPath: "/html/body/p/text()"})
	if err != nil || !ov.Visible {
		t.Fatalf("reveal: %+v %v", ov, err)
	}
	for _, f := range []dom.Format{dom.FormatHTML, dom.FormatText, dom.FormatMarkdown} {
		var buf strings.Builder
		if err := e.Render(ctx, &buf, f); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if strings.Contains(out, "face") || strings.Contains(out, dom.OverlayTag) {
			t.Errorf("%s: origin text leaked: %q", f, out)
		}
		if !strings.Contains(out, "f\u0430c\u0435") {
			t.Errorf("%s: rewritten text missing: %q", f, out)
		}
	}
}

func TestStoppedEngine(t *testing.T) {
	e := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Run(ctx)
	if _, err := e.State(context.Background()); err != ErrStopped {
		t.Errorf("err: got %v, want ErrStopped", err)
	}
}
