package engine

import (
	"encoding/json"
	"testing"
)

func TestEffectiveLevel(t *testing.T) {
	if got := (State{Level: 3, Enabled: false}).EffectiveLevel(); got != 0 {
		t.Errorf("disabled: got %d", got)
	}
	if got := (State{Level: 3, Enabled: true}).EffectiveLevel(); got != 3 {
		t.Errorf("enabled: got %d", got)
	}
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	s := State{Language: "ru", Level: 2, Enabled: true, HoverEnabled: true}
	got := s.Merge(Partial{Level: ptr(0)})
	want := State{Language: "ru", Level: 0, Enabled: true, HoverEnabled: true}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if s.Merge(Partial{}) != s {
		t.Error("empty partial changed state")
	}
}

func TestDiffCarriesOnlyChanges(t *testing.T) {
	a := State{Language: "ru", Level: 1, Enabled: true}
	b := State{Language: "ru", Level: 2, Enabled: true}

	p := a.Diff(b)
	if p.Level == nil || *p.Level != 2 {
		t.Fatalf("level: %+v", p)
	}
	if p.Language != nil || p.Enabled != nil || p.HoverEnabled != nil {
		t.Errorf("unchanged fields present: %+v", p)
	}
	if a.Merge(p) != b {
		t.Error("merge of diff does not reach target")
	}
	if !a.Diff(a).Empty() {
		t.Error("self diff not empty")
	}

	raw, _ := json.Marshal(p)
	if string(raw) != `{"level":2}` {
		t.Errorf("json: %s", raw)
	}
}
