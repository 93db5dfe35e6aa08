package profile

import "testing"

func TestBuiltinLoads(t *testing.T) {
	reg := Builtin()

	ru, ok := reg.Get("ru")
	if !ok {
		t.Fatal("builtin ru profile missing")
	}
	if ru.MaxLevel() != 3 {
		t.Errorf("ru MaxLevel: got %d, want 3", ru.MaxLevel())
	}
	if got := ru.Level(1)["a"]; got != "а" {
		t.Errorf("ru level 1 a: got %q, want Cyrillic а", got)
	}
	if ru.Level(0) != nil {
		t.Error("level 0 must have no map")
	}

	gre, _ := reg.Get("lat_to_gre")
	if gre.PostProcess == nil {
		t.Error("lat_to_gre: post_process not bound")
	}

	ko, _ := reg.Get("korean_to_lat")
	if !ko.Decomposing() {
		t.Error("korean_to_lat should be decomposing")
	}
	if ru.Decomposing() {
		t.Error("ru should not be decomposing")
	}
	if got := ko.Level(1)["ᅡ"]; got != "a" {
		t.Errorf("korean level 1 jamo key: got %q, want a", got)
	}
}

func TestLoadRejectsUnknownPostProcess(t *testing.T) {
	_, err := Load([]byte(`
profiles:
  - id: x
    post_process: nope
    levels: [{a: b}]
`))
	if err == nil {
		t.Fatal("expected error for unknown post_process")
	}
}

func TestLoadRejectsMissingID(t *testing.T) {
	if _, err := Load([]byte("profiles:\n  - name: nameless\n")); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Latin -> Cyrillic", "Latin"},
		{"Korean->Latin", "Korean"},
		{"Morse code", "Other"},
	}
	for _, tt := range tests {
		p := &Profile{Name: tt.name}
		if got := p.Source(); got != tt.want {
			t.Errorf("Source(%q): got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGreekFinalSigma(t *testing.T) {
	tests := []struct{ in, want string }{
		{"λογοσ", "λογος"},
		{"σοφια", "σοφια"},
		{"οσ, και", "ος, και"},
		{"σ", "σ"},
	}
	for _, tt := range tests {
		if got := greekFinalSigma(tt.in); got != tt.want {
			t.Errorf("greekFinalSigma(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewRegistryDuplicateReplacesInPlace(t *testing.T) {
	a1 := &Profile{ID: "a", Name: "first"}
	b := &Profile{ID: "b"}
	a2 := &Profile{ID: "a", Name: "second"}

	reg := NewRegistry(a1, b, a2)
	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List: got %d, want 2", len(list))
	}
	if list[0].Name != "second" || list[1].ID != "b" {
		t.Errorf("order: got [%s %s]", list[0].Name, list[1].ID)
	}
}

func TestMergeOverridesBuiltin(t *testing.T) {
	extra, err := Load([]byte(`
profiles:
  - id: ru
    name: "Latin -> Cyrillic"
    levels:
      - { o: "о" }
  - id: lat_to_morse
    name: "Latin -> Morse"
    levels:
      - { e: "." }
`))
	if err != nil {
		t.Fatal(err)
	}
	reg := Builtin().Merge(extra)

	ru, _ := reg.Get("ru")
	if ru.MaxLevel() != 1 || ru.Level(1)["o"] != "о" {
		t.Errorf("ru not replaced: %+v", ru.Levels)
	}
	list := reg.List()
	if list[0].ID != "ru" || list[len(list)-1].ID != "lat_to_morse" {
		t.Errorf("order: first %s last %s", list[0].ID, list[len(list)-1].ID)
	}
}
