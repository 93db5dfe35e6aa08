package profile

import "testing"

func ids(ps []*Profile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestVisibleDefaultHidesFunModes(t *testing.T) {
	got := ids(Builtin().Visible(DefaultFilter()))
	for _, id := range got {
		if id == "lat_to_futhark" {
			t.Fatalf("fun mode visible under default filter: %v", got)
		}
	}
	if len(got) != 4 {
		t.Errorf("visible: got %v, want 4 profiles", got)
	}
}

func TestVisibleScriptFilters(t *testing.T) {
	f := DefaultFilter()
	f.Cyrillic = false
	f.Korean = false
	f.FunModes = true

	got := ids(Builtin().Visible(f))
	want := []string{"lat_to_gre", "lat_to_arm", "lat_to_futhark"}
	if len(got) != len(want) {
		t.Fatalf("visible: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visible[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGrouped(t *testing.T) {
	groups := Grouped(Builtin().Visible(DefaultFilter()))
	if len(groups) != 2 {
		t.Fatalf("groups: got %d, want 2 (Latin, Korean)", len(groups))
	}
	if groups[0].Source != "Latin" || len(groups[0].Profiles) != 3 {
		t.Errorf("group 0: got %s with %d", groups[0].Source, len(groups[0].Profiles))
	}
	if groups[1].Source != "Korean" {
		t.Errorf("group 1: got %s, want Korean", groups[1].Source)
	}
}
