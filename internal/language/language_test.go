package language_test

import (
	"testing"

	"captioner/internal/language"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"English", "en"},
		{"Spanish", "es"},
		{"  spanish ", "es"},
		{"Español", "es"},
		{"German", "de"},
		{"fra", "fr"},
		{"pt-BR", "pt"},
		{"Polish", "pl"},
		{"Tagalog", "tl"},
	}
	for _, tt := range tests {
		if got := language.Resolve(tt.name); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveFallsBackToDisplayNames(t *testing.T) {
	if got := language.Resolve("Swahili"); got != "sw" {
		t.Fatalf("Resolve(Swahili) = %q, want sw", got)
	}
}

func TestResolveUnknownKeepsNormalizedName(t *testing.T) {
	got := language.Resolve("Middle  Earthish")
	if got != "middle-earthish" {
		t.Fatalf("unexpected fallback code %q", got)
	}
	if _, ok := language.Lookup("Middle Earthish"); ok {
		t.Fatal("expected Lookup to report unknown language")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"es", "Spanish"},
		{"spa", "Spanish"},
		{"english", "English"},
		{"", "Unknown"},
		{"sw", "Swahili"},
	}
	for _, tt := range tests {
		if got := language.DisplayName(tt.in); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToISO3(t *testing.T) {
	if got := language.ToISO3("Spanish"); got != "spa" {
		t.Fatalf("ToISO3(Spanish) = %q", got)
	}
	if got := language.ToISO3(""); got != "und" {
		t.Fatalf("ToISO3(\"\") = %q", got)
	}
}

func TestTargetsIncludesSourceOnce(t *testing.T) {
	targets := language.Targets("English", []string{"English", "Spanish", "es", "french", ""})
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d: %+v", len(targets), targets)
	}
	want := []language.Target{
		{Name: "English", Code: "en"},
		{Name: "Spanish", Code: "es"},
		{Name: "French", Code: "fr"},
	}
	for i, target := range targets {
		if target != want[i] {
			t.Fatalf("target %d = %+v, want %+v", i, target, want[i])
		}
	}
}

func TestTargetsWithoutRequests(t *testing.T) {
	targets := language.Targets("English", nil)
	if len(targets) != 1 || targets[0].Code != "en" {
		t.Fatalf("unexpected targets: %+v", targets)
	}
}
