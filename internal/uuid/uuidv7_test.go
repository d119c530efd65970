package uuid

import (
	"testing"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()

	if !IsValid(a) || !IsValid(b) {
		t.Fatalf("expected valid UUIDs, got %q and %q", a, b)
	}
	if a == b {
		t.Fatal("expected distinct UUIDs")
	}
	if a[14] != '7' {
		t.Errorf("expected version 7, got %q", a)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("0190A8B4-7C3E-7000-8000-000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190a8b4-7c3e-7000-8000-000000000001" {
		t.Errorf("expected lower-case canonical form, got %q", got)
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}

func TestCanonical(t *testing.T) {
	const canonical = "0190a8b4-7c3e-7000-8000-000000000001"

	tests := []struct {
		in   string
		want string
	}{
		{in: "0190A8B4-7C3E-7000-8000-000000000001", want: canonical},
		{in: "{0190a8b4-7c3e-7000-8000-000000000001}", want: canonical},
		{in: canonical, want: canonical},
		{in: "TG-000001", want: "TG-000001"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if CanonicalPtr(nil) != nil {
		t.Error("expected nil to stay nil")
	}
	empty := ""
	if got := CanonicalPtr(&empty); got == nil || *got != "" {
		t.Error("expected empty id to stay empty")
	}
	upper := "0190A8B4-7C3E-7000-8000-000000000001"
	if got := CanonicalPtr(&upper); *got != canonical {
		t.Errorf("expected %q, got %q", canonical, *got)
	}

	if CanonicalAll(nil) != nil {
		t.Error("expected nil slice to stay nil")
	}
	all := CanonicalAll([]string{upper, canonical})
	if all[0] != canonical || all[1] != canonical {
		t.Errorf("unexpected ids %v", all)
	}
}
