package catalog_test

import (
	"slices"
	"testing"

	"tacticsdb/internal/catalog"
)

func TestNextUniqueName(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		existing []string
		want     string
	}{
		{name: "free", base: "New Unit", existing: nil, want: "New Unit"},
		{name: "first collision", base: "New Unit", existing: []string{"New Unit"}, want: "New Unit (1)"},
		{name: "second collision", base: "New Unit", existing: []string{"New Unit", "New Unit (1)"}, want: "New Unit (2)"},
		{name: "gap reused", base: "New Unit", existing: []string{"New Unit", "New Unit (2)"}, want: "New Unit (1)"},
		{name: "suffix stripped", base: "Knight (2)", existing: []string{"Knight", "Knight (1)", "Knight (2)"}, want: "Knight (3)"},
		{name: "suffix stripped reuses gap", base: "Knight (2)", existing: []string{"Knight (2)"}, want: "Knight (1)"},
		{name: "parens not a suffix", base: "Sword (Iron)", existing: []string{"Sword (Iron)"}, want: "Sword (Iron) (1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := slices.Clone(tt.existing)
			if got := catalog.NextUniqueName(tt.base, existing); got != tt.want {
				t.Fatalf("NextUniqueName(%q)=%q want %q", tt.base, got, tt.want)
			}
			if !slices.Equal(existing, tt.existing) {
				t.Fatalf("input changed: %v", existing)
			}
		})
	}
}

func TestNextUniqueInt(t *testing.T) {
	cases := []struct {
		base     string
		existing []string
		want     string
	}{
		{"0", nil, "0"},
		{"0", []string{"0", "1", "3"}, "2"},
		{"3", []string{"0", "1", "3"}, "4"},
		{"New Level", []string{"1"}, "0"},
	}
	for _, c := range cases {
		if got := catalog.NextUniqueInt(c.base, c.existing); got != c.want {
			t.Fatalf("NextUniqueInt(%q, %v)=%q want %q", c.base, c.existing, got, c.want)
		}
	}
}
