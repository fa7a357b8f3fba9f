package slugs

import (
	"errors"
	"strings"
	"testing"
)

func TestSuggest(t *testing.T) {
	testCases := []struct {
		name string
		want string
	}{
		{"Openlabs Technologies", "openlabs-technologies"},
		{"  Titan  ", "titan"},
		{"Ünïcode Team", "unicode-team"},
	}
	for _, tc := range testCases {
		if got := Suggest(tc.name); got != tc.want {
			t.Errorf("Suggest(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
	if got := Suggest(strings.Repeat("a", 100)); len(got) != MaxLength {
		t.Errorf("Suggest long name length = %d, want %d", len(got), MaxLength)
	}
}

func TestValidateOrganisation(t *testing.T) {
	testCases := []struct {
		slug string
		want error
	}{
		{"openlabs", nil},
		{"open_labs-2", nil},
		{"", ErrInvalid},
		{"Open Labs", ErrInvalid},
		{"+slug-check", ErrInvalid},
		{strings.Repeat("a", MaxLength+1), ErrInvalid},
		{"login", ErrReserved},
		{"my-organisations", ErrReserved},
		{"projects", nil},
	}
	for _, tc := range testCases {
		if got := ValidateOrganisation(tc.slug); !errors.Is(got, tc.want) {
			t.Errorf("ValidateOrganisation(%q) = %v, want %v", tc.slug, got, tc.want)
		}
	}
}

func TestValidateProject(t *testing.T) {
	testCases := []struct {
		slug string
		want error
	}{
		{"titan", nil},
		{"login", nil},
		{"projects", ErrReserved},
		{"remove", ErrReserved},
		{"bad/slug", ErrInvalid},
	}
	for _, tc := range testCases {
		if got := ValidateProject(tc.slug); !errors.Is(got, tc.want) {
			t.Errorf("ValidateProject(%q) = %v, want %v", tc.slug, got, tc.want)
		}
	}
}
