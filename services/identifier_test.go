package services

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"classconnect-scraper/models"
)

var (
	generatedID  = regexp.MustCompile(`^[a-z0-9]{15}$`)
	randomSuffix = regexp.MustCompile(`^[a-z0-9]*$`)
)

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if !generatedID.MatchString(id) {
			t.Fatalf("NewID() = %q; want 15 chars of [a-z0-9]", id)
		}
		seen[id] = true
	}
	if len(seen) < 199 {
		t.Errorf("NewID produced %d distinct ids out of 200", len(seen))
	}
}

func TestPadID(t *testing.T) {
	tests := []struct {
		name     string
		external string
	}{
		{"short", "CS"},
		{"empty", ""},
		{"one short", "12345678901234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PadID(tt.external)
			if err != nil {
				t.Fatalf("PadID(%q): %v", tt.external, err)
			}
			if len(got) != models.IDLength {
				t.Errorf("PadID(%q) = %q; want length %d", tt.external, got, models.IDLength)
			}
			if !strings.HasPrefix(got, tt.external) {
				t.Errorf("PadID(%q) = %q; want external id as prefix", tt.external, got)
			}
			if !randomSuffix.MatchString(got[len(tt.external):]) {
				t.Errorf("PadID(%q) = %q; suffix outside [a-z0-9]", tt.external, got)
			}
		})
	}
}

func TestPadIDTruncatesDeterministically(t *testing.T) {
	for _, ext := range []string{"123456789012345", "1234567890123456789"} {
		a, _ := PadID(ext)
		b, _ := PadID(ext)
		if a != "123456789012345" || a != b {
			t.Errorf("PadID(%q) = %q, %q; want 123456789012345 twice", ext, a, b)
		}
	}
}

func TestPadIDCountsCharactersNotBytes(t *testing.T) {
	tests := []struct {
		external string
		want     string
	}{
		{strings.Repeat("É", 16), strings.Repeat("É", 15)},
		{strings.Repeat("É", 15), strings.Repeat("É", 15)},
	}
	for _, tt := range tests {
		got, err := PadID(tt.external)
		if err != nil {
			t.Fatalf("PadID(%q): %v", tt.external, err)
		}
		if got != tt.want {
			t.Errorf("PadID(%q) = %q; want %q", tt.external, got, tt.want)
		}
	}

	got, err := PadID("ÉÉ")
	if err != nil {
		t.Fatalf("PadID: %v", err)
	}
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != models.IDLength {
		t.Errorf("PadID(%q) = %q; want %d valid characters", "ÉÉ", got, models.IDLength)
	}
	if !strings.HasPrefix(got, "ÉÉ") {
		t.Errorf("PadID(%q) = %q; want external id as prefix", "ÉÉ", got)
	}
}
