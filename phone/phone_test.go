package phone

import (
	"errors"
	"testing"
)

func TestNormalizeSaudiFormats(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"e164", "+966501234567"},
		{"bare country code", "966501234567"},
		{"leading zero", "0501234567"},
		{"subscriber only", "501234567"},
		{"spaced", "+966 50 123 4567"},
		{"hyphenated", "050-123-4567"},
		{"parenthesized", "(050) 123 4567"},
		{"arabic numerals leading zero", "٠٥٠١٢٣٤٥٦٧"},
		{"arabic numerals bare", "٥٠١٢٣٤٥٦٧"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Normalize(tc.raw, "966")
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tc.raw, err)
			}
			if p.Key != "966501234567" {
				t.Errorf("Normalize(%q) key = %q, want %q", tc.raw, p.Key, "966501234567")
			}
			if p.E164 != "+966501234567" {
				t.Errorf("Normalize(%q) e164 = %q, want %q", tc.raw, p.E164, "+966501234567")
			}
		})
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"too short", "12345678"},
		{"too short with country code", "96612345678"},
		{"letters", "05012345ab"},
		{"letters after arabic folding", "٠٥٠١٢٣abc"},
		{"empty", ""},
		{"plus only", "+"},
		{"embedded plus", "+9665+01234567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.raw, "966"); !errors.Is(err, ErrInvalid) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalid", tc.raw, err)
			}
		})
	}
}

func TestNormalizeExactKeyOnly(t *testing.T) {
	a, err := Normalize("+966501234567", "966")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	b, err := Normalize("+96650123456789", "966")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	// One key being a prefix of another must never make them equal.
	if a.Key == b.Key {
		t.Errorf("distinct numbers normalized to the same key %q", a.Key)
	}
}

func TestFoldDigits(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"٠١٢٣٤٥٦٧٨٩", "0123456789"},
		{"٠٥٠١٢٣٤٥٦٧", "0501234567"},
		{"Test ١٢٣", "Test 123"},
		{"۰۵۰", "050"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := FoldDigits(tc.in); got != tc.want {
			t.Errorf("FoldDigits(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeOtherCountryCode(t *testing.T) {
	p, err := Normalize("0612345678", "212")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	if p.Key != "212612345678" {
		t.Errorf("key = %q, want %q", p.Key, "212612345678")
	}
}
