// Package phone canonicalizes raw phone numbers into the single key used as
// contact identity across the whole system. Normalize is pure: no I/O, no
// side effects, and identity is exact-match only — substring containment
// between two keys is never treated as equality.
package phone

import (
	"errors"
	"fmt"
	"strings"
)

// MinSubscriberDigits is the minimum number of national digits (after the
// country code) a number must carry to be considered valid.
const MinSubscriberDigits = 9

var ErrInvalid = errors.New("phone: invalid number")

// Phone is a normalized phone number. Key is the bare digit string used as
// the map key everywhere; E164 is the same digits with a leading "+" for
// display.
type Phone struct {
	Key  string
	E164 string
}

func (p Phone) IsZero() bool { return p.Key == "" }

// Order exports use Eastern Arabic numerals; both the Arabic-Indic and the
// Extended Arabic-Indic (Persian) blocks show up in practice.
var arabicDigits = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
}

// FoldDigits maps Eastern Arabic numerals in s to their ASCII equivalents.
// All other runes pass through unchanged.
func FoldDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if d, ok := arabicDigits[r]; ok {
			b.WriteRune(d)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize canonicalizes raw into a Phone keyed under defaultCountryCode.
// Rules, in order: fold Arabic-script digits to ASCII; strip whitespace,
// hyphens and parentheses; strip a leading "+"; if the remainder already
// starts with the country code keep it, else replace a single leading "0"
// with the country code, else prepend the country code. The result must be
// all digits with at least MinSubscriberDigits national digits.
func Normalize(raw string, defaultCountryCode string) (Phone, error) {
	cc := strings.TrimPrefix(strings.TrimSpace(defaultCountryCode), "+")
	if cc == "" {
		return Phone{}, fmt.Errorf("%w: empty country code", ErrInvalid)
	}

	s := FoldDigits(strings.TrimSpace(raw))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return Phone{}, fmt.Errorf("%w: empty after cleaning", ErrInvalid)
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return Phone{}, fmt.Errorf("%w: non-digit character %q", ErrInvalid, r)
		}
	}

	switch {
	case strings.HasPrefix(s, cc):
		// already canonical
	case strings.HasPrefix(s, "0"):
		s = cc + s[1:]
	default:
		s = cc + s
	}

	if len(s)-len(cc) < MinSubscriberDigits {
		return Phone{}, fmt.Errorf("%w: too few digits (%d after country code)", ErrInvalid, len(s)-len(cc))
	}

	return Phone{Key: s, E164: "+" + s}, nil
}
