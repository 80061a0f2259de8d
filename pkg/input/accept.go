package input

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Accept reports whether a character may be typed into a field.
type Accept func(r rune) bool

// Runes accepts exactly the characters in s.
func Runes(s string) Accept {
	return func(r rune) bool {
		return strings.ContainsRune(s, r)
	}
}

// Range accepts characters between lo and hi inclusive.
func Range(lo, hi rune) Accept {
	return func(r rune) bool {
		return r >= lo && r <= hi
	}
}

// Pattern accepts characters that, on their own, match re.
func Pattern(re *regexp.Regexp) Accept {
	return func(r rune) bool {
		return re.MatchString(string(r))
	}
}

// AnyOf accepts a character if any of accepts does.
func AnyOf(accepts ...Accept) Accept {
	return func(r rune) bool {
		for _, a := range accepts {
			if a(r) {
				return true
			}
		}
		return false
	}
}

// ParseAccept parses a character class body such as "a-z0-9_-", written as
// it would appear between the brackets of a regular expression.
func ParseAccept(class string) (Accept, error) {
	if class == "" {
		return nil, errors.New("empty character class")
	}
	re, err := regexp.Compile("^[" + class + "]$")
	if err != nil {
		return nil, errors.Wrapf(err, "character class %q", class)
	}
	return Pattern(re), nil
}
