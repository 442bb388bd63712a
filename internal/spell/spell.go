// Package spell derives the phonetic key of a row name.
//
// Han characters are transliterated to toneless pinyin with the first letter
// of each syllable capitalised ("测试" -> "CeShi"); every other character is
// kept as-is after full-width forms are folded to their narrow equivalents.
// Derive is pure and deterministic: the same name always yields the same key.
package spell

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/width"
)

// ErrUntransliterable is returned for input that cannot be transliterated.
var ErrUntransliterable = errors.New("name cannot be transliterated")

var args = pinyin.NewArgs()

// Derive returns the phonetic key of name.
func Derive(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrUntransliterable)
	}

	folded := width.Fold.String(name)

	var b strings.Builder
	b.Grow(len(folded) * 2)
	for _, r := range folded {
		if !unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
			continue
		}
		syllable := syllableOf(r)
		if syllable == "" {
			// No reading in the dictionary: keep the character itself.
			b.WriteRune(r)
			continue
		}
		b.WriteString(capitalize(syllable))
	}
	return b.String(), nil
}

// syllableOf returns the first (most common) reading of a Han rune.
func syllableOf(r rune) string {
	readings := pinyin.Pinyin(string(r), args)
	if len(readings) == 0 || len(readings[0]) == 0 {
		return ""
	}
	return readings[0][0]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
