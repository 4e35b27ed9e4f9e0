// Package textnorm canonicalises raw text into a comparable token sequence.
//
// Target text and recognised text must pass through the exact same
// normalisation so that their comparison is fair. The steps are, in order:
// Unicode NFKC composition, removal of zero-width joiner/non-joiner marks,
// removal of punctuation and symbol runes by Unicode general category,
// lowercasing, whitespace collapse, and a split on whitespace. There are no
// per-script rules — the Unicode category mechanism covers Latin and Indic
// scripts alike.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalises text into a single comparable string: NFKC form,
// no zero-width marks, no punctuation or symbols, lowercase, single spaces.
// Empty or whitespace-only input yields the empty string.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '‌' || r == '‍':
			// zero-width non-joiner / joiner
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize normalises text and splits it into word tokens. Empty or
// whitespace-only input yields an empty (nil) slice.
func Tokenize(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}
