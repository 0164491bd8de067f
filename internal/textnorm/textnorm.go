// Package textnorm canonicalizes book and OCR text so the two can be compared
// token by token despite case, Unicode form, punctuation and hyphenation noise.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Text is a raw string paired with its canonical form.
type Text struct {
	Raw       string
	Canonical string
}

// Normalize returns raw together with its canonical form.
func Normalize(raw string) Text {
	return Text{Raw: raw, Canonical: Canonical(raw)}
}

// Tokens returns the canonical tokens of t.
func (t Text) Tokens() []string {
	return strings.Fields(t.Canonical)
}

// Empty reports whether t has no canonical content.
func (t Text) Empty() bool {
	return t.Canonical == ""
}

// Canonical lower-cases (full case folding), applies NFKC, drops apostrophes
// and hyphens, joins words split by a trailing hyphen and collapses every
// other non-alphanumeric run into a single space. It is total and idempotent:
// the result is recomposed, since dropping a rune can leave a base letter next
// to a combining mark.
func Canonical(raw string) string {
	if raw == "" {
		return ""
	}
	// cases.Caser is stateful; one per call keeps Canonical safe for concurrent use.
	folded := norm.NFKC.String(cases.Fold().String(norm.NFKC.String(raw)))
	runes := []rune(folded)

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isWordRune(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case isApostrophe(r):
			// "don't" -> "dont"
		case isHyphen(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				j := i + 1
				for j < len(runes) && unicode.IsSpace(runes[j]) {
					j++
				}
				if j > i+1 && j < len(runes) && unicode.IsLetter(runes[j]) {
					// "hyphen- ated" -> "hyphenated"
					i = j - 1
				}
			}
		default:
			space = true
		}
	}
	return norm.NFKC.String(b.String())
}

// Tokens returns the canonical tokens of raw.
func Tokens(raw string) []string {
	return strings.Fields(Canonical(raw))
}

// TokenizeLines tokenizes consecutive lines (for example OCR text lines) and
// joins a word hyphenated across a line break back into one token.
func TokenizeLines(lines []string) []string {
	var out []string
	carry := false
	for _, line := range lines {
		toks := Tokens(line)
		if len(toks) == 0 {
			continue
		}
		if carry && len(out) > 0 && startsWithLetter(toks[0]) {
			out[len(out)-1] += toks[0]
			toks = toks[1:]
		}
		out = append(out, toks...)
		carry = endsWithHyphen(line)
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ', '`':
		return true
	}
	return false
}

func isHyphen(r rune) bool {
	return r == '\u00ad' || unicode.Is(unicode.Pd, r)
}

func endsWithHyphen(line string) bool {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if line == "" {
		return false
	}
	runes := []rune(line)
	if !isHyphen(runes[len(runes)-1]) {
		return false
	}
	return len(runes) > 1 && unicode.IsLetter(runes[len(runes)-2])
}

func startsWithLetter(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsLetter(r)
}
