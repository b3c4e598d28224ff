package match

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Text is the match-ready bundle for one posting: original-case copies for
// display, normalized copies for containment checks, and a concatenation of
// all normalized fields for quick whole-posting lookups.
type Text struct {
	TitleOriginal       string
	TitleNormalized     string
	DescriptionOriginal string
	DescriptionNorm     string
	LocationOriginal    string
	LocationNormalized  string
	FullTextNormalized  string
}

// NewText builds the bundle from sanitized posting fields. A missing
// location is represented as the empty string.
func NewText(title, description, location string) Text {
	tn := Normalize(title)
	dn := Normalize(description)
	ln := Normalize(location)

	return Text{
		TitleOriginal:       title,
		TitleNormalized:     tn,
		DescriptionOriginal: description,
		DescriptionNorm:     dn,
		LocationOriginal:    location,
		LocationNormalized:  ln,
		FullTextNormalized:  strings.TrimSpace(tn + " " + dn + " " + ln),
	}
}

// Normalize lowercases, strips punctuation except hyphen and apostrophe,
// and collapses whitespace. Terms and field text go through the same
// function so containment checks line up.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsTerm reports whether normalized field text contains the term.
// Single-word terms match on word boundaries, so "intern" does not hit
// inside "internet"; multi-word phrases match as raw substrings. The policy
// applies uniformly to required, group and exclude terms.
func containsTerm(text, term string) bool {
	if text == "" || term == "" {
		return false
	}
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(text, term)
	}
	for from := 0; ; {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
