package match

import (
	"sort"
	"strings"
)

const (
	snippetContextChars = 100
	maxSnippets         = 5
)

// ExtractSnippets pulls excerpts of text around each term's first
// occurrence, with contextChars of context on both sides. Overlapping
// windows are merged so the same passage isn't shown twice.
func ExtractSnippets(text string, terms []string, contextChars int) []string {
	if text == "" || len(terms) == 0 {
		return nil
	}
	lower := strings.ToLower(text)

	type span struct{ start, end int }
	var spans []span
	for _, term := range terms {
		if term == "" {
			continue
		}
		i := strings.Index(lower, strings.ToLower(term))
		if i < 0 {
			continue
		}
		start := i - contextChars
		if start < 0 {
			start = 0
		}
		end := i + len(term) + contextChars
		if end > len(text) {
			end = len(text)
		}
		spans = append(spans, span{start, end})
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}

	var out []string
	for _, s := range merged {
		if len(out) == maxSnippets {
			break
		}
		snippet := strings.TrimSpace(text[clampToRune(text, s.start):clampToRune(text, s.end)])
		if snippet != "" {
			out = append(out, snippet)
		}
	}
	return out
}

// clampToRune moves i back to the nearest rune start so slicing never cuts
// a multibyte character in half.
func clampToRune(s string, i int) int {
	for i > 0 && i < len(s) && (s[i]&0xC0) == 0x80 {
		i--
	}
	return i
}

// Highlight wraps every occurrence of the terms with the given markers,
// case-insensitively, preserving original case. Longer terms are applied
// first so shorter ones don't split them.
func Highlight(text string, terms []string, markerStart, markerEnd string) string {
	if text == "" || len(terms) == 0 {
		return text
	}

	uniq := map[string]bool{}
	var sorted []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" && !uniq[t] {
			uniq[t] = true
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	for _, term := range sorted {
		text = highlightOne(text, term, markerStart, markerEnd)
	}
	return text
}

func highlightOne(text, term, markerStart, markerEnd string) string {
	lowerTerm := strings.ToLower(term)
	var b strings.Builder
	for {
		i := strings.Index(strings.ToLower(text), lowerTerm)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(markerStart)
		b.WriteString(text[i : i+len(term)])
		b.WriteString(markerEnd)
		text = text[i+len(term):]
	}
}
