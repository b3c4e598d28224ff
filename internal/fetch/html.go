package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	brTag    = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraTag  = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr)>`)
	hspace   = regexp.MustCompile(`[ \t]+`)
	newlines = regexp.MustCompile(`\n{3,}`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
)

// StripHTML converts an HTML description to plain text. Block-level tag
// ends become newlines so paragraph structure survives; entities are
// decoded by the parser.
func StripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = brTag.ReplaceAllString(s, "\n")
	s = paraTag.ReplaceAllString(s, "\n\n")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// parser failure on hostile input; crude tag strip instead
		s = anyTag.ReplaceAllString(s, " ")
	} else {
		doc.Find("script, style").Remove()
		s = doc.Text()
	}

	s = hspace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
