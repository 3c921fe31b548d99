// internal/extract/html.go
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeHTML flattens HTML message bodies (the email channel) into
// plain text for scanning. Link targets are appended so href-only
// phishing URLs are still visible to the extractor. Non-HTML input is
// returned unchanged; parse failures fall back to the raw text.
func NormalizeHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	doc.Find("script, style").Remove()

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})

	text := doc.Text()
	if len(hrefs) > 0 {
		text += " " + strings.Join(hrefs, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}
