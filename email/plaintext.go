package email

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders an HTML report body as text: headings and paragraphs become
// lines, table rows become "name: value" lines.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	var lines []string
	doc.Find("h1, h2, p, tr").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "tr" {
			if text := strings.TrimSpace(s.Text()); text != "" {
				lines = append(lines, text, "")
			}
			return
		}
		var cells []string
		s.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(c.Text()))
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, ": "))
		}
	})

	if len(lines) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
