package email

import (
	"fmt"
	"html"
	"strings"

	"lol-monitor/pkg/lol"
)

func formatReportBody(r lol.Report) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString("h2 { border-bottom: 2px solid #c89b3c; padding-bottom: 10px; }\n")
	b.WriteString("table { border-collapse: collapse; width: 100%; }\n")
	b.WriteString("th { text-align: left; color: #7f8c8d; font-weight: 500; padding: 4px 16px 4px 0; white-space: nowrap; vertical-align: top; }\n")
	b.WriteString("td { padding: 4px 0; }\n")
	b.WriteString("@media (prefers-color-scheme: dark) {\n")
	b.WriteString("body { background: #1a1a1a; color: #e0e0e0; }\n")
	b.WriteString("h2 { border-bottom-color: #f0e6d2; }\n")
	b.WriteString("th { color: #a0a0a0; }\n")
	b.WriteString("}\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	heading := r.Heading
	if heading == "" {
		heading = r.Subject
	}
	b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", html.EscapeString(heading)))

	if len(r.Fields) > 0 {
		b.WriteString("<table>\n")
		for _, f := range r.Fields {
			b.WriteString(fmt.Sprintf("<tr><th>%s</th><td>%s</td></tr>\n", html.EscapeString(f.Name), html.EscapeString(f.Value)))
		}
		b.WriteString("</table>\n")
	}

	b.WriteString("</body>\n</html>")

	return b.String()
}
