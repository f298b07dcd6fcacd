package email

import (
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"
)

// sanitizeEmailHeader removes newlines and control characters to prevent header injection.
func sanitizeEmailHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}

const boundary = "lol-monitor-alternative"

// buildMessage creates a multipart/alternative RFC 5322 message carrying the HTML
// body and a plain-text rendering of it. from may be empty when the provider sets it.
func buildMessage(from, to, subject, htmlBody string, now time.Time) []byte {
	var msg strings.Builder
	msg.WriteString("MIME-Version: 1.0\r\n")
	if from != "" {
		msg.WriteString(fmt.Sprintf("From: %s\r\n", sanitizeEmailHeader(from)))
	}
	msg.WriteString(fmt.Sprintf("To: %s\r\n", sanitizeEmailHeader(to)))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", sanitizeEmailHeader(subject))))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary))

	writePart(&msg, "text/plain", PlainText(htmlBody))
	writePart(&msg, "text/html", htmlBody)
	msg.WriteString("--" + boundary + "--\r\n")

	return []byte(msg.String())
}

func writePart(msg *strings.Builder, contentType, body string) {
	msg.WriteString("--" + boundary + "\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: %s; charset=utf-8\r\n", contentType))
	msg.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(msg)
	// Writes to a strings.Builder cannot fail.
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
	msg.WriteString("\r\n")
}
