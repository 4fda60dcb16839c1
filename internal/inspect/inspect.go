// Package inspect checks response bodies for a required keyword.
package inspect

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// invisible holds elements whose text is never rendered.
const invisible = "script, style, noscript, template"

// HTML renders markup to plain text before matching.
type HTML struct{}

// Matches reports whether keyword appears in the rendered text of body,
// ignoring case. An empty keyword always matches.
func (HTML) Matches(body []byte, contentType, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return true
	}
	text := Render(body, contentType)
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// Matches is HTML{}.Matches with the charset sniffed from body.
func Matches(body []byte, keyword string) bool {
	return HTML{}.Matches(body, "", keyword)
}

// Render decodes body to UTF-8 using the declared or sniffed charset and
// strips markup, scripts and styles. Input that cannot be parsed is
// returned as raw text.
func Render(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	decoded := decode(body, contentType)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return string(decoded)
	}
	doc.Find(invisible).Remove()
	return doc.Text()
}

func decode(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}
