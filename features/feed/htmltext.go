package feed

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlText strips markup from a description, keeping text content and
// entity-decoded characters. Whitespace and line structure are preserved so
// line-anchored extraction patterns still see the original boundaries.
func htmlText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
	return b.String()
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
