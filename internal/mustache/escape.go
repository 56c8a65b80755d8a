package mustache

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// EscapeHTML escapes the characters mustache escapes in {{name}} tags.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
