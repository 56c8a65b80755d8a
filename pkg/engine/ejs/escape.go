package ejs

import "strings"

// EscapeFunc escapes the string form of an output value.
type EscapeFunc func(s string) string

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// EscapeXML escapes the five HTML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
