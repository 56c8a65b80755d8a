package ejs

import (
	"regexp"
	"strings"
)

// delimiters holds the tag spellings for one delimiter configuration.
type delimiters struct {
	open, d, close string
}

func (dl delimiters) eval() string        { return dl.open + dl.d }
func (dl delimiters) evalSlurp() string   { return dl.open + dl.d + "_" }
func (dl delimiters) escaped() string     { return dl.open + dl.d + "=" }
func (dl delimiters) raw() string         { return dl.open + dl.d + "-" }
func (dl delimiters) comment() string     { return dl.open + dl.d + "#" }
func (dl delimiters) openLiteral() string { return dl.open + dl.d + dl.d }
func (dl delimiters) closeLiteral() string {
	return dl.d + dl.d + dl.close
}
func (dl delimiters) closeTag() string   { return dl.d + dl.close }
func (dl delimiters) closeTrim() string  { return "-" + dl.d + dl.close }
func (dl delimiters) closeSlurp() string { return "_" + dl.d + dl.close }

func (dl delimiters) isOpen(tok string) bool {
	switch tok {
	case dl.eval(), dl.evalSlurp(), dl.escaped(), dl.raw(), dl.comment():
		return true
	}
	return false
}

func (dl delimiters) isClose(tok string) bool {
	switch tok {
	case dl.closeTag(), dl.closeTrim(), dl.closeSlurp():
		return true
	}
	return false
}

// pattern matches every tag. Longer spellings come first so the leftmost
// alternative wins.
func (dl delimiters) pattern() *regexp.Regexp {
	tags := []string{
		dl.openLiteral(), dl.closeLiteral(),
		dl.escaped(), dl.raw(), dl.evalSlurp(), dl.comment(), dl.eval(),
		dl.closeTag(), dl.closeTrim(), dl.closeSlurp(),
	}
	for i, tag := range tags {
		tags[i] = regexp.QuoteMeta(tag)
	}
	return regexp.MustCompile("(" + strings.Join(tags, "|") + ")")
}

// fragment is a piece of template text or a tag.
type fragment struct {
	text string
	tag  bool
	line int
}

// lex splits text into literal fragments and tags. Empty literals are
// dropped.
func lex(text string, dl delimiters) []fragment {
	var (
		out  []fragment
		last int
		line = 1
	)
	push := func(s string, tag bool) {
		if s == "" {
			return
		}
		out = append(out, fragment{text: s, tag: tag, line: line})
		line += strings.Count(s, "\n")
	}
	for _, loc := range dl.pattern().FindAllStringIndex(text, -1) {
		push(text[last:loc[0]], false)
		push(text[loc[0]:loc[1]], true)
		last = loc[1]
	}
	push(text[last:], false)
	return out
}
