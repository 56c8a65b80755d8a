package mustache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax reports a malformed template.
var ErrSyntax = errors.New("mustache: syntax error")

type delimiters struct {
	open  string
	close string
}

var defaultDelimiters = delimiters{open: "{{", close: "}}"}

type tagKind int

const (
	tagText tagKind = iota
	tagVar
	tagRaw
	tagSection
	tagInverted
	tagEnd
	tagPartial
	tagComment
	tagDelims
)

type tag struct {
	kind  tagKind
	value string
	start int
	end   int
	delim delimiters
}

func syntaxError(src string, offset int, format string, args ...any) error {
	line := strings.Count(src[:offset], "\n") + 1
	return fmt.Errorf("%w: %s (line %d)", ErrSyntax, fmt.Sprintf(format, args...), line)
}

func scan(src string, delim delimiters) ([]tag, error) {
	var tags []tag
	i := 0
	for i < len(src) {
		idx := strings.Index(src[i:], delim.open)
		if idx < 0 {
			tags = append(tags, tag{kind: tagText, value: src[i:], start: i, end: len(src)})
			break
		}
		idx += i
		if idx > i {
			tags = append(tags, tag{kind: tagText, value: src[i:idx], start: i, end: idx})
			i = idx
		}

		if delim == defaultDelimiters && strings.HasPrefix(src[i:], "{{{") {
			end := strings.Index(src[i+3:], "}}}")
			if end < 0 {
				return nil, syntaxError(src, i, "unclosed tag")
			}
			end += i + 3
			tags = append(tags, tag{kind: tagRaw, value: strings.TrimSpace(src[i+3 : end]), start: i, end: end + 3, delim: delim})
			i = end + 3
			continue
		}

		end := strings.Index(src[i+len(delim.open):], delim.close)
		if end < 0 {
			return nil, syntaxError(src, i, "unclosed tag")
		}
		end += i + len(delim.open)
		content := strings.TrimSpace(src[i+len(delim.open) : end])
		next := end + len(delim.close)
		t := tag{start: i, end: next, delim: delim}

		switch {
		case content == "":
			return nil, syntaxError(src, i, "empty tag")
		case content[0] == '!':
			t.kind = tagComment
		case content[0] == '=' && strings.HasSuffix(content, "=") && len(content) > 1:
			parts := strings.Fields(content[1 : len(content)-1])
			if len(parts) != 2 {
				return nil, syntaxError(src, i, "invalid set delimiters tag %q", content)
			}
			t.kind = tagDelims
			delim = delimiters{open: parts[0], close: parts[1]}
		case content[0] == '#':
			t.kind, t.value = tagSection, strings.TrimSpace(content[1:])
		case content[0] == '^':
			t.kind, t.value = tagInverted, strings.TrimSpace(content[1:])
		case content[0] == '/':
			t.kind, t.value = tagEnd, strings.TrimSpace(content[1:])
		case content[0] == '>':
			t.kind, t.value = tagPartial, strings.TrimSpace(content[1:])
		case content[0] == '&':
			t.kind, t.value = tagRaw, strings.TrimSpace(content[1:])
		case content[0] == '{' && strings.HasSuffix(content, "}"):
			t.kind, t.value = tagRaw, strings.TrimSpace(content[1:len(content)-1])
		default:
			t.kind, t.value = tagVar, content
		}
		tags = append(tags, t)
		i = next
	}
	return tags, nil
}

func blank(s string) bool {
	return strings.Trim(s, " \t\r") == ""
}

// standalone reports whether t sits alone on its line. It returns the
// indentation before the tag and the offset the line ends at, including
// its newline.
func standalone(src string, t tag) (bool, string, int) {
	lineStart := strings.LastIndexByte(src[:t.start], '\n') + 1
	indent := src[lineStart:t.start]
	if !blank(indent) {
		return false, "", 0
	}
	lineEnd := t.end
	if nl := strings.IndexByte(src[t.end:], '\n'); nl >= 0 {
		lineEnd = t.end + nl
	} else {
		lineEnd = len(src)
	}
	if !blank(src[t.end:lineEnd]) {
		return false, "", 0
	}
	if lineEnd < len(src) {
		lineEnd++
	}
	return true, indent, lineEnd
}

type node interface{}

type textNode struct {
	text string
}

type varNode struct {
	name string
	raw  bool
}

type sectionNode struct {
	name     string
	inverted bool
	children []node
	// raw text between the opening and closing tags, handed to lambdas
	text  string
	delim delimiters
}

type partialNode struct {
	name   string
	indent string
}

func parse(src string, delim delimiters) ([]node, error) {
	tags, err := scan(src, delim)
	if err != nil {
		return nil, err
	}

	type open struct {
		section *sectionNode
		start   int
		offset  int
	}
	var (
		root  []node
		stack []open
	)
	current := func() *[]node {
		if len(stack) == 0 {
			return &root
		}
		return &stack[len(stack)-1].section.children
	}
	// trimIndent drops the whitespace written before a standalone tag.
	trimIndent := func() {
		list := current()
		if len(*list) == 0 {
			return
		}
		if text, ok := (*list)[len(*list)-1].(*textNode); ok {
			text.text = text.text[:strings.LastIndexByte(text.text, '\n')+1]
		}
	}

	skip := -1
	for _, t := range tags {
		if t.kind == tagText {
			if skip >= 0 {
				if t.end <= skip {
					continue
				}
				if t.start < skip {
					t.value = t.value[skip-t.start:]
				}
			}
			*current() = append(*current(), &textNode{text: t.value})
			continue
		}

		switch t.kind {
		case tagVar:
			*current() = append(*current(), &varNode{name: t.value})
			continue
		case tagRaw:
			*current() = append(*current(), &varNode{name: t.value, raw: true})
			continue
		}

		alone, indent, lineEnd := standalone(src, t)
		if alone {
			trimIndent()
			skip = lineEnd
		}

		switch t.kind {
		case tagPartial:
			p := &partialNode{name: t.value}
			if alone {
				p.indent = indent
			}
			*current() = append(*current(), p)
		case tagSection, tagInverted:
			stack = append(stack, open{
				section: &sectionNode{name: t.value, inverted: t.kind == tagInverted, delim: t.delim},
				start:   t.end,
				offset:  t.start,
			})
		case tagEnd:
			if len(stack) == 0 {
				return nil, syntaxError(src, t.start, "unexpected closing tag %q", t.value)
			}
			top := stack[len(stack)-1]
			if top.section.name != t.value {
				return nil, syntaxError(src, t.start, "unclosed section %q, found closing tag %q", top.section.name, t.value)
			}
			top.section.text = src[top.start:t.start]
			stack = stack[:len(stack)-1]
			*current() = append(*current(), top.section)
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, syntaxError(src, top.offset, "unclosed section %q", top.section.name)
	}
	return root, nil
}
