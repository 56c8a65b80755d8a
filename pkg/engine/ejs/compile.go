package ejs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-widgets/pkg/expr"
)

type mode int

const (
	modeText mode = iota
	modeEval
	modeEscaped
	modeRaw
	modeComment
	modeLiteral
)

var (
	blankLinesRe = regexp.MustCompile(`[\r\n]+`)
	lineTrimRe   = regexp.MustCompile(`(?m)^\s+|\s+$`)
	leadingEOLRe = regexp.MustCompile(`^(?:\r\n|\r|\n)`)
	trailSemiRe  = regexp.MustCompile(`;(\s*)$`)
)

// generator accumulates the program source for one template.
type generator struct {
	dl       delimiters
	debug    bool
	source   strings.Builder
	mode     mode
	truncate bool
	line     int
}

// Compile compiles text into a Template. With opts.Cache the template is
// stored under opts.Filename and later calls with the same filename return
// the stored template without lexing again.
func Compile(text string, opts Options) (*Template, error) {
	resolved, err := opts.normalized()
	if err != nil {
		return nil, &CompileError{Filename: opts.Filename, Err: err}
	}
	if !resolved.Cache {
		return compile(text, resolved)
	}
	return resolved.Store.GetOrLoad(resolved.Filename, func() (*Template, error) {
		return compile(text, resolved)
	})
}

func compile(text string, opts Options) (*Template, error) {
	dl := delimiters{open: opts.OpenDelimiter, d: opts.Delimiter, close: opts.CloseDelimiter}

	body, err := generate(text, dl, opts)
	if err != nil {
		return nil, err
	}
	source := wrap(body, opts)
	if opts.Debug {
		opts.Logger.Debug("ejs generated source", "filename", opts.Filename, "source", source)
	}

	program, err := expr.Parse(source)
	if err != nil {
		return nil, &CompileError{Filename: opts.Filename, Source: source, Err: err}
	}

	t := &Template{text: text, source: source, program: program, opts: opts}
	t.fn = t.run
	return t, nil
}

// generate turns the template text into program statements.
func generate(text string, dl delimiters, opts Options) (string, error) {
	if opts.RmWhitespace {
		text = blankLinesRe.ReplaceAllString(text, "\n")
		text = lineTrimRe.ReplaceAllString(text, "")
	}
	slurpOpen := regexp.MustCompile(`[ \t]*` + regexp.QuoteMeta(dl.evalSlurp()))
	slurpClose := regexp.MustCompile(regexp.QuoteMeta(dl.closeSlurp()) + `[ \t]*`)
	text = slurpOpen.ReplaceAllLiteralString(text, dl.evalSlurp())
	text = slurpClose.ReplaceAllLiteralString(text, dl.closeSlurp())

	fragments := lex(text, dl)
	if err := checkStructure(fragments, dl, opts.Filename); err != nil {
		return "", err
	}

	g := &generator{dl: dl, debug: opts.CompileDebug, line: 1}
	for _, f := range fragments {
		g.scan(f)
	}
	return g.source.String(), nil
}

// checkStructure requires every opening tag to be closed before the next
// tag opens.
func checkStructure(fragments []fragment, dl delimiters, filename string) error {
	for i, f := range fragments {
		if !f.tag || !dl.isOpen(f.text) {
			continue
		}
		closed := false
		for _, next := range fragments[i+1:] {
			if next.tag {
				closed = dl.isClose(next.text)
				break
			}
		}
		if !closed {
			snippet := f.text
			if i+1 < len(fragments) && !fragments[i+1].tag {
				snippet += fragments[i+1].text
			}
			return &CompileError{
				Filename: filename,
				Line:     f.line,
				Err:      fmt.Errorf("%w: could not find matching close tag for %q", ErrStructure, abbreviate(snippet)),
			}
		}
	}
	return nil
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}

func (g *generator) scan(f fragment) {
	dl := g.dl
	line := f.text

	switch {
	case f.tag && (line == dl.eval() || line == dl.evalSlurp()):
		g.mode = modeEval
	case f.tag && line == dl.escaped():
		g.mode = modeEscaped
	case f.tag && line == dl.raw():
		g.mode = modeRaw
	case f.tag && line == dl.comment():
		g.mode = modeComment
	case f.tag && line == dl.openLiteral():
		g.mode = modeLiteral
		g.appendText(dl.eval())
	case f.tag && line == dl.closeLiteral():
		g.mode = modeLiteral
		g.appendText(dl.closeTag())
	case f.tag && dl.isClose(line):
		switch g.mode {
		case modeLiteral:
			g.addOutput(line)
		case modeText:
			// a close tag outside any tag is plain text
			g.addOutput(line)
		}
		g.mode = modeText
		g.truncate = strings.HasPrefix(line, "-") || strings.HasPrefix(line, "_")
	default:
		g.code(line)
	}

	if g.debug {
		if n := strings.Count(line, "\n"); n > 0 {
			g.line += n
			fmt.Fprintf(&g.source, "    ; __line = %d\n", g.line)
		}
	}
}

func (g *generator) code(line string) {
	switch g.mode {
	case modeEval, modeEscaped, modeRaw:
		// a trailing line comment would swallow the generated suffix
		if strings.LastIndex(line, "//") > strings.LastIndex(line, "\n") {
			line += "\n"
		}
	}
	switch g.mode {
	case modeEval:
		g.source.WriteString("    ; " + line + "\n")
	case modeEscaped:
		g.source.WriteString("    ; __append(escapeFn(" + stripSemi(line) + "))\n")
	case modeRaw:
		g.source.WriteString("    ; __append(" + stripSemi(line) + ")\n")
	case modeComment:
	default:
		g.addOutput(line)
	}
}

// addOutput appends literal text, honouring a pending newline truncation.
func (g *generator) addOutput(line string) {
	if g.truncate {
		line = leadingEOLRe.ReplaceAllLiteralString(line, "")
		g.truncate = false
	}
	if line == "" {
		return
	}
	g.appendText(line)
}

func (g *generator) appendText(text string) {
	g.source.WriteString(`    ; __append("` + escapeLiteral(text) + `")` + "\n")
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	`"`, `\"`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// escapeLiteral escapes text for a double quoted string literal.
func escapeLiteral(text string) string {
	return literalEscaper.Replace(text)
}

func stripSemi(s string) string {
	return trailSemiRe.ReplaceAllString(s, "$1")
}

// wrap adds the output buffer, the append function and the locals
// bindings around the generated body.
func wrap(body string, opts Options) string {
	var b strings.Builder
	b.WriteString("var __output = \"\";\n")
	b.WriteString("function __append(s) { if (s !== undefined && s !== null) __output += s }\n")
	if opts.OutputFunctionName != "" {
		b.WriteString("  var " + opts.OutputFunctionName + " = __append;\n")
	}
	if len(opts.DestructuredLocals) > 0 {
		b.WriteString("  var __locals = (" + opts.LocalsName + " || {}),\n    ")
		for i, name := range opts.DestructuredLocals {
			if i > 0 {
				b.WriteString(",\n    ")
			}
			b.WriteString(name + " = __locals[" + strconv.Quote(name) + "]")
		}
		b.WriteString(";\n")
	}
	if opts.CompileDebug {
		b.WriteString("var __line = 1;\n")
	}
	b.WriteString(body)
	b.WriteString("  return __output;\n")
	return b.String()
}
