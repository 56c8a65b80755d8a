package mustache

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	core "github.com/goliatone/go-widgets/internal/mustache"
	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
)

// ErrHelperSyntax reports a helper section whose text does not follow the
// helper's syntax.
var ErrHelperSyntax = errors.New("mustache: helper syntax error")

// loopNames are the default each variable names, by position.
const loopNames = "ijklmnopqrstuvwxyzabcdefgh"

var (
	incDecRe = regexp.MustCompile(`^\s*(?:([A-Za-z_$][\w$]*)\s*(\+\+|--)|(\+\+|--)\s*([A-Za-z_$][\w$]*))\s*$`)
	assignRe = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*([-+*/%]?=)(.*)$`)
)

// helpers are bound to the render-local environment.
type helpers struct {
	env          map[string]any
	eval         expr.Evaluator
	translations i18n.Translations
}

func syntaxErr(helper, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrHelperSyntax, helper, fmt.Sprintf(format, args...))
}

// {{#if}}[condition]body{{/if}}
func (h *helpers) ifHelper(text string, render core.RenderFunc) (string, error) {
	cond, body, err := splitHeader("if", text)
	if err != nil {
		return "", err
	}
	value, err := h.eval.Evaluate(h.env, cond)
	if err != nil {
		return "", err
	}
	if !expr.Truthy(value) {
		return "", nil
	}
	return render(body)
}

// {{#var}}name=expression{{/var}}
func (h *helpers) varHelper(text string, _ core.RenderFunc) (string, error) {
	if _, err := h.assign("var", text); err != nil {
		return "", err
	}
	return "", nil
}

// {{#eval}}expression{{/eval}}
func (h *helpers) evalHelper(text string, _ core.RenderFunc) (string, error) {
	value, err := h.eval.Evaluate(h.env, text)
	if err != nil {
		return "", err
	}
	return expr.ToString(value), nil
}

// {{#I18n}}key{{/I18n}}
func (h *helpers) i18nHelper(text string, render core.RenderFunc) (string, error) {
	key, err := render(text)
	if err != nil {
		return "", err
	}
	lang := ""
	if v, ok := h.env["LANG"]; ok && !expr.IsNullish(v) {
		lang = expr.ToString(v)
	}
	return h.translations.Lookup(strings.TrimSpace(key), lang, i18n.MustacheFallback), nil
}

// {{#each}}[i=2,j=3]body{{/each}}
func (h *helpers) eachHelper(text string, render core.RenderFunc) (string, error) {
	header, body, err := splitHeader("each", text)
	if err != nil {
		return "", err
	}
	dims := splitTopLevel(header, ',')
	if len(dims) > len(loopNames) {
		return "", syntaxErr("each", "too many dimensions")
	}
	names := make([]string, len(dims))
	limits := make([]int, len(dims))
	for i, dim := range dims {
		name := string(loopNames[i])
		source := dim
		if m := assignRe.FindStringSubmatch(dim); m != nil && m[2] == "=" && !strings.HasPrefix(m[3], "=") {
			name, source = m[1], m[3]
		}
		if strings.TrimSpace(source) == "" {
			return "", syntaxErr("each", "dimension %d has no bound", i+1)
		}
		value, err := h.eval.Evaluate(h.env, source)
		if err != nil {
			return "", err
		}
		n := expr.ToNumber(value)
		if math.IsNaN(n) || n < 1 {
			return "", nil
		}
		names[i], limits[i] = name, int(math.Floor(n))
	}
	if len(dims) == 0 {
		return "", syntaxErr("each", "no dimensions")
	}

	counters := make([]int, len(dims))
	for i := range counters {
		counters[i] = 1
	}
	var out strings.Builder
	for {
		for i, name := range names {
			h.env[name] = float64(counters[i])
		}
		chunk, err := render(body)
		if err != nil {
			return "", err
		}
		out.WriteString(chunk)

		// odometer: the last dimension turns fastest and carries backwards
		d := len(counters) - 1
		for d >= 0 {
			counters[d]++
			if counters[d] <= limits[d] {
				break
			}
			counters[d] = 1
			d--
		}
		if d < 0 {
			return out.String(), nil
		}
	}
}

// {{#for}}[init;condition;increment]body{{/for}}
func (h *helpers) forHelper(text string, render core.RenderFunc) (string, error) {
	header, body, err := splitHeader("for", text)
	if err != nil {
		return "", err
	}
	parts := splitTopLevel(header, ';')
	if len(parts) < 2 || len(parts) > 3 {
		return "", syntaxErr("for", "expected [init;condition;increment], got [%s]", header)
	}
	name, err := h.assign("for", parts[0])
	if err != nil {
		return "", err
	}
	increment := ""
	if len(parts) == 3 {
		increment = parts[2]
	}

	var out strings.Builder
	for i := 0; i < MaxForIterations; i++ {
		ok, err := h.eval.Evaluate(h.env, parts[1])
		if err != nil {
			return "", err
		}
		if !expr.Truthy(ok) {
			break
		}
		chunk, err := render(body)
		if err != nil {
			return "", err
		}
		out.WriteString(chunk)
		if err := h.step(name, increment); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// assign evaluates "name=expression" into the environment and returns name.
func (h *helpers) assign(helper, text string) (string, error) {
	m := assignRe.FindStringSubmatch(text)
	if m == nil || m[2] != "=" || strings.HasPrefix(m[3], "=") || strings.HasPrefix(m[3], ">") {
		return "", syntaxErr(helper, "expected name=expression, got %q", strings.TrimSpace(text))
	}
	if !expr.IsIdentifier(m[1]) {
		return "", syntaxErr(helper, "invalid variable name %q", m[1])
	}
	value, err := h.eval.Evaluate(h.env, m[3])
	if err != nil {
		return "", err
	}
	h.env[m[1]] = value
	return m[1], nil
}

// step applies a for increment to the environment.
func (h *helpers) step(loopVar, increment string) error {
	if strings.TrimSpace(increment) == "" {
		h.env[loopVar] = expr.ToNumber(h.env[loopVar]) + 1
		return nil
	}
	if m := incDecRe.FindStringSubmatch(increment); m != nil {
		name, op := m[1], m[2]
		if name == "" {
			name, op = m[4], m[3]
		}
		delta := 1.0
		if op == "--" {
			delta = -1
		}
		h.env[name] = expr.ToNumber(h.env[name]) + delta
		return nil
	}
	if m := assignRe.FindStringSubmatch(increment); m != nil && !strings.HasPrefix(m[3], "=") && !strings.HasPrefix(m[3], ">") {
		name, op, rhs := m[1], m[2], m[3]
		source := rhs
		if op != "=" {
			source = fmt.Sprintf("%s %s (%s)", name, op[:1], rhs)
		}
		value, err := h.eval.Evaluate(h.env, source)
		if err != nil {
			return err
		}
		h.env[name] = value
		return nil
	}
	value, err := h.eval.Evaluate(h.env, increment)
	if err != nil {
		return err
	}
	h.env[loopVar] = value
	return nil
}

// splitHeader splits "[header]body" into its parts.
func splitHeader(helper, text string) (string, string, error) {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, "[") {
		return "", "", syntaxErr(helper, "expected [ at the start of %q", abbreviate(text))
	}
	end := matchingBracket(trimmed)
	if end < 0 {
		return "", "", syntaxErr(helper, "unbalanced [ in %q", abbreviate(text))
	}
	return trimmed[1:end], trimmed[end+1:], nil
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

// matchingBracket returns the index of the ] closing the [ at s[0], skipping
// quoted strings and nested brackets.
func matchingBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'', '`':
			i = skipQuoted(s, i)
			if i < 0 {
				return -1
			}
		}
	}
	return -1
}

func skipQuoted(s string, start int) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '"' || c == '\'' || c == '`':
			if end := skipQuoted(s, i); end >= 0 {
				i = end
			}
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(parts) > 0 {
		parts = append(parts, rest)
	}
	return parts
}
