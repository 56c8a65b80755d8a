package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEvaluateExpressions(t *testing.T) {
	t.Parallel()

	vars := map[string]any{
		"name":    "Ada",
		"count":   3,
		"enabled": true,
		"user":    map[string]any{"first": "Grace", "tags": []any{"a", "b"}},
		"items":   []string{"x", "y", "z"},
	}

	cases := []struct {
		expr string
		want any
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"10 % 4", 2.0},
		{"2 ** 3 ** 2", 512.0},
		{"count + 1", 4.0},
		{"'n=' + count", "n=3"},
		{"1 + '1'", "11"},
		{"'3' * '4'", 12.0},
		{"count > 2 && enabled", true},
		{"count < 2 || name", "Ada"},
		{"null ?? 'fallback'", "fallback"},
		{"0 ?? 'fallback'", 0.0},
		{"count == '3'", true},
		{"count === '3'", false},
		{"null == undefined", true},
		{"null === undefined", false},
		{"enabled ? 'on' : 'off'", "on"},
		{"!enabled", false},
		{"-count", -3.0},
		{"typeof name", "string"},
		{"typeof missing", "undefined"},
		{"user.first", "Grace"},
		{"user['first'].length", 5.0},
		{"user.tags[1]", "b"},
		{"user.missing", Undefined},
		{"user.missing?.deep.deeper", Undefined},
		{"items.length", 3.0},
		{"items.join('-')", "x-y-z"},
		{"name.toUpperCase()", "ADA"},
		{"`Hi ${name}, ${count + 1}`", "Hi Ada, 4"},
		{"[1, 2, 3].map(x => x * 2).join(',')", "2,4,6"},
		{"[1, 2, 3, 4].filter(function (x) { return x % 2 == 0 }).length", 2.0},
		{"[3, 1, 2].sort().join('')", "123"},
		{"[1, 2, 3].reduce((a, b) => a + b, 0)", 6.0},
		{"({a: 1, b: 2}).b", 2.0},
		{"Math.max(1, 5, 3)", 5.0},
		{"Math.round(2.5)", 3.0},
		{"parseInt('42px')", 42.0},
		{"parseFloat('3.5em')", 3.5},
		{"JSON.stringify({b: [1, 'x'], a: null})", `{"a":null,"b":[1,"x"]}`},
		{"JSON.parse('[1,2]').length", 2.0},
		{"String(1/0)", "Infinity"},
		{"(1.5).toFixed(2)", "1.50"},
		{"'a-b-c'.split('-').length", 3.0},
		{"'abc'.slice(-2)", "bc"},
		{"'5'.padStart(3, '0')", "005"},
		{"encodeURIComponent('a b&c')", "a%20b%26c"},
		{"Object.keys({b: 1, a: 2}).join()", "a,b"},
		{"'b' in user", false},
		{"'first' in user", true},
		{"x = 5, x + 1", 6.0},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(cloneVars(vars), tc.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) returned error: %v", tc.expr, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Evaluate(%q) mismatch (-want +got):\n%s", tc.expr, diff)
			}
		})
	}
}

func cloneVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func TestEvaluateStatements(t *testing.T) {
	t.Parallel()

	src := `
		var total = 0;
		for (let i = 1; i <= 4; i++) {
			if (i == 3) continue
			total += i
		}
		const names = []
		for (const n of ['a', 'b']) names.push(n.toUpperCase())
		let keys = ''
		for (var k in {y: 1, x: 2}) keys += k
		function fact(n) { return n <= 1 ? 1 : n * fact(n - 1) }
		let w = 0
		while (true) { if (++w > 2) break }
		do { w-- } while (w > 10)
		total + '|' + names.join('') + '|' + keys + '|' + fact(5) + '|' + w
	`
	got, err := Evaluate(map[string]any{}, src)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got != "7|AB|xy|120|2" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestEvaluateAssignmentsWriteIntoVars(t *testing.T) {
	t.Parallel()

	vars := map[string]any{"a": 1}
	if _, err := Evaluate(vars, "b = a + 1; Math = 3"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if vars["b"] != 2.0 {
		t.Fatalf("expected b=2, got %v", vars["b"])
	}
	if vars["Math"] != 3.0 {
		t.Fatalf("expected Math to be shadowed in vars, got %v", vars["Math"])
	}

	got, err := Evaluate(map[string]any{}, "Math.floor(1.7)")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("global Math was modified: %v", got)
	}
}

func TestEvaluateContextShadowsGlobals(t *testing.T) {
	t.Parallel()

	got, err := Evaluate(map[string]any{"String": "custom"}, "String")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got != "custom" {
		t.Fatalf("expected context to shadow global, got %v", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want error
	}{
		{"1 +", ErrSyntax},
		{"'unterminated", ErrSyntax},
		{"a b", ErrSyntax},
		{"missing + 1", ErrReference},
		{"user.name.first", ErrType},
		{"name()", ErrType},
		{"const c = 1; c = 2", ErrType},
		{"function f() { return f() } f()", ErrRange},
		{"'x'.repeat(-1)", ErrRange},
		{"[].reduce((a, b) => a)", ErrType},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := Evaluate(map[string]any{"name": "x", "user": map[string]any{}}, tc.expr)
			if err == nil {
				t.Fatalf("expected error for %q", tc.expr)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvaluationError, got %T: %v", err, err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEvaluationErrorPosition(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(nil, "1 +\n  missing")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %v", err)
	}
	if evalErr.Line != 2 || evalErr.Column != 3 {
		t.Fatalf("expected line 2 column 3, got line %d column %d", evalErr.Line, evalErr.Column)
	}
}

func TestStrictAssignments(t *testing.T) {
	t.Parallel()

	interp := New(WithStrictAssignments(true))
	_, err := interp.Evaluate(map[string]any{}, "undeclared = 1")
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
	if _, err := interp.Evaluate(map[string]any{}, "let declared = 1; declared = 2"); err != nil {
		t.Fatalf("expected declared assignment to succeed: %v", err)
	}
}

func TestInterpreterCachesPrograms(t *testing.T) {
	t.Parallel()

	interp := New()
	first, err := interp.Compile("a + 1")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	second, err := interp.Compile("a + 1")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached program to be reused")
	}
}

func TestProgramReturnAndNativeFunctions(t *testing.T) {
	t.Parallel()

	prog, err := Parse("var out = []; emit('a'); emit(upper('b')); return out.concat(seen).join('')")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	var seen []any
	scope := NewScope(map[string]any{
		"emit": NativeFunc(func(args ...any) (any, error) {
			seen = append(seen, args[0])
			return Undefined, nil
		}),
		"upper": func(s string) string { return s + s },
	})
	scope.Set("seen", []any{"!"})
	got, err := prog.Run(scope)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got != "!" {
		t.Fatalf("unexpected result %q", got)
	}
	if diff := cmp.Diff([]any{"a", "bb"}, seen); diff != "" {
		t.Fatalf("native calls mismatch (-want +got):\n%s", diff)
	}
}

type lookup map[string]string

func (l lookup) Get(name string) (any, bool) {
	v, ok := l[name]
	return v, ok
}

func TestGetterValues(t *testing.T) {
	t.Parallel()

	got, err := Evaluate(map[string]any{"t": lookup{"hello": "hola"}}, "t.hello + t['hello'] + typeof t.nope")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got != "holaholaundefined" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestToString(t *testing.T) {
	t.Parallel()

	cases := map[string]any{
		"1":               1.0,
		"1.5":             1.5,
		"-0.25":           -0.25,
		"1e+21":           1e21,
		"1e-7":            1e-7,
		"5e-7":            5e-7,
		"0.000001":        1e-6,
		"0.0000015":       1.5e-6,
		"100":             int64(100),
		"NaN":             math.NaN(),
		"-Infinity":       math.Inf(-1),
		"null":            nil,
		"undefined":       Undefined,
		"a,b":             []string{"a", "b"},
		"1,,x":            NewArray(1.0, nil, "x"),
		"[object Object]": map[string]any{},
		"true":            true,
	}
	for want, in := range cases {
		if got := ToString(in); got != want {
			t.Fatalf("ToString(%#v) = %q, want %q", in, got, want)
		}
	}
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	truthy := []any{true, 1.0, "0", " ", []any{}, map[string]any{}, NewArray()}
	falsy := []any{false, 0.0, math.NaN(), "", nil, Undefined, 0}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Fatalf("expected %#v to be truthy", v)
		}
	}
	for _, v := range falsy {
		if Truthy(v) {
			t.Fatalf("expected %#v to be falsy", v)
		}
	}
}

func TestPlain(t *testing.T) {
	t.Parallel()

	got, err := Evaluate(nil, "[1, {a: [undefined]}]")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	want := []any{1.0, map[string]any{"a": []any{nil}}}
	if diff := cmp.Diff(want, Plain(got)); diff != "" {
		t.Fatalf("Plain mismatch (-want +got):\n%s", diff)
	}
}
