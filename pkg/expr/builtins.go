package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

var globalScope = &Scope{vars: builtinGlobals(), function: true}

func builtinGlobals() map[string]any {
	return map[string]any{
		"NaN":      math.NaN(),
		"Infinity": math.Inf(1),
		"Math":     mathObject(),
		"JSON": &frozen{name: "JSON", members: map[string]any{
			"stringify": NativeFunc(jsonStringify),
			"parse":     NativeFunc(jsonParse),
		}},
		"String": NativeFunc(func(args ...any) (any, error) {
			if len(args) == 0 {
				return "", nil
			}
			return ToString(args[0]), nil
		}),
		"Number": NativeFunc(func(args ...any) (any, error) {
			if len(args) == 0 {
				return 0.0, nil
			}
			return ToNumber(args[0]), nil
		}),
		"Boolean": NativeFunc(func(args ...any) (any, error) {
			return len(args) > 0 && Truthy(args[0]), nil
		}),
		"parseInt":   NativeFunc(parseInt),
		"parseFloat": NativeFunc(parseFloat),
		"isNaN": NativeFunc(func(args ...any) (any, error) {
			return math.IsNaN(ToNumber(arg(args, 0))), nil
		}),
		"isFinite": NativeFunc(func(args ...any) (any, error) {
			f := ToNumber(arg(args, 0))
			return !math.IsNaN(f) && !math.IsInf(f, 0), nil
		}),
		"Array": &frozen{name: "Array", members: map[string]any{
			"isArray": NativeFunc(func(args ...any) (any, error) {
				_, ok := elements(normalize(arg(args, 0)))
				return ok, nil
			}),
		}},
		"Object": &frozen{name: "Object", members: map[string]any{
			"keys":    NativeFunc(objectKeys),
			"values":  NativeFunc(objectValues),
			"entries": NativeFunc(objectEntries),
			"assign":  NativeFunc(objectAssign),
		}},
		"encodeURIComponent": NativeFunc(func(args ...any) (any, error) {
			return EncodeURIComponent(ToString(arg(args, 0))), nil
		}),
		"decodeURIComponent": NativeFunc(func(args ...any) (any, error) {
			s, err := url.PathUnescape(ToString(arg(args, 0)))
			if err != nil {
				return nil, fmt.Errorf("%w: URI malformed", ErrType)
			}
			return s, nil
		}),
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func numericFunc(fn func(float64) float64) NativeFunc {
	return func(args ...any) (any, error) {
		return fn(ToNumber(arg(args, 0))), nil
	}
}

func mathObject() *frozen {
	return &frozen{name: "Math", members: map[string]any{
		"PI":    math.Pi,
		"E":     math.E,
		"LN2":   math.Ln2,
		"LN10":  math.Ln10,
		"SQRT2": math.Sqrt2,
		"abs":   numericFunc(math.Abs),
		"floor": numericFunc(math.Floor),
		"ceil":  numericFunc(math.Ceil),
		"trunc": numericFunc(math.Trunc),
		"sqrt":  numericFunc(math.Sqrt),
		"cbrt":  numericFunc(math.Cbrt),
		"log":   numericFunc(math.Log),
		"log2":  numericFunc(math.Log2),
		"log10": numericFunc(math.Log10),
		"exp":   numericFunc(math.Exp),
		"sin":   numericFunc(math.Sin),
		"cos":   numericFunc(math.Cos),
		"tan":   numericFunc(math.Tan),
		"round": numericFunc(func(f float64) float64 {
			// JavaScript rounds halves towards +Infinity
			return math.Floor(f + 0.5)
		}),
		"sign": numericFunc(func(f float64) float64 {
			switch {
			case math.IsNaN(f), f == 0:
				return f
			case f > 0:
				return 1
			}
			return -1
		}),
		"pow": NativeFunc(func(args ...any) (any, error) {
			return math.Pow(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
		}),
		"atan2": NativeFunc(func(args ...any) (any, error) {
			return math.Atan2(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
		}),
		"hypot": NativeFunc(func(args ...any) (any, error) {
			sum := 0.0
			for _, a := range args {
				f := ToNumber(a)
				sum += f * f
			}
			return math.Sqrt(sum), nil
		}),
		"min": NativeFunc(func(args ...any) (any, error) {
			result := math.Inf(1)
			for _, a := range args {
				f := ToNumber(a)
				if math.IsNaN(f) {
					return f, nil
				}
				result = math.Min(result, f)
			}
			return result, nil
		}),
		"max": NativeFunc(func(args ...any) (any, error) {
			result := math.Inf(-1)
			for _, a := range args {
				f := ToNumber(a)
				if math.IsNaN(f) {
					return f, nil
				}
				result = math.Max(result, f)
			}
			return result, nil
		}),
		"random": NativeFunc(func(...any) (any, error) {
			return rand.Float64(), nil
		}),
	}}
}

func parseInt(args ...any) (any, error) {
	s := strings.TrimSpace(ToString(arg(args, 0)))
	radix := int(toInteger(arg(args, 1)))
	sign := 1.0
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if (radix == 0 || radix == 16) && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN(), nil
	}
	end := 0
	for end < len(s) {
		d := digitValue(s[end])
		if d < 0 || d >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN(), nil
	}
	result := 0.0
	for _, c := range []byte(s[:end]) {
		result = result*float64(radix) + float64(digitValue(c))
	}
	return sign * result, nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

func parseFloat(args ...any) (any, error) {
	s := strings.TrimSpace(ToString(arg(args, 0)))
	for _, inf := range []string{"Infinity", "+Infinity"} {
		if strings.HasPrefix(s, inf) {
			return math.Inf(1), nil
		}
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1), nil
	}
	// longest prefix that parses
	for end := len(s); end > 0; end-- {
		prefix := s[:end]
		if strings.ContainsAny(prefix, "xXpP_in") {
			continue
		}
		if f, err := strconv.ParseFloat(prefix, 64); err == nil {
			return f, nil
		}
	}
	return math.NaN(), nil
}

// EncodeURIComponent escapes s like the JavaScript function of that name.
func EncodeURIComponent(s string) string {
	const unreserved = "-_.!~*'()"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func jsonStringify(args ...any) (any, error) {
	v := arg(args, 0)
	switch v.(type) {
	case undefined, *Function, NativeFunc:
		return Undefined, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent := arg(args, 2); !IsNullish(indent) {
		if s, ok := indent.(string); ok {
			enc.SetIndent("", s)
		} else if n := int(toInteger(indent)); n > 0 {
			enc.SetIndent("", strings.Repeat(" ", min(n, 10)))
		}
	}
	if err := enc.Encode(jsonValue(v)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrType, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// jsonValue prepares v for encoding/json, mapping values JSON cannot hold
// to null the way JSON.stringify does.
func jsonValue(v any) any {
	switch val := normalize(v).(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case undefined, *Function, NativeFunc:
		return nil
	case *Array:
		return jsonValue(val.Elems)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			switch e.(type) {
			case undefined, *Function, NativeFunc:
				continue
			}
			out[k] = jsonValue(e)
		}
		return out
	default:
		return val
	}
}

func jsonParse(args ...any) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(ToString(arg(args, 0))), &v); err != nil {
		return nil, fmt.Errorf("%w: JSON.parse: %v", ErrSyntax, err)
	}
	return fromJSON(v), nil
}

func fromJSON(v any) any {
	switch val := v.(type) {
	case []any:
		elems := make([]any, len(val))
		for i, e := range val {
			elems[i] = fromJSON(e)
		}
		return &Array{Elems: elems}
	case map[string]any:
		for k, e := range val {
			val[k] = fromJSON(e)
		}
		return val
	}
	return v
}

func objectArg(args []any) (map[string]any, error) {
	switch obj := normalize(arg(args, 0)).(type) {
	case map[string]any:
		return obj, nil
	case *Array, []any:
		elems, _ := elements(obj)
		out := make(map[string]any, len(elems))
		for i, e := range elems {
			out[strconv.Itoa(i)] = e
		}
		return out, nil
	case nil, undefined:
		return nil, fmt.Errorf("%w: cannot convert undefined or null to object", ErrType)
	}
	return map[string]any{}, nil
}

func objectKeys(args ...any) (any, error) {
	obj, err := objectArg(args)
	if err != nil {
		return nil, err
	}
	keys := sortedKeys(obj)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return &Array{Elems: out}, nil
}

func objectValues(args ...any) (any, error) {
	obj, err := objectArg(args)
	if err != nil {
		return nil, err
	}
	keys := sortedKeys(obj)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = obj[k]
	}
	return &Array{Elems: out}, nil
}

func objectEntries(args ...any) (any, error) {
	obj, err := objectArg(args)
	if err != nil {
		return nil, err
	}
	keys := sortedKeys(obj)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = &Array{Elems: []any{k, obj[k]}}
	}
	return &Array{Elems: out}, nil
}

func objectAssign(args ...any) (any, error) {
	target, ok := normalize(arg(args, 0)).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: Object.assign target must be an object", ErrType)
	}
	for _, src := range args[1:] {
		if m, ok := normalize(src).(map[string]any); ok {
			for k, v := range m {
				target[k] = v
			}
		}
	}
	return target, nil
}

func (in *interp) objectMethod(obj map[string]any, name string) any {
	switch name {
	case "hasOwnProperty":
		return NativeFunc(func(args ...any) (any, error) {
			_, ok := obj[ToString(arg(args, 0))]
			return ok, nil
		})
	case "toString":
		return NativeFunc(func(...any) (any, error) { return "[object Object]", nil })
	}
	return nil
}

func numberMember(f float64, name string) any {
	switch name {
	case "toFixed":
		return NativeFunc(func(args ...any) (any, error) {
			digits := int(toInteger(arg(args, 0)))
			if digits < 0 || digits > 100 {
				return nil, fmt.Errorf("%w: toFixed() digits argument must be between 0 and 100", ErrRange)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
				return ToString(f), nil
			}
			return strconv.FormatFloat(f, 'f', digits, 64), nil
		})
	case "toString":
		return NativeFunc(func(args ...any) (any, error) {
			radix := arg(args, 0)
			if IsNullish(radix) || toInteger(radix) == 10 {
				return ToString(f), nil
			}
			r := int(toInteger(radix))
			if r < 2 || r > 36 {
				return nil, fmt.Errorf("%w: toString() radix must be between 2 and 36", ErrRange)
			}
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return ToString(f), nil
			}
			return strconv.FormatInt(int64(f), r), nil
		})
	}
	return Undefined
}

func sliceBounds(n int, args []any) (int, int) {
	clamp := func(v any, def int) int {
		if IsNullish(v) {
			return def
		}
		i := toInteger(v)
		if i < 0 {
			i += float64(n)
		}
		return int(math.Max(0, math.Min(i, float64(n))))
	}
	start := clamp(arg(args, 0), 0)
	end := clamp(arg(args, 1), n)
	if end < start {
		end = start
	}
	return start, end
}

func stringMember(s string, key any, name string) any {
	if idx, ok := arrayIndex(key); ok {
		runes := []rune(s)
		if idx < len(runes) {
			return string(runes[idx])
		}
		return Undefined
	}
	str := func(fn func(args []any) any) NativeFunc {
		return func(args ...any) (any, error) { return fn(args), nil }
	}
	switch name {
	case "length":
		return float64(utf8.RuneCountInString(s))
	case "toUpperCase":
		return str(func([]any) any { return strings.ToUpper(s) })
	case "toLowerCase":
		return str(func([]any) any { return strings.ToLower(s) })
	case "trim":
		return str(func([]any) any { return strings.TrimSpace(s) })
	case "trimStart":
		return str(func([]any) any { return strings.TrimLeft(s, " \t\n\r\v\f") })
	case "trimEnd":
		return str(func([]any) any { return strings.TrimRight(s, " \t\n\r\v\f") })
	case "toString", "valueOf":
		return str(func([]any) any { return s })
	case "split":
		return str(func(args []any) any {
			sep := arg(args, 0)
			var parts []string
			switch {
			case sep == Undefined:
				parts = []string{s}
			case ToString(sep) == "":
				for _, r := range s {
					parts = append(parts, string(r))
				}
			default:
				parts = strings.Split(s, ToString(sep))
			}
			if limit := arg(args, 1); !IsNullish(limit) {
				if n := int(toInteger(limit)); n >= 0 && n < len(parts) {
					parts = parts[:n]
				}
			}
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return &Array{Elems: out}
		})
	case "includes":
		return str(func(args []any) any { return strings.Contains(s, ToString(arg(args, 0))) })
	case "startsWith":
		return str(func(args []any) any { return strings.HasPrefix(s, ToString(arg(args, 0))) })
	case "endsWith":
		return str(func(args []any) any { return strings.HasSuffix(s, ToString(arg(args, 0))) })
	case "indexOf":
		return str(func(args []any) any { return runeIndex(s, strings.Index(s, ToString(arg(args, 0)))) })
	case "lastIndexOf":
		return str(func(args []any) any { return runeIndex(s, strings.LastIndex(s, ToString(arg(args, 0)))) })
	case "charAt", "at":
		return str(func(args []any) any {
			runes := []rune(s)
			i := int(toInteger(arg(args, 0)))
			if name == "at" && i < 0 {
				i += len(runes)
			}
			if i < 0 || i >= len(runes) {
				if name == "at" {
					return Undefined
				}
				return ""
			}
			return string(runes[i])
		})
	case "charCodeAt":
		return str(func(args []any) any {
			runes := []rune(s)
			i := int(toInteger(arg(args, 0)))
			if i < 0 || i >= len(runes) {
				return math.NaN()
			}
			return float64(runes[i])
		})
	case "slice":
		return str(func(args []any) any {
			runes := []rune(s)
			start, end := sliceBounds(len(runes), args)
			return string(runes[start:end])
		})
	case "substring":
		return str(func(args []any) any {
			runes := []rune(s)
			clamp := func(v any, def int) int {
				if IsNullish(v) {
					return def
				}
				return int(math.Max(0, math.Min(toInteger(v), float64(len(runes)))))
			}
			start, end := clamp(arg(args, 0), 0), clamp(arg(args, 1), len(runes))
			if start > end {
				start, end = end, start
			}
			return string(runes[start:end])
		})
	case "substr":
		return str(func(args []any) any {
			runes := []rune(s)
			start, _ := sliceBounds(len(runes), args[:min(len(args), 1)])
			n := len(runes) - start
			if l := arg(args, 1); !IsNullish(l) {
				n = int(math.Max(0, math.Min(toInteger(l), float64(n))))
			}
			return string(runes[start : start+n])
		})
	case "padStart", "padEnd":
		return str(func(args []any) any {
			width := int(toInteger(arg(args, 0)))
			fill := " "
			if f := arg(args, 1); !IsNullish(f) {
				fill = ToString(f)
			}
			n := width - utf8.RuneCountInString(s)
			if n <= 0 || fill == "" {
				return s
			}
			pad := []rune(strings.Repeat(fill, n/utf8.RuneCountInString(fill)+1))[:n]
			if name == "padStart" {
				return string(pad) + s
			}
			return s + string(pad)
		})
	case "repeat":
		return NativeFunc(func(args ...any) (any, error) {
			n := toInteger(arg(args, 0))
			if n < 0 || math.IsInf(n, 0) {
				return nil, fmt.Errorf("%w: invalid count value: %s", ErrRange, ToString(n))
			}
			return strings.Repeat(s, int(n)), nil
		})
	case "concat":
		return str(func(args []any) any {
			var b strings.Builder
			b.WriteString(s)
			for _, a := range args {
				b.WriteString(ToString(a))
			}
			return b.String()
		})
	}
	return Undefined
}

func runeIndex(s string, byteIdx int) float64 {
	if byteIdx < 0 {
		return -1
	}
	return float64(utf8.RuneCountInString(s[:byteIdx]))
}

// stringReplace handles replace and replaceAll, which may take a callback.
func (in *interp) stringReplace(s, name string) NativeFunc {
	return func(args ...any) (any, error) {
		pattern := ToString(arg(args, 0))
		repl := arg(args, 1)
		replacement := func(match string, offset int) string {
			switch repl.(type) {
			case *Function, NativeFunc:
				return ToString(in.invoke(repl, position{}, match, runeIndex(s, offset), s))
			}
			return strings.ReplaceAll(ToString(repl), "$&", match)
		}
		if name == "replace" {
			idx := strings.Index(s, pattern)
			if idx < 0 {
				return s, nil
			}
			return s[:idx] + replacement(pattern, idx) + s[idx+len(pattern):], nil
		}
		if pattern == "" {
			return nil, fmt.Errorf("%w: replaceAll requires a non-empty pattern", ErrType)
		}
		var b strings.Builder
		rest, offset := s, 0
		for {
			idx := strings.Index(rest, pattern)
			if idx < 0 {
				b.WriteString(rest)
				return b.String(), nil
			}
			b.WriteString(rest[:idx])
			b.WriteString(replacement(pattern, offset+idx))
			rest = rest[idx+len(pattern):]
			offset += idx + len(pattern)
		}
	}
}

// arrayMember resolves members of arrays. arr is nil for host slices, which
// cannot change length.
func (in *interp) arrayMember(elems []any, arr *Array, key any, name string) any {
	if idx, ok := arrayIndex(key); ok {
		if idx < len(elems) {
			return normalize(elems[idx])
		}
		return Undefined
	}
	var self any = arr
	if arr == nil {
		self = elems
	}
	current := func() []any {
		if arr != nil {
			return arr.Elems
		}
		return elems
	}
	mutable := func(method string) error {
		if arr == nil {
			return fmt.Errorf("%w: cannot call %s on a host array", ErrType, method)
		}
		return nil
	}
	each := func(fn any, visit func(i int, v, result any) bool) {
		for i, v := range current() {
			if !visit(i, v, in.invoke(fn, position{}, normalize(v), float64(i), self)) {
				return
			}
		}
	}

	switch name {
	case "length":
		return float64(len(elems))
	case "push":
		return NativeFunc(func(args ...any) (any, error) {
			if err := mutable(name); err != nil {
				return nil, err
			}
			arr.Elems = append(arr.Elems, args...)
			return float64(len(arr.Elems)), nil
		})
	case "pop":
		return NativeFunc(func(...any) (any, error) {
			if err := mutable(name); err != nil {
				return nil, err
			}
			if len(arr.Elems) == 0 {
				return Undefined, nil
			}
			last := arr.Elems[len(arr.Elems)-1]
			arr.Elems = arr.Elems[:len(arr.Elems)-1]
			return last, nil
		})
	case "shift":
		return NativeFunc(func(...any) (any, error) {
			if err := mutable(name); err != nil {
				return nil, err
			}
			if len(arr.Elems) == 0 {
				return Undefined, nil
			}
			first := arr.Elems[0]
			arr.Elems = arr.Elems[1:]
			return first, nil
		})
	case "unshift":
		return NativeFunc(func(args ...any) (any, error) {
			if err := mutable(name); err != nil {
				return nil, err
			}
			arr.Elems = append(append([]any(nil), args...), arr.Elems...)
			return float64(len(arr.Elems)), nil
		})
	case "join":
		return NativeFunc(func(args ...any) (any, error) {
			sep := ","
			if s := arg(args, 0); s != Undefined {
				sep = ToString(s)
			}
			return joinValues(current(), sep), nil
		})
	case "toString":
		return NativeFunc(func(...any) (any, error) { return joinValues(current(), ","), nil })
	case "map":
		return NativeFunc(func(args ...any) (any, error) {
			out := make([]any, 0, len(current()))
			each(arg(args, 0), func(_ int, _, result any) bool {
				out = append(out, result)
				return true
			})
			return &Array{Elems: out}, nil
		})
	case "filter":
		return NativeFunc(func(args ...any) (any, error) {
			var out []any
			each(arg(args, 0), func(_ int, v, result any) bool {
				if Truthy(result) {
					out = append(out, v)
				}
				return true
			})
			return &Array{Elems: out}, nil
		})
	case "forEach":
		return NativeFunc(func(args ...any) (any, error) {
			each(arg(args, 0), func(int, any, any) bool { return true })
			return Undefined, nil
		})
	case "some", "every":
		return NativeFunc(func(args ...any) (any, error) {
			want := name == "some"
			found := !want
			each(arg(args, 0), func(_ int, _, result any) bool {
				if Truthy(result) == want {
					found = want
					return false
				}
				return true
			})
			return found, nil
		})
	case "find", "findIndex":
		return NativeFunc(func(args ...any) (any, error) {
			var found any = Undefined
			index := -1.0
			each(arg(args, 0), func(i int, v, result any) bool {
				if Truthy(result) {
					found, index = v, float64(i)
					return false
				}
				return true
			})
			if name == "find" {
				return found, nil
			}
			return index, nil
		})
	case "reduce":
		return NativeFunc(func(args ...any) (any, error) {
			items := current()
			start := 0
			var acc any
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(items) == 0 {
					return nil, fmt.Errorf("%w: reduce of empty array with no initial value", ErrType)
				}
				acc, start = items[0], 1
			}
			for i := start; i < len(items); i++ {
				acc = in.invoke(arg(args, 0), position{}, acc, normalize(items[i]), float64(i), self)
			}
			return acc, nil
		})
	case "indexOf", "lastIndexOf", "includes":
		return NativeFunc(func(args ...any) (any, error) {
			needle := arg(args, 0)
			items := current()
			if name == "includes" {
				for _, v := range items {
					if StrictEquals(v, needle) || (isNaNValue(v) && isNaNValue(needle)) {
						return true, nil
					}
				}
				return false, nil
			}
			if name == "lastIndexOf" {
				for i := len(items) - 1; i >= 0; i-- {
					if StrictEquals(items[i], needle) {
						return float64(i), nil
					}
				}
				return -1.0, nil
			}
			for i, v := range items {
				if StrictEquals(v, needle) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		})
	case "slice":
		return NativeFunc(func(args ...any) (any, error) {
			items := current()
			start, end := sliceBounds(len(items), args)
			return &Array{Elems: slices.Clone(items[start:end])}, nil
		})
	case "concat":
		return NativeFunc(func(args ...any) (any, error) {
			out := slices.Clone(current())
			for _, a := range args {
				if more, ok := elements(normalize(a)); ok {
					out = append(out, more...)
					continue
				}
				out = append(out, a)
			}
			return &Array{Elems: out}, nil
		})
	case "reverse":
		return NativeFunc(func(...any) (any, error) {
			slices.Reverse(current())
			return self, nil
		})
	case "sort":
		return NativeFunc(func(args ...any) (any, error) {
			cmp := arg(args, 0)
			slices.SortStableFunc(current(), func(a, b any) int {
				if a == Undefined || b == Undefined {
					return boolCompare(a == Undefined, b == Undefined)
				}
				if cmp == Undefined {
					return strings.Compare(ToString(a), ToString(b))
				}
				r := ToNumber(in.invoke(cmp, position{}, a, b))
				switch {
				case r < 0:
					return -1
				case r > 0:
					return 1
				}
				return 0
			})
			return self, nil
		})
	case "at":
		return NativeFunc(func(args ...any) (any, error) {
			items := current()
			i := int(toInteger(arg(args, 0)))
			if i < 0 {
				i += len(items)
			}
			if i < 0 || i >= len(items) {
				return Undefined, nil
			}
			return items[i], nil
		})
	}
	return Undefined
}

func isNaNValue(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// boolCompare orders undefined values last.
func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}
