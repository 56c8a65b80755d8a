package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the value of missing properties and uninitialised bindings.
// It is distinct from nil, which stands for null.
var Undefined any = undefined{}

// IsNullish reports whether v is null or undefined.
func IsNullish(v any) bool {
	return v == nil || v == Undefined
}

// Getter is implemented by host values that resolve their own members.
type Getter interface {
	Get(name string) (any, bool)
}

// NativeFunc is a host function callable from expressions.
type NativeFunc func(args ...any) (any, error)

// Array is an array created by an expression. Host slices are read through
// as arrays but cannot grow.
type Array struct {
	Elems []any
}

// NewArray returns an array holding elems.
func NewArray(elems ...any) *Array {
	return &Array{Elems: elems}
}

// Function is a closure created by a function or arrow expression.
type Function struct {
	fn      *funcExpr
	closure *Scope
}

// Name returns the declared name, empty for anonymous functions.
func (f *Function) Name() string { return f.fn.name }

// frozen is a read-only object used for builtin globals.
type frozen struct {
	name    string
	members map[string]any
}

func (o *frozen) Get(name string) (any, bool) {
	v, ok := o.members[name]
	return v, ok
}

func (o *frozen) String() string { return "[object " + o.name + "]" }

// Plain converts values produced by expressions back into plain Go values:
// arrays become []any and undefined becomes nil.
func Plain(v any) any {
	switch val := v.(type) {
	case *Array:
		out := make([]any, len(val.Elems))
		for i, e := range val.Elems {
			out[i] = Plain(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Plain(e)
		}
		return out
	case undefined:
		return nil
	}
	return v
}

// normalize maps host values onto the value kinds the interpreter works
// with. Numbers become float64; slices and maps of other element types are
// converted to []any and map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, undefined, bool, string, float64, *Array, []any, map[string]any,
		*Function, NativeFunc, Getter:
		return v
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return string(val)
		}
		return f
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case func(...any) (any, error):
		return NativeFunc(val)
	case func(...any) any:
		return NativeFunc(func(args ...any) (any, error) { return val(args...), nil })
	case fmt.Stringer:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

// ToString converts v to a string the way JavaScript's String(v) does.
func ToString(v any) string {
	switch val := normalize(v).(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(val)
	case *Array:
		return joinValues(val.Elems, ",")
	case []any:
		return joinValues(val, ",")
	case map[string]any:
		return "[object Object]"
	case *Function:
		if val.fn.name != "" {
			return "function " + val.fn.name + "() { [code] }"
		}
		return "function () { [code] }"
	case NativeFunc:
		return "function () { [native code] }"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func joinValues(elems []any, sep string) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		if IsNullish(e) {
			continue
		}
		parts[i] = ToString(e)
	}
	return strings.Join(parts, sep)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go writes e-07 where JavaScript writes e-7.
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

// ToNumber converts v to a number the way JavaScript's Number(v) does.
func ToNumber(v any) float64 {
	switch val := normalize(v).(type) {
	case nil:
		return 0
	case undefined:
		return math.NaN()
	case bool:
		if val {
			return 1
		}
		return 0
	case float64:
		return val
	case string:
		return stringToNumber(val)
	case *Array, []any:
		return stringToNumber(ToString(val))
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	// ParseFloat accepts forms JavaScript rejects, such as "inf" and "0x1p-2".
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Truthy reports JavaScript truthiness. Empty arrays and objects are truthy.
func Truthy(v any) bool {
	switch val := normalize(v).(type) {
	case nil, undefined:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case string:
		return val != ""
	default:
		return true
	}
}

// TypeOf returns the JavaScript typeof name of v.
func TypeOf(v any) string {
	switch normalize(v).(type) {
	case undefined:
		return "undefined"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *Function, NativeFunc:
		return "function"
	default:
		return "object"
	}
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case nil, undefined, bool, float64, string:
		return true
	}
	return false
}

func toPrimitive(v any) any {
	if isPrimitive(v) {
		return v
	}
	return ToString(v)
}

// StrictEquals implements ===.
func StrictEquals(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case undefined:
		return b == Undefined
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		return ok && x == y
	case *Function:
		y, ok := b.(*Function)
		return ok && x == y
	}
	return sameReference(a, b)
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if isPrimitive(a) && isPrimitive(b) {
		switch x := a.(type) {
		case string:
			if y, ok := b.(string); ok {
				return x == y
			}
		case bool:
			if y, ok := b.(bool); ok {
				return x == y
			}
		}
		return ToNumber(a) == ToNumber(b)
	}
	if !isPrimitive(a) && !isPrimitive(b) {
		return StrictEquals(a, b)
	}
	return LooseEquals(toPrimitive(a), toPrimitive(b))
}

func add(a, b any) any {
	a, b = toPrimitive(normalize(a)), toPrimitive(normalize(b))
	_, as := a.(string)
	_, bs := b.(string)
	if as || bs {
		return ToString(a) + ToString(b)
	}
	return ToNumber(a) + ToNumber(b)
}

// compare returns -1, 0 or 1 and false when the operands are unordered.
func compare(a, b any) (int, bool) {
	a, b = toPrimitive(normalize(a)), toPrimitive(normalize(b))
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// toInteger truncates like JavaScript ToIntegerOrInfinity.
func toInteger(v any) float64 {
	f := ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}

// elements returns the elements of array-like values.
func elements(v any) ([]any, bool) {
	switch val := v.(type) {
	case *Array:
		return val.Elems, true
	case []any:
		return val, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
