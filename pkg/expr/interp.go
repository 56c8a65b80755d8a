package expr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// maxCallDepth bounds nested function calls.
const maxCallDepth = 512

type control int

const (
	ctlNone control = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

type interp struct {
	src        string
	depth      int
	completion any
}

func (in *interp) run(body []node, scope *Scope) (result any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch t := r.(type) {
		case thrown:
			var ee *EvaluationError
			if errors.As(t.err, &ee) {
				err = ee
				return
			}
			err = &EvaluationError{Expression: in.src, Line: t.line, Column: t.col, Err: t.err}
		case parseFailure:
			err = t.err
		default:
			err = &EvaluationError{Expression: in.src, Err: fmt.Errorf("%w: %v", ErrType, r)}
		}
		result = nil
	}()

	in.completion = Undefined
	ctl, value := in.execList(body, scope)
	if ctl == ctlReturn {
		return value, nil
	}
	return in.completion, nil
}

func (in *interp) execList(body []node, scope *Scope) (control, any) {
	for _, stmt := range body {
		if decl, ok := stmt.(*funcDecl); ok {
			scope.declare("var", decl.fn.name, &Function{fn: decl.fn, closure: scope}, decl.at())
		}
	}
	for _, stmt := range body {
		if ctl, value := in.exec(stmt, scope); ctl != ctlNone {
			return ctl, value
		}
	}
	return ctlNone, nil
}

func (in *interp) exec(stmt node, scope *Scope) (control, any) {
	switch s := stmt.(type) {
	case *exprStmt:
		in.completion = in.eval(s.expr, scope)
	case *varDecl:
		in.declare(s, scope)
	case *blockStmt:
		return in.execList(s.body, scope.Child(nil))
	case *ifStmt:
		if Truthy(in.eval(s.test, scope)) {
			return in.exec(s.consequent, scope)
		}
		if s.alternate != nil {
			return in.exec(s.alternate, scope)
		}
	case *forStmt:
		return in.execFor(s, scope)
	case *forInStmt:
		return in.execForIn(s, scope)
	case *whileStmt:
		for first := true; (s.doWhile && first) || Truthy(in.eval(s.test, scope)); first = false {
			ctl, value := in.exec(s.body, scope)
			if ctl == ctlBreak {
				break
			}
			if ctl == ctlReturn {
				return ctl, value
			}
		}
	case *breakStmt:
		return ctlBreak, nil
	case *continueStmt:
		return ctlContinue, nil
	case *returnStmt:
		if s.value == nil {
			return ctlReturn, Undefined
		}
		return ctlReturn, in.eval(s.value, scope)
	case *funcDecl, *emptyStmt:
	default:
		throwf(ErrSyntax, stmt.at(), "unsupported statement %T", stmt)
	}
	return ctlNone, nil
}

func (in *interp) declare(s *varDecl, scope *Scope) {
	for i, name := range s.names {
		if s.inits[i] == nil {
			if s.kind == "var" {
				if _, exists := scope.nearestFunction().vars[name]; exists {
					continue
				}
			}
			scope.declare(s.kind, name, Undefined, s.at())
			continue
		}
		scope.declare(s.kind, name, in.eval(s.inits[i], scope), s.at())
	}
}

func (in *interp) execFor(s *forStmt, scope *Scope) (control, any) {
	loop := scope.Child(nil)
	if s.init != nil {
		in.exec(s.init, loop)
	}
	for s.test == nil || Truthy(in.eval(s.test, loop)) {
		ctl, value := in.exec(s.body, loop)
		if ctl == ctlBreak {
			break
		}
		if ctl == ctlReturn {
			return ctl, value
		}
		if s.update != nil {
			in.eval(s.update, loop)
		}
	}
	return ctlNone, nil
}

func (in *interp) execForIn(s *forInStmt, scope *Scope) (control, any) {
	object := in.eval(s.object, scope)
	var items []any
	if s.of {
		items = in.iterate(object, s.at())
	} else {
		items = enumerate(object)
	}
	for _, item := range items {
		iter := scope.Child(nil)
		if s.declKind != "" {
			iter.declare(s.declKind, s.name, item, s.at())
		} else {
			iter.assign(s.name, item, s.at())
		}
		ctl, value := in.exec(s.body, iter)
		if ctl == ctlBreak {
			break
		}
		if ctl == ctlReturn {
			return ctl, value
		}
	}
	return ctlNone, nil
}

func (in *interp) iterate(v any, pos position) []any {
	switch val := normalize(v).(type) {
	case *Array:
		return append([]any(nil), val.Elems...)
	case []any:
		return val
	case string:
		items := make([]any, 0, len(val))
		for _, r := range val {
			items = append(items, string(r))
		}
		return items
	}
	throwf(ErrType, pos, "%s is not iterable", describeValue(v))
	return nil
}

// enumerate lists the keys visited by for...in.
func enumerate(v any) []any {
	switch val := normalize(v).(type) {
	case map[string]any:
		keys := sortedKeys(val)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = k
		}
		return items
	case *Array, []any, string:
		n := 0
		if elems, ok := elements(val); ok {
			n = len(elems)
		} else {
			n = utf8.RuneCountInString(val.(string))
		}
		items := make([]any, n)
		for i := range items {
			items[i] = strconv.Itoa(i)
		}
		return items
	}
	return nil
}

func (in *interp) eval(n node, scope *Scope) any {
	switch e := n.(type) {
	case *literalExpr:
		return e.value
	case *identExpr:
		v, ok := scope.Get(e.name)
		if !ok {
			throwf(ErrReference, e.at(), "%s is not defined", e.name)
		}
		return normalize(v)
	case *templateExpr:
		buf := make([]byte, 0, 64)
		for i, q := range e.quasis {
			buf = append(buf, q...)
			if i < len(e.exprs) {
				buf = append(buf, ToString(in.eval(e.exprs[i], scope))...)
			}
		}
		return string(buf)
	case *arrayExpr:
		elems := make([]any, len(e.elems))
		for i, el := range e.elems {
			elems[i] = in.eval(el, scope)
		}
		return &Array{Elems: elems}
	case *objectExpr:
		obj := make(map[string]any, len(e.props))
		for _, prop := range e.props {
			key := prop.key
			if prop.computed != nil {
				key = ToString(in.eval(prop.computed, scope))
			}
			obj[key] = in.eval(prop.value, scope)
		}
		return obj
	case *memberExpr, *callExpr:
		v, _ := in.evalChain(n, scope)
		return v
	case *unaryExpr:
		return in.evalUnary(e, scope)
	case *updateExpr:
		return in.evalUpdate(e, scope)
	case *binaryExpr:
		return binary(e.op, in.eval(e.left, scope), in.eval(e.right, scope), e.at())
	case *logicalExpr:
		left := in.eval(e.left, scope)
		switch e.op {
		case "&&":
			if !Truthy(left) {
				return left
			}
		case "||":
			if Truthy(left) {
				return left
			}
		case "??":
			if !IsNullish(left) {
				return left
			}
		}
		return in.eval(e.right, scope)
	case *conditionalExpr:
		if Truthy(in.eval(e.test, scope)) {
			return in.eval(e.consequent, scope)
		}
		return in.eval(e.alternate, scope)
	case *assignExpr:
		return in.evalAssign(e, scope)
	case *sequenceExpr:
		var last any = Undefined
		for _, x := range e.exprs {
			last = in.eval(x, scope)
		}
		return last
	case *funcExpr:
		return &Function{fn: e, closure: scope}
	}
	throwf(ErrSyntax, n.at(), "unsupported expression %T", n)
	return nil
}

// evalChain evaluates member and call chains. The second result reports
// that an optional link short-circuited the rest of the chain.
func (in *interp) evalChain(n node, scope *Scope) (any, bool) {
	switch e := n.(type) {
	case *memberExpr:
		object, short := in.evalChain(e.object, scope)
		if short || (e.optional && IsNullish(object)) {
			return Undefined, true
		}
		key := in.eval(e.property, scope)
		return in.getMember(object, key, e.at()), false
	case *callExpr:
		callee, short := in.evalChain(e.callee, scope)
		if short || (e.optional && IsNullish(callee)) {
			return Undefined, true
		}
		args := make([]any, len(e.args))
		for i, a := range e.args {
			args[i] = in.eval(a, scope)
		}
		return in.call(callee, args, describeCallee(e.callee), e.at()), false
	}
	return in.eval(n, scope), false
}

func describeCallee(n node) string {
	switch e := n.(type) {
	case *identExpr:
		return e.name
	case *memberExpr:
		if lit, ok := e.property.(*literalExpr); ok {
			if s, ok := lit.value.(string); ok {
				return describeCallee(e.object) + "." + s
			}
		}
		return describeCallee(e.object) + "[...]"
	}
	return "expression"
}

func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case string:
		return strconv.Quote(v.(string))
	}
	return TypeOf(v)
}

func (in *interp) evalUnary(e *unaryExpr, scope *Scope) any {
	if e.op == "typeof" {
		if id, ok := e.operand.(*identExpr); ok {
			v, found := scope.Get(id.name)
			if !found {
				return "undefined"
			}
			return TypeOf(v)
		}
		return TypeOf(in.eval(e.operand, scope))
	}
	v := in.eval(e.operand, scope)
	switch e.op {
	case "!":
		return !Truthy(v)
	case "-":
		return -ToNumber(v)
	case "+":
		return ToNumber(v)
	case "void":
		return Undefined
	}
	throwf(ErrSyntax, e.at(), "unknown unary operator %s", e.op)
	return nil
}

func (in *interp) evalUpdate(e *updateExpr, scope *Scope) any {
	delta := 1.0
	if e.op == "--" {
		delta = -1
	}
	old := ToNumber(in.eval(e.target, scope))
	updated := old + delta
	in.store(e.target, updated, scope)
	if e.prefix {
		return updated
	}
	return old
}

func (in *interp) evalAssign(e *assignExpr, scope *Scope) any {
	if e.op == "=" {
		// evaluate the target object before the value, as JavaScript does
		if m, ok := e.target.(*memberExpr); ok {
			object := in.eval(m.object, scope)
			key := in.eval(m.property, scope)
			value := in.eval(e.value, scope)
			in.setMember(object, key, value, m.at())
			return value
		}
		value := in.eval(e.value, scope)
		in.store(e.target, value, scope)
		return value
	}
	current := in.eval(e.target, scope)
	right := in.eval(e.value, scope)
	value := binary(e.op[:len(e.op)-1], current, right, e.at())
	in.store(e.target, value, scope)
	return value
}

func (in *interp) store(target node, value any, scope *Scope) {
	switch t := target.(type) {
	case *identExpr:
		scope.assign(t.name, value, t.at())
	case *memberExpr:
		object := in.eval(t.object, scope)
		key := in.eval(t.property, scope)
		in.setMember(object, key, value, t.at())
	default:
		throwf(ErrReference, target.at(), "invalid assignment target")
	}
}

func binary(op string, left, right any, pos position) any {
	switch op {
	case "+":
		return add(left, right)
	case "-":
		return ToNumber(left) - ToNumber(right)
	case "*":
		return ToNumber(left) * ToNumber(right)
	case "/":
		return ToNumber(left) / ToNumber(right)
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right))
	case "**":
		return math.Pow(ToNumber(left), ToNumber(right))
	case "==":
		return LooseEquals(left, right)
	case "!=":
		return !LooseEquals(left, right)
	case "===":
		return StrictEquals(left, right)
	case "!==":
		return !StrictEquals(left, right)
	case "<":
		c, ok := compare(left, right)
		return ok && c < 0
	case ">":
		c, ok := compare(left, right)
		return ok && c > 0
	case "<=":
		c, ok := compare(left, right)
		return ok && c <= 0
	case ">=":
		c, ok := compare(left, right)
		return ok && c >= 0
	case "in":
		return hasProperty(right, left, pos)
	}
	throwf(ErrSyntax, pos, "unknown operator %s", op)
	return nil
}

func hasProperty(object, key any, pos position) bool {
	switch obj := normalize(object).(type) {
	case map[string]any:
		_, ok := obj[ToString(key)]
		return ok
	case *Array, []any:
		elems, _ := elements(obj)
		if ToString(key) == "length" {
			return true
		}
		idx, ok := arrayIndex(key)
		return ok && idx < len(elems)
	case Getter:
		_, ok := obj.Get(ToString(key))
		return ok
	}
	throwf(ErrType, pos, "cannot use 'in' operator to search for %q in %s", ToString(key), describeValue(object))
	return false
}

// arrayIndex interprets key as a non-negative integer index.
func arrayIndex(key any) (int, bool) {
	switch k := key.(type) {
	case float64:
		if k >= 0 && k == math.Trunc(k) && k < math.MaxInt32 {
			return int(k), true
		}
	case string:
		n, err := strconv.Atoi(k)
		if err == nil && n >= 0 && strconv.Itoa(n) == k {
			return n, true
		}
	}
	return 0, false
}

func (in *interp) getMember(object, key any, pos position) any {
	if IsNullish(object) {
		throwf(ErrType, pos, "cannot read properties of %s (reading '%s')", describeValue(object), ToString(key))
	}
	name := ToString(key)
	switch obj := normalize(object).(type) {
	case map[string]any:
		if v, ok := obj[name]; ok {
			return normalize(v)
		}
		if m := in.objectMethod(obj, name); m != nil {
			return m
		}
		return Undefined
	case *Array:
		return in.arrayMember(obj.Elems, obj, key, name)
	case []any:
		return in.arrayMember(obj, nil, key, name)
	case string:
		if name == "replace" || name == "replaceAll" {
			return in.stringReplace(obj, name)
		}
		return stringMember(obj, key, name)
	case float64:
		return numberMember(obj, name)
	case bool:
		if name == "toString" {
			return NativeFunc(func(...any) (any, error) { return ToString(obj), nil })
		}
		return Undefined
	case Getter:
		if v, ok := obj.Get(name); ok {
			return normalize(v)
		}
		return Undefined
	case *Function:
		switch name {
		case "name":
			return obj.fn.name
		case "length":
			return float64(len(obj.fn.params))
		}
		return Undefined
	case NativeFunc:
		return Undefined
	}
	return reflectMember(object, name)
}

func (in *interp) setMember(object, key, value any, pos position) {
	if IsNullish(object) {
		throwf(ErrType, pos, "cannot set properties of %s (setting '%s')", describeValue(object), ToString(key))
	}
	switch obj := normalize(object).(type) {
	case map[string]any:
		obj[ToString(key)] = value
		return
	case *Array:
		if ToString(key) == "length" {
			n, ok := arrayIndex(value)
			if !ok {
				throwf(ErrRange, pos, "invalid array length")
			}
			obj.Elems = resize(obj.Elems, n)
			return
		}
		idx, ok := arrayIndex(key)
		if !ok {
			throwf(ErrType, pos, "cannot set property %q of array", ToString(key))
		}
		if idx >= len(obj.Elems) {
			obj.Elems = resize(obj.Elems, idx+1)
		}
		obj.Elems[idx] = value
		return
	case []any:
		idx, ok := arrayIndex(key)
		if !ok || idx >= len(obj) {
			throwf(ErrType, pos, "cannot grow host array")
		}
		obj[idx] = value
		return
	}
	throwf(ErrType, pos, "cannot set property '%s' on %s", ToString(key), describeValue(object))
}

func resize(elems []any, n int) []any {
	if n <= len(elems) {
		return elems[:n]
	}
	for len(elems) < n {
		elems = append(elems, Undefined)
	}
	return elems
}

func (in *interp) call(callee any, args []any, name string, pos position) any {
	switch fn := callee.(type) {
	case *Function:
		return in.callFunction(fn, args, pos)
	case NativeFunc:
		result, err := fn(args...)
		if err != nil {
			throwErr(err, pos)
		}
		if result == nil {
			return nil
		}
		return normalize(result)
	}
	rv := reflect.ValueOf(callee)
	if callee != nil && rv.Kind() == reflect.Func {
		return callReflect(rv, args, name, pos)
	}
	throwf(ErrType, pos, "%s is not a function", name)
	return nil
}

func (in *interp) callFunction(fn *Function, args []any, pos position) any {
	if in.depth >= maxCallDepth {
		throwf(ErrRange, pos, "maximum call stack size exceeded")
	}
	in.depth++
	saved := in.completion
	defer func() {
		in.depth--
		in.completion = saved
	}()

	vars := make(map[string]any, len(fn.fn.params)+1)
	if fn.fn.name != "" && !fn.fn.arrow {
		vars[fn.fn.name] = fn
	}
	for i, p := range fn.fn.params {
		if i < len(args) {
			vars[p] = args[i]
		} else {
			vars[p] = Undefined
		}
	}
	scope := fn.closure.Function(vars)
	if fn.fn.exprBody {
		return in.eval(fn.fn.body[0], scope)
	}
	if ctl, value := in.execList(fn.fn.body, scope); ctl == ctlReturn {
		return value
	}
	return Undefined
}

// invoke calls a callable value from builtin code.
func (in *interp) invoke(fn any, pos position, args ...any) any {
	return in.call(fn, args, "callback", pos)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callReflect(fn reflect.Value, args []any, name string, pos position) any {
	ft := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	for i := 0; i < ft.NumIn(); i++ {
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			elem := ft.In(i).Elem()
			for j := i; j < len(args); j++ {
				in = append(in, convertArg(args[j], elem, name, pos))
			}
			break
		}
		var arg any = Undefined
		if i < len(args) {
			arg = args[i]
		}
		in = append(in, convertArg(arg, ft.In(i), name, pos))
	}
	out := fn.Call(in)
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			throwErr(err, pos)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return Undefined
	}
	return normalize(out[0].Interface())
}

func convertArg(arg any, typ reflect.Type, name string, pos position) reflect.Value {
	if IsNullish(arg) {
		return reflect.Zero(typ)
	}
	switch typ.Kind() {
	case reflect.String:
		return reflect.ValueOf(ToString(arg)).Convert(typ)
	case reflect.Bool:
		return reflect.ValueOf(Truthy(arg)).Convert(typ)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return reflect.ValueOf(ToNumber(arg)).Convert(typ)
	case reflect.Interface:
		v := reflect.ValueOf(Plain(arg))
		if v.Type().Implements(typ) {
			return v
		}
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(typ) {
		return v
	}
	if v.Type().ConvertibleTo(typ) {
		return v.Convert(typ)
	}
	throwf(ErrType, pos, "cannot pass %s to %s as %s", describeValue(arg), name, typ)
	return reflect.Value{}
}

// reflectMember reads exported struct fields and methods.
func reflectMember(object any, name string) any {
	rv := reflect.ValueOf(object)
	if m := rv.MethodByName(name); m.IsValid() {
		return m.Interface()
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Undefined
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Undefined
	}
	f := rv.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return Undefined
	}
	return normalize(f.Interface())
}
