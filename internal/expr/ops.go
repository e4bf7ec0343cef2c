package expr

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
)

// Op - бинарный оператор Ruby.
type Op string

const (
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpNEQ Op = "!="
	OpMod Op = "%"
)

// Binary - "l op r".
type Binary struct {
	Op Op
	L  Node
	R  Node
}

func (b Binary) Ruby() string {
	return operand(b.L) + " " + string(b.Op) + " " + operand(b.R)
}

// operand берет в скобки вложенные бинарные выражения, кроме "%" слева от сравнения.
func operand(n Node) string {
	if inner, ok := n.(Binary); ok && inner.Op != OpMod {
		return "(" + n.Ruby() + ")"
	}
	return n.Ruby()
}

func (b Binary) Eval(env Env) (any, error) {
	l, err := b.L.Eval(env)
	if err != nil {
		return nil, err
	}
	r, err := b.R.Eval(env)
	if err != nil {
		return nil, err
	}

	if b.Op == OpNEQ {
		return !equal(l, r), nil
	}

	nl, nr, ok := asNumbers(l, r)
	if !ok {
		return nil, runtimeErr("undefined method `%s' for %s", b.Op, className(l))
	}

	switch b.Op {
	case OpGT:
		return nl > nr, nil
	case OpGTE:
		return nl >= nr, nil
	case OpLT:
		return nl < nr, nil
	case OpLTE:
		return nl <= nr, nil
	case OpMod:
		if nr == 0 {
			return nil, runtimeErr("divided by 0")
		}
		// Ruby: знак остатка совпадает со знаком делителя
		m := math.Mod(nl, nr)
		if m != 0 && (m < 0) != (nr < 0) {
			m += nr
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", b.Op)
}

// asNumbers приводит оба значения к float64 для сравнения.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 понимает числа из encoding/json, yaml.v3 и structpb.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// isInteger - значение пришло как целое число. Декодеры JSON/YAML различают
// 1 и 1.0, как и Ruby: 1.0.is_a?(Integer) ложно.
func isInteger(v any) bool {
	switch v.(type) {
	case int, int32, int64, uint32, uint64:
		return true
	}
	return false
}

// equal - сравнение значений по правилам Ruby ==: числа сравниваются по значению.
func equal(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !equal(v, w) {
				return false
			}
		}
		return true
	}
	return a == b
}

// eql - сравнение по правилам Ruby eql?, которым пользуется uniq: целое и
// дробное число не равны, даже если совпадают по значению.
func eql(a, b any) bool {
	if isInteger(a) != isInteger(b) {
		return false
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !eql(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !eql(v, w) {
				return false
			}
		}
		return true
	}
	return equal(a, b)
}

func isA(v any, class string) (bool, error) {
	switch class {
	case "String":
		_, ok := v.(string)
		return ok, nil
	case "Numeric":
		_, ok := toFloat64(v)
		return ok, nil
	case "Integer":
		return isInteger(v), nil
	case "TrueClass":
		b, ok := v.(bool)
		return ok && b, nil
	case "FalseClass":
		b, ok := v.(bool)
		return ok && !b, nil
	case "Array":
		_, ok := v.([]any)
		return ok, nil
	case "Hash":
		_, ok := v.(map[string]any)
		return ok, nil
	}
	return false, fmt.Errorf("class %q is not supported by the evaluator", class)
}

// className - имя класса Ruby для значения, используется в сообщениях об ошибках.
func className(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil:NilClass"
	case string:
		return "String"
	case bool:
		if x {
			return "true:TrueClass"
		}
		return "false:FalseClass"
	case []any:
		return "Array"
	case map[string]any:
		return "Hash"
	}
	if isInteger(v) {
		return "Integer"
	}
	if _, ok := toFloat64(v); ok {
		return "Float"
	}
	return fmt.Sprintf("%T", v)
}

var patternCache sync.Map

// CompilePattern компилирует шаблон в RE2. Ruby-специфичные конструкции
// (lookaround, обратные ссылки) RE2 не поддерживает, для них возвращается ошибка.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	// \A и \z в Ruby и RE2 совпадают, \Z в RE2 отсутствует
	re, err := regexp.Compile(strings.ReplaceAll(pattern, `\Z`, `\z`))
	if err != nil {
		return nil, fmt.Errorf("regexp.Compile: %w", err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}
