// Package expr - дерево логических выражений, из которых состоят условия
// guard-клауз. Каждый узел умеет две вещи: отрендерить себя как выражение
// Ruby и вычислить себя над значениями, декодированными из JSON/YAML.
//
// Вычисление следует семантике Ruby: ложны только nil и false, && вычисляется
// лениво, T.must(nil) - ошибка времени выполнения.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrRuntime - ошибка, которую сгенерированный Ruby код поднял бы исключением.
var ErrRuntime = errors.New("runtime error")

func runtimeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRuntime, fmt.Sprintf(format, args...))
}

// Env - переменные, видимые выражению.
type Env map[string]any

// With возвращает копию окружения с дополнительной переменной.
func (e Env) With(name string, value any) Env {
	out := make(Env, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	out[name] = value
	return out
}

// Node - узел выражения.
type Node interface {
	Ruby() string
	Eval(env Env) (any, error)
}

// Truthy - истинность по правилам Ruby.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// Var - локальная переменная или параметр.
type Var struct {
	Name string
}

func (v Var) Ruby() string { return v.Name }

func (v Var) Eval(env Env) (any, error) { return env[v.Name], nil }

// Attr - чтение свойства: "gizmo.created_at".
// Key - исходное имя свойства, по которому значение ищется во входных данных.
type Attr struct {
	Recv string
	Name string
	Key  string
}

func (a Attr) Ruby() string { return a.Recv + "." + a.Name }

func (a Attr) Eval(env Env) (any, error) {
	recv := env[a.Recv]
	if recv == nil {
		return nil, runtimeErr("undefined method `%s' for nil", a.Name)
	}
	obj, ok := recv.(map[string]any)
	if !ok {
		return nil, runtimeErr("undefined method `%s' for %s", a.Name, className(recv))
	}
	if v, ok := obj[a.Key]; ok {
		return v, nil
	}
	return obj[a.Name], nil
}

// Unsafe - T.unsafe(x), для вычисления прозрачен.
type Unsafe struct{ X Node }

func (u Unsafe) Ruby() string { return "T.unsafe(" + u.X.Ruby() + ")" }

func (u Unsafe) Eval(env Env) (any, error) { return u.X.Eval(env) }

// Must - T.must(x): nil приводит к ошибке.
type Must struct{ X Node }

func (m Must) Ruby() string { return "T.must(" + m.X.Ruby() + ")" }

func (m Must) Eval(env Env) (any, error) {
	v, err := m.X.Eval(env)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, runtimeErr("T.must: passed nil (%s)", m.X.Ruby())
	}
	return v, nil
}

// IsNil - x.nil?
type IsNil struct{ X Node }

func (n IsNil) Ruby() string { return n.X.Ruby() + ".nil?" }

func (n IsNil) Eval(env Env) (any, error) {
	v, err := n.X.Eval(env)
	if err != nil {
		return nil, err
	}
	return v == nil, nil
}

// IsA - x.is_a?(Class)
type IsA struct {
	X     Node
	Class string
}

func (n IsA) Ruby() string { return n.X.Ruby() + ".is_a?(" + n.Class + ")" }

func (n IsA) Eval(env Env) (any, error) {
	v, err := n.X.Eval(env)
	if err != nil {
		return nil, err
	}
	return isA(v, n.Class)
}

// Not - логическое отрицание.
type Not struct{ X Node }

func (n Not) Ruby() string {
	switch n.X.(type) {
	case Binary, And:
		return "!(" + n.X.Ruby() + ")"
	}
	return "!" + n.X.Ruby()
}

func (n Not) Eval(env Env) (any, error) {
	v, err := n.X.Eval(env)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

// Length - x.length для строк и массивов.
type Length struct{ X Node }

func (l Length) Ruby() string { return l.X.Ruby() + ".length" }

func (l Length) Eval(env Env) (any, error) {
	v, err := l.X.Eval(env)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return len([]rune(x)), nil
	case []any:
		return len(x), nil
	}
	return nil, runtimeErr("undefined method `length' for %s", className(v))
}

// Uniq - x.uniq для массива.
type Uniq struct{ X Node }

func (u Uniq) Ruby() string { return u.X.Ruby() + ".uniq" }

func (u Uniq) Eval(env Env) (any, error) {
	v, err := u.X.Eval(env)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, runtimeErr("undefined method `uniq' for %s", className(v))
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		dup := false
		for _, seen := range out {
			if eql(item, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, item)
		}
	}
	return out, nil
}

// Num - числовой литерал.
type Num float64

func (n Num) Ruby() string { return FormatNumber(float64(n)) }

func (n Num) Eval(Env) (any, error) { return float64(n), nil }

// FormatNumber печатает число без лишних нулей: 5, 0.5, 1e-07.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Match - /pattern/.match?(x)
type Match struct {
	Pattern string
	X       Node
}

func (m Match) Ruby() string {
	return "/" + EscapeRegexp(m.Pattern) + "/.match?(" + m.X.Ruby() + ")"
}

func (m Match) Eval(env Env) (any, error) {
	v, err := m.X.Eval(env)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return false, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, runtimeErr("no implicit conversion of %s into String", className(v))
	}
	re, err := CompilePattern(m.Pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString(s), nil
}

// EscapeRegexp экранирует "/" для литерала регулярного выражения Ruby.
func EscapeRegexp(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Any - x.any? { |v| cond }
type Any struct {
	X    Node
	Var  string
	Cond Node
}

func (a Any) Ruby() string {
	return a.X.Ruby() + ".any? { |" + a.Var + "| " + a.Cond.Ruby() + " }"
}

func (a Any) Eval(env Env) (any, error) {
	v, err := a.X.Eval(env)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, runtimeErr("undefined method `any?' for %s", className(v))
	}
	for _, item := range arr {
		c, err := a.Cond.Eval(env.With(a.Var, item))
		if err != nil {
			return nil, err
		}
		if Truthy(c) {
			return true, nil
		}
	}
	return false, nil
}

// And - конъюнкция с ленивым вычислением.
type And []Node

func (a And) Ruby() string {
	parts := make([]string, len(a))
	for i, n := range a {
		parts[i] = n.Ruby()
	}
	return strings.Join(parts, " && ")
}

func (a And) Eval(env Env) (any, error) {
	var last any = true
	for _, n := range a {
		v, err := n.Eval(env)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

// All собирает список условий в одно выражение.
func All(conds ...Node) Node {
	if len(conds) == 1 {
		return conds[0]
	}
	return And(conds)
}
