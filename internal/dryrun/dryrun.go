// Package dryrun исполняет собранные валидаторы без Ruby: условия клауз
// вычисляются над входными данными, декодированными из JSON или YAML,
// вызовы других валидаторов разрешаются по имени в том же наборе.
//
// Интерпретатор повторяет поведение сгенерированного кода, включая ошибки
// времени выполнения (например, T.must(nil)), которые возвращаются как error.
package dryrun

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/validators"
)

var (
	// ErrUnknownValidator - в наборе нет валидатора с таким именем
	ErrUnknownValidator = errors.New("unknown validator")
	// ErrInvalidInput - входные данные не подходят валидатору
	ErrInvalidInput = errors.New("invalid input")
)

// Interpreter исполняет валидаторы одного набора.
type Interpreter struct {
	set *validators.Set
}

// New создает Interpreter.
func New(set *validators.Set) *Interpreter {
	return &Interpreter{set: set}
}

// Run вызывает валидатор по имени и возвращает накопленные ошибки.
//
// Для валидатора метода input - объект с параметрами (ключи - исходные
// имена или snake_case), отсутствующий параметр равен nil. Для валидатора
// типа или перечисления input - само проверяемое значение.
func (i *Interpreter) Run(name string, input any) ([]guard.ErrorRecord, error) {
	d, ok := i.set.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValidator, name)
	}

	env, err := bind(d, input)
	if err != nil {
		return nil, err
	}

	if d.Kind == validators.KindEnum {
		return runEnum(d, env), nil
	}

	errs := []guard.ErrorRecord{}
	for _, clause := range d.Clauses {
		if clause.Delegate != nil {
			nested, err := i.delegate(clause.Delegate, env)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", name, clause.Field, err)
			}
			errs = append(errs, nested...)
			continue
		}

		v, err := expr.All(clause.Conditions...).Eval(env)
		if err != nil {
			return nil, fmt.Errorf("%s: %s (%s): %w", name, clause.Field, clause.Comment, err)
		}
		if expr.Truthy(v) {
			errs = append(errs, *clause.Error)
		}
	}
	return errs, nil
}

// RunDocument декодирует input (JSON или YAML) и вызывает Run.
func (i *Interpreter) RunDocument(name string, input []byte) ([]guard.ErrorRecord, error) {
	value, err := Decode(input)
	if err != nil {
		return nil, err
	}
	return i.Run(name, value)
}

// Decode декодирует JSON или YAML в значения, понятные интерпретатору.
func Decode(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return normalize(value), nil
}

// normalize приводит map[interface{}]interface{} (нестроковые ключи YAML) к map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	}
	return v
}

func bind(d *validators.Definition, input any) (expr.Env, error) {
	if !d.Keyword() {
		return expr.Env{d.Params[0].Name: input}, nil
	}

	env := expr.Env{}
	if input == nil {
		return env, nil
	}
	args, ok := input.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an object with parameters", ErrInvalidInput, d.Name)
	}
	for _, p := range d.Params {
		if v, ok := args[p.Key]; ok {
			env[p.Name] = v
		} else {
			env[p.Name] = args[p.Name]
		}
	}
	return env, nil
}

func runEnum(d *validators.Definition, env expr.Env) []guard.ErrorRecord {
	if d.Enum == nil {
		return []guard.ErrorRecord{}
	}
	value := env[d.Params[0].Name]
	for _, member := range d.Enum.Values {
		if s, ok := value.(string); ok && s == member {
			return []guard.ErrorRecord{}
		}
	}
	return []guard.ErrorRecord{d.Enum.Fallback}
}

func (i *Interpreter) delegate(d *guard.Delegation, env expr.Env) ([]guard.ErrorRecord, error) {
	if d.Guard != nil {
		ok, err := d.Guard.Eval(env)
		if err != nil {
			return nil, err
		}
		if !expr.Truthy(ok) {
			return nil, nil
		}
	}

	target, err := d.Target.Eval(env)
	if err != nil {
		return nil, err
	}

	if !d.Each {
		return i.Run(d.Validator, target)
	}

	if target == nil {
		if d.SafeNav {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: undefined method `each' for nil", expr.ErrRuntime)
	}
	items, ok := target.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: undefined method `each' for %T", expr.ErrRuntime, target)
	}

	var errs []guard.ErrorRecord
	for _, item := range items {
		nested, err := i.Run(d.Validator, item)
		if err != nil {
			return nil, err
		}
		errs = append(errs, nested...)
	}
	return errs, nil
}
