package guard

import (
	"fmt"

	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/names"
)

type rulelessFactory func(c *Compiler, owner string, f ir.Field) (Clause, bool)

// rulelessFactories - фабрики, применяемые к каждому полю, в порядке вызова.
var rulelessFactories = []rulelessFactory{
	(*Compiler).requiredClause,
	(*Compiler).primitiveTypeClause,
	(*Compiler).customTypeClause,
}

// RulelessClauses возвращает клаузы, не зависящие от правил поля:
// required, primitive-type, custom-type (каждая может отсутствовать).
func (c *Compiler) RulelessClauses(owner string, f ir.Field) []Clause {
	var clauses []Clause
	for _, factory := range rulelessFactories {
		if clause, ok := factory(c, owner, f); ok {
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

// requiredClause срабатывает, когда обязательное значение отсутствует.
func (c *Compiler) requiredClause(owner string, f ir.Field) (Clause, bool) {
	if !c.opts.RuntimeChecks || !f.IsRequired {
		return Clause{}, false
	}

	v := Access(owner, f)
	path := Path(owner, f)
	rec := NewErrorRecord(codeRequired, fmt.Sprintf(`"%s" is required`, path), path)

	return Clause{
		Kind:       ClauseRequired,
		Field:      f.Name,
		Comment:    "required",
		Conditions: []expr.Node{expr.IsNil{X: expr.Unsafe{X: v}}},
		Error:      &rec,
	}, true
}

// primitiveTypeClause проверяет класс значения встроенного типа.
//
// Для скаляра отсутствующее значение не считается ошибкой типа: его ловит
// requiredClause. T::Boolean в рантайме - это объединение TrueClass и FalseClass,
// поэтому для boolean проверяются оба класса. Поля, тип которых в Sorbet
// не выражается (T.untyped), не проверяются.
func (c *Compiler) primitiveTypeClause(owner string, f ir.Field) (Clause, bool) {
	if !c.opts.RuntimeChecks || !f.IsPrimitive() {
		return Clause{}, false
	}
	class := names.PrimitiveClass(f.TypeName)
	if class == names.ClassUntyped {
		return Clause{}, false
	}

	v := Access(owner, f)
	path := Path(owner, f)

	notClass := func(x expr.Node) []expr.Node {
		if class == names.ClassBoolean {
			return []expr.Node{
				expr.Not{X: expr.IsA{X: x, Class: "TrueClass"}},
				expr.Not{X: expr.IsA{X: x, Class: "FalseClass"}},
			}
		}
		return []expr.Node{expr.Not{X: expr.IsA{X: x, Class: class}}}
	}

	conditions := BuildConditions(v, f.IsArray, func(x expr.Node, element bool) []expr.Node {
		if element {
			return notClass(x)
		}
		unsafe := expr.Unsafe{X: x}
		return append([]expr.Node{expr.Not{X: expr.IsNil{X: unsafe}}}, notClass(unsafe)...)
	})

	title := fmt.Sprintf(`"%s" must be a %s`, path, class)
	if !f.IsRequired {
		title += " if supplied"
	}
	rec := NewErrorRecord(codeType, itemTitle(f, title), path)

	return Clause{
		Kind:       ClausePrimitiveType,
		Field:      f.Name,
		Comment:    `"non-local" type check`,
		Conditions: conditions,
		Error:      &rec,
	}, true
}

// customTypeClause делегирует проверку локального типа или перечисления
// его собственному валидатору. Валидаторы вызываются по имени, поэтому
// циклические ссылки между типами не требуют особой обработки.
//
// Формы вызова:
//   - обязательный скаляр: if !T.unsafe(v).nil? / concat(validate_t(v))
//   - необязательный скаляр: if !v.nil? / concat(validate_t(T.must(v)))
//   - обязательный массив: if !T.unsafe(v).nil? / v.each { |x| ... }
//   - необязательный массив: v&.each { |x| ... }
//
// Без рантайм проверок обязательные поля вызываются безусловно, а
// необязательные сохраняют проверку на nil: отсутствующее значение не
// порождает ошибок.
func (c *Compiler) customTypeClause(owner string, f ir.Field) (Clause, bool) {
	if !f.IsLocal() {
		return Clause{}, false
	}

	v := Access(owner, f)
	present := expr.Not{X: expr.IsNil{X: expr.Unsafe{X: v}}}
	d := &Delegation{Validator: names.ValidatorName(f.TypeName), Target: v}

	switch {
	case f.IsArray && f.IsRequired:
		d.Each = true
		if c.opts.RuntimeChecks {
			d.Guard = present
		}
	case f.IsArray:
		d.Each = true
		d.SafeNav = true
	case f.IsRequired:
		if c.opts.RuntimeChecks {
			d.Guard = present
		}
	default:
		d.Guard = expr.Not{X: expr.IsNil{X: v}}
		// Sorbet не сужает тип вызова метода, в отличие от локальной переменной
		if owner != "" {
			d.Target = expr.Must{X: v}
		}
	}

	return Clause{
		Kind:     ClauseCustomType,
		Field:    f.Name,
		Comment:  "local type check",
		Delegate: d,
	}, true
}
