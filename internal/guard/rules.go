package guard

import (
	"fmt"

	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/ir"
	"sorbet-validators/internal/names"
)

// RuleClause строит клаузу для одного правила поля.
//
// Параметры:
//   - owner: исходное имя типа-владельца; пустая строка для параметров метода
//   - f: поле, которому принадлежит правило
//   - r: правило
//
// Возвращает:
//   - Clause и true для известного вида правила
//   - false для RuleUnknown (такие правила отсекаются при загрузке IR)
//
// Поэлементные правила (строковые и числовые) для массива проверяют каждый
// элемент; array-max-items, array-min-items и array-unique-items проверяют
// сам массив.
func (c *Compiler) RuleClause(owner string, f ir.Field, r ir.Rule) (Clause, bool) {
	v := Access(owner, f)
	path := Path(owner, f)

	// Числовые правила не утверждают наличие значения у параметров метода,
	// если рантайм проверки выключены: наличие гарантирует сигнатура.
	skipNumericMust := owner == "" && !c.opts.RuntimeChecks

	var (
		conditions []expr.Node
		title      string
		perElement = true
	)

	switch r.Kind {
	case ir.RuleStringMaxLength:
		conditions = BuildConditions(v, f.IsArray, stringLength(f, expr.OpGT, r.Length))
		title = fmt.Sprintf(`"%s" max length is %d`, path, r.Length)

	case ir.RuleStringMinLength:
		conditions = BuildConditions(v, f.IsArray, stringLength(f, expr.OpLT, r.Length))
		title = fmt.Sprintf(`"%s" min length is %d`, path, r.Length)

	case ir.RuleStringPattern:
		conditions = BuildConditions(v, f.IsArray, func(x expr.Node, _ bool) []expr.Node {
			return []expr.Node{
				expr.IsA{X: x, Class: names.ClassString},
				expr.Not{X: expr.Match{Pattern: r.Pattern, X: x}},
			}
		})
		title = fmt.Sprintf(`"%s" must match the pattern /%s/`, path, expr.EscapeRegexp(r.Pattern))

	case ir.RuleNumberMultipleOf:
		conditions = BuildConditions(v, f.IsArray, func(x expr.Node, element bool) []expr.Node {
			mod := expr.Binary{Op: expr.OpMod, L: must(f, x, element, skipNumericMust), R: expr.Num(r.Value)}
			return []expr.Node{
				expr.IsA{X: x, Class: names.ClassNumeric},
				expr.Binary{Op: expr.OpNEQ, L: mod, R: expr.Num(0)},
			}
		})
		title = fmt.Sprintf(`"%s" must be a multiple of %s`, path, expr.FormatNumber(r.Value))

	case ir.RuleNumberGT:
		conditions = BuildConditions(v, f.IsArray, numberCompare(f, expr.OpLTE, r.Value, skipNumericMust))
		title = fmt.Sprintf(`"%s" must be greater than %s`, path, expr.FormatNumber(r.Value))

	case ir.RuleNumberGTE:
		conditions = BuildConditions(v, f.IsArray, numberCompare(f, expr.OpLT, r.Value, skipNumericMust))
		title = fmt.Sprintf(`"%s" must be greater than or equal to %s`, path, expr.FormatNumber(r.Value))

	case ir.RuleNumberLT:
		conditions = BuildConditions(v, f.IsArray, numberCompare(f, expr.OpGTE, r.Value, skipNumericMust))
		title = fmt.Sprintf(`"%s" must be less than %s`, path, expr.FormatNumber(r.Value))

	case ir.RuleNumberLTE:
		conditions = BuildConditions(v, f.IsArray, numberCompare(f, expr.OpGT, r.Value, skipNumericMust))
		title = fmt.Sprintf(`"%s" must be less than or equal to %s`, path, expr.FormatNumber(r.Value))

	case ir.RuleArrayMaxItems:
		perElement = false
		conditions = arrayLength(v, expr.OpGT, r.Max)
		title = fmt.Sprintf(`"%s" max length is %d`, path, r.Max)

	case ir.RuleArrayMinItems:
		perElement = false
		conditions = arrayLength(v, expr.OpLT, r.Min)
		title = fmt.Sprintf(`"%s" min length is %d`, path, r.Min)

	case ir.RuleArrayUniqueItems:
		perElement = false
		arr := must(f, v, false, false)
		conditions = []expr.Node{
			expr.IsA{X: v, Class: names.ClassArray},
			expr.Binary{Op: expr.OpNEQ, L: expr.Length{X: arr}, R: expr.Length{X: expr.Uniq{X: arr}}},
		}
		title = fmt.Sprintf(`"%s" must contain unique values`, path)

	default:
		return Clause{}, false
	}

	if perElement {
		title = itemTitle(f, title)
	}
	rec := NewErrorRecord(r.Kind.String(), title, path)

	return Clause{
		Kind:       ClauseRule,
		Rule:       r.Kind,
		Field:      f.Name,
		Comment:    r.Kind.String(),
		Conditions: conditions,
		Error:      &rec,
	}, true
}

// stringLength - предикат "строка длиннее/короче n".
func stringLength(f ir.Field, op expr.Op, n int) Predicate {
	return func(x expr.Node, element bool) []expr.Node {
		return []expr.Node{
			expr.IsA{X: x, Class: names.ClassString},
			expr.Binary{Op: op, L: expr.Length{X: must(f, x, element, false)}, R: expr.Num(float64(n))},
		}
	}
}

// numberCompare - предикат "число нарушает границу value".
func numberCompare(f ir.Field, op expr.Op, value float64, skipMust bool) Predicate {
	return func(x expr.Node, element bool) []expr.Node {
		return []expr.Node{
			expr.IsA{X: x, Class: names.ClassNumeric},
			expr.Binary{Op: op, L: must(f, x, element, skipMust), R: expr.Num(value)},
		}
	}
}

// arrayLength сравнивает длину самого массива, без обхода элементов.
func arrayLength(v expr.Node, op expr.Op, n int) []expr.Node {
	return []expr.Node{
		expr.IsA{X: v, Class: names.ClassArray},
		expr.Binary{Op: op, L: expr.Length{X: v}, R: expr.Num(float64(n))},
	}
}
