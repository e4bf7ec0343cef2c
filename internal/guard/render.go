package guard

import (
	"sorbet-validators/internal/expr"
	"sorbet-validators/internal/layout"
)

// Fragment рендерит клаузу: пустая строка, комментарий с видом проверки,
// затем блок "if <conditions>" с созданием ошибки или вызов валидатора.
func (c Clause) Fragment(errorType string) layout.Fragment {
	head := layout.Group{layout.Blank, layout.Line("# " + c.Comment)}

	if c.Delegate != nil {
		return append(head, c.Delegate.Fragment())
	}

	return append(head, layout.Block(
		"if "+expr.All(c.Conditions...).Ruby(),
		c.Error.Fragment(errorType, ErrorOptions{}),
	))
}

// Fragment рендерит делегирование в валидатор другого типа.
func (d *Delegation) Fragment() layout.Fragment {
	call := func(arg string) string {
		return ErrorsVar + ".concat(" + d.Validator + "(" + arg + "))"
	}

	stmt := call(d.Target.Ruby())
	if d.Each {
		each := ".each"
		if d.SafeNav {
			each = "&.each"
		}
		stmt = d.Target.Ruby() + each + " { |" + ElementVar + "| " + call(ElementVar) + " }"
	}

	if d.Guard == nil {
		return layout.Line(stmt)
	}
	return layout.Block("if "+d.Guard.Ruby(), layout.Line(stmt))
}
