package validators

import (
	"strings"

	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/layout"
)

func (s *Set) returnType() string {
	return "T::Array[" + s.ErrorType + "]"
}

// Fragment рендерит набор валидаторов: определения через пустую строку.
func (s *Set) Fragment() layout.Fragment {
	var g layout.Group
	for _, d := range s.defs {
		g = append(g, layout.Blank, s.Render(d))
	}
	return g
}

// Render рендерит одно определение: sig и def.
func (s *Set) Render(d *Definition) layout.Fragment {
	switch d.Kind {
	case KindMethod:
		return layout.Group{s.methodSignature(d), s.body(d, s.clauses(d))}
	case KindType:
		return layout.Group{s.singleSignature(d), s.body(d, s.clauses(d))}
	default:
		return layout.Group{s.singleSignature(d), layout.Block(s.header(d), s.enumBody(d))}
	}
}

func (s *Set) header(d *Definition) string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Name
		if d.Keyword() {
			params[i] += ":"
			if strings.HasPrefix(p.Type, "T.nilable(") {
				params[i] += " nil"
			}
		}
	}
	return "def " + d.Name + "(" + strings.Join(params, ", ") + ")"
}

// methodSignature - многострочная sig для валидатора параметров метода.
func (s *Set) methodSignature(d *Definition) layout.Fragment {
	params := make(layout.Group, len(d.Params))
	for i, p := range d.Params {
		comma := ","
		if i == len(d.Params)-1 {
			comma = ""
		}
		params[i] = layout.Line(p.Name + ": " + p.Type + comma)
	}
	return layout.Block("sig do",
		layout.Line("params("),
		layout.Indent(params...),
		layout.Line(").returns("),
		layout.Indent(layout.Line(s.returnType())),
		layout.Line(")"),
	)
}

// singleSignature - sig для валидатора типа или перечисления.
func (s *Set) singleSignature(d *Definition) layout.Fragment {
	p := d.Params[0]
	return layout.Block("sig do",
		layout.Line("params("+p.Name+": "+p.Type+")."),
		layout.Indent(layout.Line("returns("+s.returnType()+")")),
	)
}

func (s *Set) clauses(d *Definition) layout.Fragment {
	g := make(layout.Group, len(d.Clauses))
	for i, c := range d.Clauses {
		g[i] = c.Fragment(s.ErrorType)
	}
	return g
}

func (s *Set) body(d *Definition, clauses layout.Fragment) layout.Fragment {
	return layout.Block(s.header(d),
		layout.Line(guard.ErrorsVar+" = T.let([], "+s.returnType()+")"),
		clauses,
		layout.Blank,
		layout.Line(guard.ErrorsVar),
	)
}

// enumBody рендерит исчерпывающий case по значениям перечисления:
//
//	case T.unsafe(size)
//	when Enums::Size::SMALL,
//	  Enums::Size::BIG
//	  []
//	else
//	  [
//	    Types::ValidationError.new(...),
//	  ]
//	end
func (s *Set) enumBody(d *Definition) layout.Fragment {
	if d.Enum == nil {
		return layout.Line("[]")
	}

	fallback := layout.Group{
		layout.Line("["),
		layout.Indent(d.Enum.Fallback.Fragment(s.ErrorType, guard.ErrorOptions{SkipPush: true, TrailingComma: true})),
		layout.Line("]"),
	}
	members := d.Enum.Members
	if len(members) == 0 {
		return fallback
	}

	var rest layout.Group
	for i, m := range members[1:] {
		if i < len(members)-2 {
			m += ","
		}
		rest = append(rest, layout.Line(m))
	}
	first := members[0]
	if len(members) > 1 {
		first += ","
	}

	return layout.Group{
		layout.Line("case T.unsafe(" + d.Params[0].Name + ")"),
		layout.Line("when " + first),
		layout.Indent(append(rest, layout.Line("[]"))...),
		layout.Line("else"),
		layout.Indent(fallback),
		layout.Line("end"),
	}
}
